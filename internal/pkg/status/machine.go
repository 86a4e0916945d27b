package status

import (
	"fmt"
	"sync"

	"github.com/airenas/scribe/internal/pkg/api"
)

// Snapshot is an immutable view of the machine
type Snapshot struct {
	Status          Status
	TranscriptionID string
	Err             error
}

// Machine is a submission state machine.
// idle -> uploading -> transcribing -> complete | failed, complete | failed -> idle on reset.
// A new submission begins only from idle.
type Machine struct {
	lock     sync.Mutex
	cur      Snapshot
	onChange func(Snapshot)
}

// NewMachine creates machine in Idle state, onChange may be nil
func NewMachine(onChange func(Snapshot)) *Machine {
	return &Machine{cur: Snapshot{Status: Idle}, onChange: onChange}
}

// ErrTransition is returned on an invalid transition
type ErrTransition struct {
	From, To Status
}

func (e *ErrTransition) Error() string {
	return fmt.Sprintf("wrong transition %s -> %s", e.From, e.To)
}

// Current returns current snapshot
func (m *Machine) Current() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cur
}

// Begin moves idle machine to uploading, a finished one needs Reset first
func (m *Machine) Begin() error {
	return m.change(func(c Snapshot) (Snapshot, error) {
		switch c.Status {
		case Idle:
			return Snapshot{Status: Uploading}, nil
		case Uploading, Transcribing:
			return c, api.ErrBusy
		}
		return c, &ErrTransition{From: c.Status, To: Uploading}
	})
}

// Transcribing marks the audio as sent
func (m *Machine) Transcribing() error {
	return m.change(func(c Snapshot) (Snapshot, error) {
		if c.Status != Uploading {
			return c, &ErrTransition{From: c.Status, To: Transcribing}
		}
		return Snapshot{Status: Transcribing}, nil
	})
}

// Complete finishes the submission with the persisted record ID
func (m *Machine) Complete(id string) error {
	return m.change(func(c Snapshot) (Snapshot, error) {
		if c.Status != Transcribing || id == "" {
			return c, &ErrTransition{From: c.Status, To: Completed}
		}
		return Snapshot{Status: Completed, TranscriptionID: id}, nil
	})
}

// Fail moves any not completed submission to failed
func (m *Machine) Fail(err error) error {
	return m.change(func(c Snapshot) (Snapshot, error) {
		if c.Status == Completed {
			return c, &ErrTransition{From: c.Status, To: Failed}
		}
		return Snapshot{Status: Failed, Err: err}, nil
	})
}

// Reset returns finished machine to idle
func (m *Machine) Reset() error {
	return m.change(func(c Snapshot) (Snapshot, error) {
		if c.Status.InFlight() {
			return c, api.ErrBusy
		}
		return Snapshot{Status: Idle}, nil
	})
}

func (m *Machine) change(f func(Snapshot) (Snapshot, error)) error {
	m.lock.Lock()
	n, err := f(m.cur)
	if err != nil {
		m.lock.Unlock()
		return err
	}
	m.cur = n
	m.lock.Unlock()
	if m.onChange != nil {
		m.onChange(n)
	}
	return nil
}
