package form

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/airenas/scribe/internal/pkg/status"
	"go.uber.org/zap"
)

const (
	fieldTitle = "title"
	fieldAudio = "audio"
)

// Submitter sends a create request to the relay
type Submitter interface {
	Submit(ctx context.Context, in *api.CreateRequest, progress func(sent, total int64)) (*api.Transcription, error)
}

// Form collects the title and the audio and submits them.
// Only one submission may be in flight.
type Form struct {
	submitter Submitter
	machine   *status.Machine
	now       func() time.Time
	logger    *zap.Logger

	lock     sync.Mutex
	title    string
	audio    *capture.Resource
	progress func(sent, total int64)
}

// New creates idle form, onChange may be nil
func New(submitter Submitter, onChange func(status.Snapshot), logger *zap.Logger) (*Form, error) {
	if submitter == nil {
		return nil, fmt.Errorf("no submitter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{submitter: submitter, machine: status.NewMachine(onChange), now: time.Now, logger: logger}, nil
}

// SetProgress sets the upload progress listener
func (f *Form) SetProgress(progress func(sent, total int64)) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.progress = progress
}

// SetTitle sets user entered title
func (f *Form) SetTitle(title string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.machine.Current().Status.InFlight() {
		return api.ErrBusy
	}
	f.title = title
	return nil
}

// Title returns current title
func (f *Form) Title() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.title
}

// SetAudio sets the captured audio, an empty title gets a default value
func (f *Form) SetAudio(res *capture.Resource) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.machine.Current().Status.InFlight() {
		return api.ErrBusy
	}
	f.audio = res
	if res != nil && strings.TrimSpace(f.title) == "" {
		f.title = DefaultTitle(f.now())
	}
	return nil
}

// Audio returns current audio
func (f *Form) Audio() *capture.Resource {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.audio
}

// State returns the submission state
func (f *Form) State() status.Snapshot {
	return f.machine.Current()
}

// CanSubmit tells if the submit action should be enabled
func (f *Form) CanSubmit() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.audio != nil && strings.TrimSpace(f.title) != "" && !f.machine.Current().Status.InFlight()
}

// begin starts a submission, a finished one goes back to idle first
func (f *Form) begin() error {
	if st := f.machine.Current().Status; st == status.Failed || st == status.Completed {
		if err := f.machine.Reset(); err != nil {
			return err
		}
	}
	return f.machine.Begin()
}

// Submit sends the audio. Once started it can't be cancelled, ctx values are kept
func (f *Form) Submit(ctx context.Context) (res *api.Transcription, err error) {
	f.lock.Lock()
	if st := f.machine.Current().Status; st.InFlight() {
		f.lock.Unlock()
		return nil, api.ErrBusy
	}
	title, audio, progress := strings.TrimSpace(f.title), f.audio, f.progress
	var missing []string
	if title == "" {
		missing = append(missing, fieldTitle)
	}
	if audio == nil || len(audio.Data) == 0 {
		missing = append(missing, fieldAudio)
	}
	if len(missing) > 0 {
		f.lock.Unlock()
		return nil, api.NewValidationError(missing...)
	}
	f.lock.Unlock()
	if err = f.begin(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("submission panic", zap.Any("panic", r))
			res, err = nil, fmt.Errorf("unexpected submission error")
			_ = f.machine.Fail(err)
		}
	}()

	var once sync.Once
	sent := func() {
		once.Do(func() {
			if err := f.machine.Transcribing(); err != nil {
				f.logger.Warn("can't change state", zap.Error(err))
			}
		})
	}
	in := &api.CreateRequest{Title: title, AudioData: base64.StdEncoding.EncodeToString(audio.Data),
		MimeType: audio.MimeType, FileName: audio.FileName, Duration: audio.Duration}
	f.logger.Debug("submitting", zap.String("title", title), zap.Int("bytes", len(audio.Data)))
	res, err = f.submitter.Submit(context.WithoutCancel(ctx), in, func(s, total int64) {
		if progress != nil {
			progress(s, total)
		}
		if s >= total {
			sent()
		}
	})
	if err != nil {
		_ = f.machine.Fail(err)
		return nil, err
	}
	sent()
	if err := f.machine.Complete(res.ID); err != nil {
		_ = f.machine.Fail(err)
		return nil, err
	}
	f.lock.Lock()
	f.audio, f.title = nil, ""
	f.lock.Unlock()
	return res, nil
}

// Retry returns failed form to idle keeping the audio and the title
func (f *Form) Retry() error {
	return f.machine.Reset()
}

// Reset abandons the form
func (f *Form) Reset() error {
	if err := f.machine.Reset(); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.audio, f.title = nil, ""
	return nil
}

// DefaultTitle is proposed when the audio is ready and no title is entered
func DefaultTitle(t time.Time) string {
	return "Transcription " + t.Format("2006-01-02 15:04:05")
}
