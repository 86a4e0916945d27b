package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"go.uber.org/zap"
)

// State of the recorder
type State int

const (
	// Idle - no recording in progress, device is free
	Idle State = iota
	// Recording - device is held
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Options configure recorder
type Options struct {
	Dir        string
	SampleRate int
	Channels   int
	Input      string
	Format     string
	// OnTick is called every second of the recording with the elapsed time,
	// it must not call the recorder
	OnTick func(time.Duration)
	Logger *zap.Logger
}

// Recorder records audio from the shared input device.
// idle -> recording on Start, recording -> idle on Stop or Close.
type Recorder struct {
	device  *Device
	backend Backend
	opts    Options
	now     func() time.Time
	tick    time.Duration

	lock     sync.Mutex
	state    State
	stream   Stream
	path     string
	started  time.Time
	tickStop chan struct{}
	tickDone chan struct{}
}

// NewRecorder creates recorder
func NewRecorder(device *Device, backend Backend, opts Options) (*Recorder, error) {
	if device == nil {
		return nil, fmt.Errorf("no device")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Recorder{device: device, backend: backend, opts: opts, now: time.Now, tick: time.Second}, nil
}

// State returns current state
func (r *Recorder) State() State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.state
}

// Elapsed returns recording time with one second resolution
func (r *Recorder) Elapsed() time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.state != Recording {
		return 0
	}
	return r.now().Sub(r.started).Truncate(time.Second)
}

// Start acquires the device and starts recording
func (r *Recorder) Start(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.state == Recording {
		return api.ErrBusy
	}
	if r.backend == nil || !r.backend.Available() {
		return fmt.Errorf("%w: no recording backend", api.ErrDeviceUnavailable)
	}
	if !r.device.tryAcquire() {
		return fmt.Errorf("%w: input device is held by another recording", api.ErrDeviceUnavailable)
	}
	ok := false
	defer func() {
		if !ok {
			r.device.release()
		}
	}()
	f, err := os.CreateTemp(r.opts.Dir, "scribe-*.wav")
	if err != nil {
		return fmt.Errorf("can't create temp file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	stream, err := r.backend.Start(ctx, StreamConfig{OutputPath: path, SampleRate: r.opts.SampleRate,
		Channels: r.opts.Channels, Input: r.opts.Input, Format: r.opts.Format, Logger: r.opts.Logger})
	if err != nil {
		r.removeFile(path)
		return err
	}
	r.stream, r.path, r.started, r.state = stream, path, r.now(), Recording
	r.startTicker()
	ok = true
	r.opts.Logger.Info("recording started", zap.String("backend", r.backend.Name()))
	return nil
}

// Stop finalizes recording. Returns nil resource if there was no recording
func (r *Recorder) Stop() (*Resource, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.state != Recording {
		return nil, nil
	}
	elapsed := r.now().Sub(r.started)
	path := r.path
	err := r.finish()
	defer r.removeFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read recording: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty recording", api.ErrDecode)
	}
	r.opts.Logger.Info("recording finished", zap.Duration("elapsed", elapsed), zap.Int("bytes", len(data)))
	return &Resource{Data: data, MimeType: "audio/wav", FileName: "recording.wav",
		Duration: seconds(elapsed.Seconds())}, nil
}

// Close drops any recording in progress and frees the device
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.state != Recording {
		return nil
	}
	path := r.path
	err := r.finish()
	r.removeFile(path)
	return err
}

// finish stops stream, ticker and releases the device on every path
func (r *Recorder) finish() error {
	defer r.device.release()
	r.stopTicker()
	err := r.stream.Stop()
	r.stream, r.path, r.state = nil, "", Idle
	return err
}

func (r *Recorder) startTicker() {
	if r.opts.OnTick == nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	r.tickStop, r.tickDone = stop, done
	started, onTick := r.started, r.opts.OnTick
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				onTick(r.now().Sub(started).Truncate(time.Second))
			}
		}
	}()
}

func (r *Recorder) stopTicker() {
	if r.tickStop == nil {
		return
	}
	close(r.tickStop)
	<-r.tickDone
	r.tickStop, r.tickDone = nil, nil
}

func (r *Recorder) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.opts.Logger.Warn("can't remove recording", zap.String("path", path), zap.Error(err))
	}
}
