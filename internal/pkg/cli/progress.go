package cli

import (
	"os"
	"sync"
	"time"

	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type stopFunc func()

func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

// recordingUI shows the elapsed recording time
type recordingUI struct {
	lock sync.Mutex
	bar  *progressbar.ProgressBar
}

func newRecordingUI(enabled bool) *recordingUI {
	res := &recordingUI{}
	if enabled {
		res.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Recording 00:00"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(11),
			progressbar.OptionClearOnFinish(),
		)
	}
	return res
}

func (u *recordingUI) tick(elapsed time.Duration) {
	u.lock.Lock()
	defer u.lock.Unlock()
	if u.bar == nil {
		return
	}
	s := elapsed.Seconds()
	u.bar.Describe("Recording " + capture.FormatDuration(&s))
	_ = u.bar.Add(1)
}

func (u *recordingUI) close() {
	u.lock.Lock()
	defer u.lock.Unlock()
	if u.bar != nil {
		_ = u.bar.Finish()
		u.bar = nil
	}
}

// submitUI follows the submission: upload bar, then a spinner until the transcript arrives
type submitUI struct {
	enabled bool
	logger  *zap.Logger

	lock     sync.Mutex
	bar      *progressbar.ProgressBar
	stopSpin stopFunc
}

func newSubmitUI(enabled bool, logger *zap.Logger) *submitUI {
	return &submitUI{enabled: enabled, logger: logger}
}

func (u *submitUI) progress(sent, total int64) {
	u.lock.Lock()
	defer u.lock.Unlock()
	if !u.enabled {
		return
	}
	if u.bar == nil {
		u.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(20),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = u.bar.Set64(sent)
}

func (u *submitUI) onChange(s status.Snapshot) {
	u.logger.Debug("submission state", zap.Stringer("state", s.Status))
	u.lock.Lock()
	defer u.lock.Unlock()
	switch s.Status {
	case status.Uploading:
		if !u.enabled {
			u.logger.Info("uploading audio")
		}
	case status.Transcribing:
		u.finishBar()
		if !u.enabled {
			u.logger.Info("waiting for the transcript")
		}
		u.stopSpin = startSpinner(u.enabled, "Transcribing")
	case status.Completed, status.Failed:
		u.finishBar()
		u.stopSpinner()
	}
}

func (u *submitUI) close() {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.finishBar()
	u.stopSpinner()
}

func (u *submitUI) finishBar() {
	if u.bar != nil {
		_ = u.bar.Finish()
		u.bar = nil
	}
}

func (u *submitUI) stopSpinner() {
	if u.stopSpin != nil {
		u.stopSpin()
		u.stopSpin = nil
	}
}
