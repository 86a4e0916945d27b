package player

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FFPlay plays a file or an URL with ffplay
type FFPlay struct {
	source  string
	headers string
	logger  *zap.Logger

	lock sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewFFPlay creates sink, token is sent as a bearer for http sources
func NewFFPlay(source, token string, logger *zap.Logger) (*FFPlay, error) {
	if source == "" {
		return nil, fmt.Errorf("no source")
	}
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("ffplay not found: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &FFPlay{source: source, logger: logger}
	if token != "" {
		res.headers = "Authorization: Bearer " + token + "\r\n"
	}
	return res, nil
}

// Start implements Sink
func (f *FFPlay) Start(from time.Duration, volume float64) (<-chan struct{}, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
	cmd := exec.Command("ffplay", ffplayArgs(f.source, f.headers, from, volume)...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		f.logger.Debug("ffplay exited", zap.Error(err))
		close(done)
	}()
	f.cmd, f.done = cmd, done
	return done, nil
}

// Stop implements Sink
func (f *FFPlay) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
	return nil
}

func (f *FFPlay) stopLocked() {
	if f.cmd == nil {
		return
	}
	_ = f.cmd.Process.Kill()
	<-f.done
	f.cmd, f.done = nil, nil
}

func ffplayArgs(source, headers string, from time.Duration, volume float64) []string {
	res := []string{"-nodisp", "-autoexit", "-loglevel", "error",
		"-ss", strconv.FormatFloat(from.Seconds(), 'f', 3, 64),
		"-volume", strconv.Itoa(int(clampVolume(volume)*100 + 0.5))}
	if headers != "" {
		res = append(res, "-headers", headers)
	}
	return append(res, source)
}
