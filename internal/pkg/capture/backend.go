package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"go.uber.org/zap"
)

// StreamConfig describes one recording
type StreamConfig struct {
	OutputPath string
	SampleRate int
	Channels   int
	Input      string
	Format     string
	Logger     *zap.Logger
}

// Stream is a running recording
type Stream interface {
	// Stop finalizes the output file and releases the device
	Stop() error
}

// Backend starts recordings on some system tool
type Backend interface {
	Name() string
	Available() bool
	Start(ctx context.Context, cfg StreamConfig) (Stream, error)
	ListDevices(ctx context.Context) (string, error)
}

var (
	startGrace  = 300 * time.Millisecond
	stopTimeout = 5 * time.Second
)

// SelectBackend picks preferred backend or the first available one
func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", api.ErrDeviceUnavailable)
	}
	if preferred != "" && preferred != "auto" {
		for _, b := range backends {
			if b.Name() == preferred {
				if !b.Available() {
					return nil, fmt.Errorf("%w: backend %q is not installed", api.ErrDeviceUnavailable, preferred)
				}
				return b, nil
			}
		}
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}
	for _, b := range backends {
		if b.Available() {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no recording tool found", api.ErrDeviceUnavailable)
}

// DefaultBackends returns backends supported on the OS in the preference order
func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{&pipewireBackend{}, &alsaBackend{}, &ffmpegBackend{formats: []string{"pulse", "alsa"}, input: "default"}}
	case "darwin":
		return []Backend{&ffmpegBackend{formats: []string{"avfoundation"}, input: ":0"}}
	default:
		return nil
	}
}

// NewBackend selects backend for the current OS
func NewBackend(preferred string) (Backend, error) {
	return SelectBackend(DefaultBackends(runtime.GOOS), preferred)
}

type pipewireBackend struct{}

func (b *pipewireBackend) Name() string    { return "pw-record" }
func (b *pipewireBackend) Available() bool { return commandAvailable("pw-record") }

func (b *pipewireBackend) Start(_ context.Context, cfg StreamConfig) (Stream, error) {
	args := []string{"--rate", itoa(defaultSampleRate(cfg.SampleRate)), "--channels", itoa(defaultChannels(cfg.Channels)),
		"--format", "s16"}
	if cfg.Input != "" {
		args = append(args, "--target", cfg.Input)
	}
	return startCommand(cfg.Logger, "pw-record", append(args, cfg.OutputPath)...)
}

func (b *pipewireBackend) ListDevices(ctx context.Context) (string, error) {
	if commandAvailable("pw-cli") {
		return commandOutput(ctx, "pw-cli", "ls", "Node")
	}
	return commandOutput(ctx, "pactl", "list", "short", "sources")
}

type alsaBackend struct{}

func (b *alsaBackend) Name() string    { return "arecord" }
func (b *alsaBackend) Available() bool { return commandAvailable("arecord") }

func (b *alsaBackend) Start(_ context.Context, cfg StreamConfig) (Stream, error) {
	args := []string{"-q", "-f", "S16_LE", "-r", itoa(defaultSampleRate(cfg.SampleRate)), "-c", itoa(defaultChannels(cfg.Channels))}
	if cfg.Input != "" {
		args = append(args, "-D", cfg.Input)
	}
	return startCommand(cfg.Logger, "arecord", append(args, cfg.OutputPath)...)
}

func (b *alsaBackend) ListDevices(ctx context.Context) (string, error) {
	return commandOutput(ctx, "arecord", "-L")
}

type ffmpegBackend struct {
	formats []string
	input   string
}

func (b *ffmpegBackend) Name() string    { return "ffmpeg" }
func (b *ffmpegBackend) Available() bool { return commandAvailable("ffmpeg") }

func (b *ffmpegBackend) Start(_ context.Context, cfg StreamConfig) (Stream, error) {
	formats, input := b.formats, b.input
	if cfg.Format != "" {
		formats = []string{cfg.Format}
	}
	if cfg.Input != "" {
		input = cfg.Input
	}
	var errs []error
	for _, f := range formats {
		args := []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-f", f, "-i", input,
			"-ac", itoa(defaultChannels(cfg.Channels)), "-ar", itoa(defaultSampleRate(cfg.SampleRate)),
			"-c:a", "pcm_s16le", cfg.OutputPath}
		s, err := startCommand(cfg.Logger, "ffmpeg", args...)
		if err == nil {
			return s, nil
		}
		if errors.Is(err, api.ErrPermissionDenied) {
			return nil, err
		}
		errs = append(errs, fmt.Errorf("ffmpeg (%s/%s): %w", f, input, err))
	}
	return nil, errors.Join(errs...)
}

func (b *ffmpegBackend) ListDevices(ctx context.Context) (string, error) {
	if runtime.GOOS == "darwin" {
		// ffmpeg lists devices and exits with an error
		out, _ := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "").CombinedOutput()
		return strings.TrimSpace(string(out)), nil
	}
	var sections []string
	if commandAvailable("pactl") {
		if out, err := commandOutput(ctx, "pactl", "list", "short", "sources"); err == nil {
			sections = append(sections, "PulseAudio/PipeWire sources:\n"+out)
		}
	}
	if commandAvailable("arecord") {
		if out, err := commandOutput(ctx, "arecord", "-L"); err == nil {
			sections = append(sections, "ALSA devices:\n"+out)
		}
	}
	if len(sections) == 0 {
		return "", errors.New("no device listing command available")
	}
	return strings.Join(sections, "\n\n"), nil
}

type cmdStream struct {
	cmd    *exec.Cmd
	done   chan error
	stderr *syncBuffer
	logger *zap.Logger
	once   sync.Once
	err    error
}

// startCommand runs the recorder and waits a bit to catch startup failures
func startCommand(logger *zap.Logger, name string, args ...string) (Stream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(name, args...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr
	logger.Debug("starting recorder", zap.String("cmd", name), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return nil, classify(err, "")
	}
	res := &cmdStream{cmd: cmd, done: make(chan error, 1), stderr: stderr, logger: logger}
	go func() {
		res.done <- cmd.Wait()
	}()
	select {
	case err := <-res.done:
		if err == nil {
			err = errors.New("recorder exited immediately")
		}
		return nil, classify(err, stderr.String())
	case <-time.After(startGrace):
	}
	return res, nil
}

func (s *cmdStream) Stop() error {
	s.once.Do(func() {
		s.err = s.stop()
	})
	return s.err
}

func (s *cmdStream) stop() error {
	sent := s.cmd.Process.Signal(os.Interrupt) == nil
	var err error
	select {
	case err = <-s.done:
	case <-time.After(stopTimeout):
		s.logger.Warn("recorder does not stop, killing")
		_ = s.cmd.Process.Kill()
		err = <-s.done
	}
	if err == nil {
		return nil
	}
	if sent {
		s.logger.Debug("recorder exited after stop signal", zap.Error(err))
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return nil
		}
	}
	return classify(err, s.stderr.String())
}

var (
	permissionMarks = []string{"permission denied", "access denied", "not permitted", "not authorized"}
	deviceMarks     = []string{"no such file or directory", "no such device", "no such audio device", "cannot find card",
		"device or resource busy", "connection refused", "no available", "audio open error", "input/output error"}
)

func classify(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", api.ErrDeviceUnavailable, err)
	}
	msg := strings.ToLower(stderr)
	for _, m := range permissionMarks {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %s", api.ErrPermissionDenied, strings.TrimSpace(stderr))
		}
	}
	for _, m := range deviceMarks {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %s", api.ErrDeviceUnavailable, strings.TrimSpace(stderr))
		}
	}
	if s := strings.TrimSpace(stderr); s != "" {
		return fmt.Errorf("recorder failed: %w (%s)", err, s)
	}
	return fmt.Errorf("recorder failed: %w", err)
}

type syncBuffer struct {
	lock sync.Mutex
	b    bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.lock.Lock()
	defer sb.lock.Unlock()
	return sb.b.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.lock.Lock()
	defer sb.lock.Unlock()
	return sb.b.String()
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}

func defaultSampleRate(v int) int {
	if v <= 0 {
		return 16000
	}
	return v
}

func defaultChannels(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}
