package capture

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBackend(t *testing.T) {
	a := &fakeBackend{available: false}
	b := &fakeBackend{available: true}
	got, err := SelectBackend([]Backend{a, b}, "auto")
	require.Nil(t, err)
	assert.Same(t, b, got)
	got, err = SelectBackend([]Backend{b}, "fake")
	require.Nil(t, err)
	assert.Same(t, b, got)

	_, err = SelectBackend([]Backend{a}, "")
	assert.ErrorIs(t, err, api.ErrDeviceUnavailable)
	_, err = SelectBackend([]Backend{a}, "fake")
	assert.ErrorIs(t, err, api.ErrDeviceUnavailable)
	_, err = SelectBackend(nil, "")
	assert.ErrorIs(t, err, api.ErrDeviceUnavailable)
	_, err = SelectBackend([]Backend{b}, "olia")
	assert.NotNil(t, err)
}

func TestDefaultBackends(t *testing.T) {
	names := func(bs []Backend) []string {
		res := []string{}
		for _, b := range bs {
			res = append(res, b.Name())
		}
		return res
	}
	assert.Equal(t, []string{"pw-record", "arecord", "ffmpeg"}, names(DefaultBackends("linux")))
	assert.Equal(t, []string{"ffmpeg"}, names(DefaultBackends("darwin")))
	assert.Empty(t, DefaultBackends("plan9"))
}

func TestClassify(t *testing.T) {
	base := errors.New("exit status 1")
	assert.ErrorIs(t, classify(base, "arecord: main:830: audio open error: Permission denied"), api.ErrPermissionDenied)
	assert.ErrorIs(t, classify(base, "arecord: main:830: audio open error: No such file or directory"), api.ErrDeviceUnavailable)
	assert.ErrorIs(t, classify(base, "Device or resource busy"), api.ErrDeviceUnavailable)
	assert.ErrorIs(t, classify(exec.ErrNotFound, ""), api.ErrDeviceUnavailable)
	err := classify(base, "olia")
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "olia")
	assert.Equal(t, "recorder failed: exit status 1", classify(base, "").Error())
}

func TestStartCommand_StopsOnSignal(t *testing.T) {
	if !commandAvailable("sleep") {
		t.Skip("no sleep")
	}
	s, err := startCommand(nil, "sleep", "30")
	require.Nil(t, err)
	start := time.Now()
	assert.Nil(t, s.Stop())
	assert.Nil(t, s.Stop())
	assert.Less(t, time.Since(start), stopTimeout)
}

func TestStartCommand_FailsOnStart(t *testing.T) {
	if !commandAvailable("sh") {
		t.Skip("no sh")
	}
	_, err := startCommand(nil, "sh", "-c", "echo 'audio open error: Permission denied' >&2; exit 1")
	assert.ErrorIs(t, err, api.ErrPermissionDenied)
	_, err = startCommand(nil, "scribe-no-such-recorder")
	assert.ErrorIs(t, err, api.ErrDeviceUnavailable)
}
