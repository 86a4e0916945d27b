package status

import (
	"errors"
	"io"
	"testing"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Flow(t *testing.T) {
	var got []Status
	m := NewMachine(func(s Snapshot) { got = append(got, s.Status) })
	assert.Equal(t, Idle, m.Current().Status)
	require.Nil(t, m.Begin())
	require.Nil(t, m.Transcribing())
	require.Nil(t, m.Complete("10"))
	assert.Equal(t, Snapshot{Status: Completed, TranscriptionID: "10"}, m.Current())
	assert.Equal(t, []Status{Uploading, Transcribing, Completed}, got)
}

func TestMachine_Busy(t *testing.T) {
	m := NewMachine(nil)
	require.Nil(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), api.ErrBusy)
	require.Nil(t, m.Transcribing())
	assert.ErrorIs(t, m.Begin(), api.ErrBusy)
	assert.ErrorIs(t, m.Reset(), api.ErrBusy)
}

func TestMachine_FailRetry(t *testing.T) {
	m := NewMachine(nil)
	require.Nil(t, m.Begin())
	require.Nil(t, m.Fail(io.EOF))
	assert.Equal(t, Failed, m.Current().Status)
	assert.Equal(t, io.EOF, m.Current().Err)
	require.Nil(t, m.Reset())
	assert.Equal(t, Idle, m.Current().Status)
	require.Nil(t, m.Begin())
	assert.Equal(t, Uploading, m.Current().Status)
}

func TestMachine_BeginOnlyFromIdle(t *testing.T) {
	var got []Status
	m := NewMachine(func(s Snapshot) { got = append(got, s.Status) })
	require.Nil(t, m.Begin())
	require.Nil(t, m.Fail(io.EOF))
	var te *ErrTransition
	require.True(t, errors.As(m.Begin(), &te))
	assert.Equal(t, Failed, te.From)
	assert.Equal(t, Failed, m.Current().Status)
	require.Nil(t, m.Reset())
	require.Nil(t, m.Begin())
	assert.Equal(t, []Status{Uploading, Failed, Idle, Uploading}, got)
}

func TestMachine_WrongTransitions(t *testing.T) {
	m := NewMachine(nil)
	var te *ErrTransition
	assert.True(t, errors.As(m.Transcribing(), &te))
	assert.True(t, errors.As(m.Complete("1"), &te))
	require.Nil(t, m.Begin())
	assert.True(t, errors.As(m.Complete("1"), &te))
	require.Nil(t, m.Transcribing())
	assert.True(t, errors.As(m.Complete(""), &te))
	require.Nil(t, m.Complete("1"))
	assert.True(t, errors.As(m.Fail(io.EOF), &te))
	assert.True(t, errors.As(m.Begin(), &te))
	assert.Equal(t, "wrong transition complete -> failed", (&ErrTransition{From: Completed, To: Failed}).Error())
}
