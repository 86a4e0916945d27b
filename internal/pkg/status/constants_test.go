package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		st   Status
		want string
	}{
		{st: Idle, want: "idle"},
		{st: Uploading, want: "uploading"},
		{st: Transcribing, want: "transcribing"},
		{st: Completed, want: "complete"},
		{st: Failed, want: "failed"},
		{st: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	for _, st := range []Status{Idle, Uploading, Transcribing, Completed, Failed} {
		assert.Equal(t, st, From(st.String()))
	}
	assert.Equal(t, Status(0), From("olia"))
}

func TestInFlight(t *testing.T) {
	assert.False(t, Idle.InFlight())
	assert.True(t, Uploading.InFlight())
	assert.True(t, Transcribing.InFlight())
	assert.False(t, Completed.InFlight())
	assert.False(t, Failed.InFlight())
}
