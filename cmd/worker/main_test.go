package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_defaultV(t *testing.T) {
	tests := []struct {
		name string
		v, d int
		want int
	}{
		{name: "not configured", v: 0, d: 2, want: 2},
		{name: "configured", v: 5, d: 2, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultV(tt.v, tt.d))
		})
	}
	assert.Equal(t, "scribe", defaultV("", "scribe"))
}
