package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type testMsg struct {
	ID string `json:"id"`
}

type testData struct {
	got []string
	err error
}

func testJob(t *testing.T, errCount int32) *gue.Job {
	t.Helper()
	b, err := json.Marshal(testMsg{ID: "1"})
	require.Nil(t, err)
	return &gue.Job{Type: "t", Queue: "q", Args: b, ErrorCount: errCount}
}

func handle(ctx context.Context, m *testMsg, d *testData) error {
	d.got = append(d.got, m.ID)
	return d.err
}

func TestCreate(t *testing.T) {
	d := &testData{}
	wf := Create(d, handle, DefaultOpts[testMsg]())
	err := wf(context.Background(), testJob(t, 0))
	assert.Nil(t, err)
	assert.Equal(t, []string{"1"}, d.got)
}

func TestCreate_Retry(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	wf := Create(d, handle, DefaultOpts[testMsg]().WithBackoff(NoBackoff()))
	err := wf(context.Background(), testJob(t, 0))
	assert.NotNil(t, err)
}

func TestCreate_GiveUp(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	wf := Create(d, handle, DefaultOpts[testMsg]().WithMaxAttempts(2).WithTimeout(time.Second))
	err := wf(context.Background(), testJob(t, 1))
	assert.Nil(t, err)
}

func TestCreate_BadArgs(t *testing.T) {
	d := &testData{}
	wf := Create(d, handle, DefaultOpts[testMsg]())
	err := wf(context.Background(), &gue.Job{Args: []byte("{")})
	assert.Nil(t, err)
	assert.Empty(t, d.got)
}

func TestFullJitter(t *testing.T) {
	for i := 0; i < 10; i++ {
		v := fullJitter(time.Second)
		assert.True(t, v >= 0 && v < time.Second)
	}
}
