package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWSConn struct{ mock.Mock }

func (m *mockWSConn) ReadMessage() (messageType int, p []byte, err error) {
	args := m.Called()
	return args.Int(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockWSConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockWSConn) WriteJSON(v interface{}) error {
	args := m.Called(v)
	return args.Error(0)
}

func createTestConn(t *testing.T, closeChan <-chan struct{}) *mockWSConn {
	t.Helper()
	connWSMock := &mockWSConn{}
	connWSMock.On("WriteJSON", mock.Anything).Return(nil)
	connWSMock.On("ReadMessage").Return(1, []byte{}, fmt.Errorf("err")).Run(func(args mock.Arguments) {
		<-closeChan
	})
	connWSMock.On("Close").Return(nil)
	return connWSMock
}

func testHas(t *testing.T, kp *Keeper, owner string, i int) {
	t.Helper()
	ctx := test.Ctx(t)
	for kp.Count(owner) != i {
		select {
		case <-ctx.Done():
			require.Failf(t, "timeouted", "expected %d connections for %s", i, owner)
		case <-time.After(time.Millisecond * 20):
		}
	}
}

func TestHandleConnection(t *testing.T) {
	kp := NewKeeper()
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := kp.HandleConnection(createTestConn(t, closeCtx.Done()), "u1")
		assert.Nil(t, err)
	}()
	testHas(t, kp, "u1", 1)
	cf()
	<-done
	assert.Equal(t, 0, kp.Count("u1"))
}

func TestPublish(t *testing.T) {
	kp := NewKeeper()
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	c1 := createTestConn(t, closeCtx.Done())
	c2 := createTestConn(t, closeCtx.Done())
	c3 := createTestConn(t, closeCtx.Done())
	go func() { _ = kp.HandleConnection(c1, "u1") }()
	go func() { _ = kp.HandleConnection(c2, "u1") }()
	go func() { _ = kp.HandleConnection(c3, "u2") }()
	testHas(t, kp, "u1", 2)
	testHas(t, kp, "u2", 1)

	ev := &api.Event{ID: "s1", State: "uploading"}
	kp.Publish("u1", ev)

	c1.AssertCalled(t, "WriteJSON", ev)
	c2.AssertCalled(t, "WriteJSON", ev)
	c3.AssertNotCalled(t, "WriteJSON", mock.Anything)
}

func TestPublish_NoConnections(t *testing.T) {
	kp := NewKeeper()
	kp.Publish("u1", &api.Event{ID: "s1"})
	assert.Equal(t, 0, kp.Count("u1"))
}

func TestHandleConnection_Timeout(t *testing.T) {
	kp := NewKeeper()
	kp.timeOut = time.Millisecond * 50
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	defer cf()

	err := kp.HandleConnection(createTestConn(t, closeCtx.Done()), "u1")

	assert.Nil(t, err)
	assert.Equal(t, 0, kp.Count("u1"))
}
