package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/records"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/airenas/scribe/internal/pkg/test/mocks"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	mock.Mock
	echo bool
}

func (m *storeMock) Create(ctx context.Context, owner string, in *records.NewRecord) (*persistence.Transcription, error) {
	args := m.Called(ctx, owner, in)
	if m.echo {
		return &persistence.Transcription{ID: in.ID, UserID: owner, Title: in.Title, Content: in.Content,
			APIUsed: in.APIUsed, Duration: in.Duration, AudioURL: utils.ToSQLStr(in.AudioURL)}, args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*persistence.Transcription), args.Error(1)
}

type eventLog struct {
	lock   sync.Mutex
	states []string
	last   *api.Event
}

func (e *eventLog) Publish(owner string, ev *api.Event) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.states = append(e.states, ev.State)
	e.last = ev
}

var (
	filerMock *mocks.Filer
	trMock    *mocks.Transcriber
	stMock    *storeMock
	events    *eventLog
)

func initTest(t *testing.T) *Pipeline {
	t.Helper()
	filerMock = &mocks.Filer{}
	trMock = &mocks.Transcriber{}
	stMock = &storeMock{}
	events = &eventLog{}
	p, err := New(filerMock, trMock, stMock, events)
	require.Nil(t, err)
	return p
}

func fp(v float64) *float64 {
	return &v
}

func TestNew(t *testing.T) {
	_, err := New(nil, &mocks.Transcriber{}, &storeMock{}, nil)
	assert.NotNil(t, err)
	_, err = New(&mocks.Filer{}, nil, &storeMock{}, nil)
	assert.NotNil(t, err)
	_, err = New(&mocks.Filer{}, &mocks.Transcriber{}, nil, nil)
	assert.NotNil(t, err)
	_, err = New(&mocks.Filer{}, &mocks.Transcriber{}, &storeMock{}, nil)
	assert.Nil(t, err)
}

func TestSubmit(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, int64(5)).Return(nil)
	trMock.On("Transcribe", mock.Anything, mock.Anything).Return(
		&transcriber.Result{Text: "hello world", APIUsed: "deepgram"}, nil)
	stMock.echo = true
	stMock.On("Create", mock.Anything, "u1", mock.Anything).Return(nil, nil)

	rec, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio"),
		MimeType: "audio/wav", Duration: fp(3)})

	require.Nil(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Test", rec.Title)
	assert.Equal(t, "hello world", rec.Content)
	assert.Equal(t, 3.0, *rec.Duration)
	assert.Equal(t, "deepgram", rec.APIUsed)
	name := filerMock.Calls[0].Arguments[1].(string)
	assert.True(t, strings.HasPrefix(name, rec.ID+"/"))
	assert.True(t, strings.HasSuffix(name, ".wav"))
	assert.Equal(t, name, utils.FromSQLStr(rec.AudioURL))
	a := trMock.Calls[0].Arguments[1].(*transcriber.Audio)
	assert.Equal(t, "audio/wav", a.MimeType)
	assert.Equal(t, []string{"uploading", "transcribing", "complete"}, events.states)
	stMock.AssertNumberOfCalls(t, "Create", 1)
}

func TestSubmit_DefaultMime(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	trMock.On("Transcribe", mock.Anything, mock.Anything).Return(&transcriber.Result{Text: "a"}, nil)
	stMock.On("Create", mock.Anything, "u1", mock.Anything).Return(&persistence.Transcription{ID: "1"}, nil)

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio"),
		FileName: "a.unknown"})

	require.Nil(t, err)
	a := trMock.Calls[0].Arguments[1].(*transcriber.Audio)
	assert.Equal(t, "audio/mpeg", a.MimeType)
	assert.True(t, strings.HasSuffix(filerMock.Calls[0].Arguments[1].(string), ".mp3"))
}

func TestSubmit_Validation(t *testing.T) {
	p := initTest(t)

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: " ", MimeType: "text/plain"})

	var ve *api.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"audioData", "mimeType", "title"}, ve.Fields)
	assert.Empty(t, events.states)
	filerMock.AssertNotCalled(t, "SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_Unauthenticated(t *testing.T) {
	p := initTest(t)
	_, err := p.Submit(test.Ctx(t), &Submission{Title: "a", Audio: []byte("a")})
	assert.Equal(t, api.ErrUnauthenticated, err)
}

func TestSubmit_SaveFails(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("olia"))

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio")})

	assert.NotNil(t, err)
	assert.Equal(t, []string{"uploading", "failed"}, events.states)
	trMock.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}

func TestSubmit_OracleFails_NoRecord(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	filerMock.On("Clean", mock.Anything, mock.Anything).Return(nil)
	trMock.On("Transcribe", mock.Anything, mock.Anything).Return(nil, errors.New("network"))

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio")})

	var te *api.TranscriptionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []string{"uploading", "transcribing", "failed"}, events.states)
	assert.Contains(t, events.last.Error, "network")
	stMock.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	trMock.AssertNumberOfCalls(t, "Transcribe", 1)
	filerMock.AssertNumberOfCalls(t, "Clean", 1)
}

func TestSubmit_OracleMessageKept(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	filerMock.On("Clean", mock.Anything, mock.Anything).Return(errors.New("olia"))
	trMock.On("Transcribe", mock.Anything, mock.Anything).Return(nil, api.NewTranscriptionError("corrupt data", nil))

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio")})

	var te *api.TranscriptionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "corrupt data", te.Msg)
}

func TestSubmit_StoreFails(t *testing.T) {
	p := initTest(t)
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	filerMock.On("Clean", mock.Anything, mock.Anything).Return(nil)
	trMock.On("Transcribe", mock.Anything, mock.Anything).Return(&transcriber.Result{Text: "a"}, nil)
	stMock.On("Create", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("db"))

	_, err := p.Submit(test.Ctx(t), &Submission{Owner: "u1", Title: "Test", Audio: []byte("audio")})

	assert.NotNil(t, err)
	assert.Equal(t, "failed", events.states[len(events.states)-1])
	filerMock.AssertNumberOfCalls(t, "Clean", 1)
}

func TestArtifactExt(t *testing.T) {
	assert.Equal(t, ".webm", artifactExt("audio/webm;codecs=opus", "a.ogg"))
	assert.Equal(t, ".ogg", artifactExt("audio/unknown", "a.OGG"))
	assert.Equal(t, ".mp3", artifactExt("", "a.txt"))
}
