package records

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/airenas/scribe/internal/pkg/test/mocks"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memDB keeps records in memory with the same ownership rules as postgres.DB
type memDB struct {
	lock  sync.Mutex
	items map[string]persistence.Transcription
}

func newMemDB() *memDB {
	return &memDB{items: map[string]persistence.Transcription{}}
}

func (m *memDB) InsertTranscription(ctx context.Context, item *persistence.Transcription) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *memDB) LoadTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	res, ok := m.items[id]
	if !ok || res.UserID != owner {
		return nil, api.ErrNotFound
	}
	return &res, nil
}

func (m *memDB) ListTranscriptions(ctx context.Context, owner string) ([]*persistence.Transcription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := []*persistence.Transcription{}
	for _, v := range m.items {
		if v.UserID == owner {
			c := v
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	return res, nil
}

func (m *memDB) UpdateTranscription(ctx context.Context, id, owner string, upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	res, ok := m.items[id]
	if !ok || res.UserID != owner {
		return nil, api.ErrNotFound
	}
	if upd.Title != nil {
		res.Title = *upd.Title
	}
	if upd.Content != nil {
		res.Content = *upd.Content
	}
	m.items[id] = res
	return &res, nil
}

func (m *memDB) DeleteTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	res, ok := m.items[id]
	if !ok || res.UserID != owner {
		return nil, api.ErrNotFound
	}
	delete(m.items, id)
	return &res, nil
}

func initTest(t *testing.T) (*Service, *mocks.Sender) {
	t.Helper()
	sender := &mocks.Sender{}
	s, err := NewService(newMemDB(), sender)
	require.Nil(t, err)
	tm := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tm = tm.Add(time.Second)
		return tm
	}
	return s, sender
}

func fp(v float64) *float64 {
	return &v
}

func sp(v string) *string {
	return &v
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, &mocks.Sender{})
	assert.NotNil(t, err)
	_, err = NewService(newMemDB(), nil)
	assert.NotNil(t, err)
}

func TestCreateGet_RoundTrip(t *testing.T) {
	s, _ := initTest(t)

	r, err := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "Test", Content: "hello world", APIUsed: "deepgram",
		Duration: fp(3)})
	require.Nil(t, err)
	assert.NotEmpty(t, r.ID)

	g, err := s.Get(test.Ctx(t), r.ID, "u1")
	require.Nil(t, err)
	assert.Equal(t, "Test", g.Title)
	assert.Equal(t, "hello world", g.Content)
	assert.Equal(t, 3.0, *g.Duration)
	assert.Equal(t, "deepgram", g.APIUsed)
}

func TestCreate_Defaults(t *testing.T) {
	s, _ := initTest(t)

	r, err := s.Create(test.Ctx(t), "u1", &NewRecord{Title: " T ", Content: "c"})

	require.Nil(t, err)
	assert.Equal(t, "T", r.Title)
	assert.Equal(t, api.APITagManual, r.APIUsed)
	assert.Nil(t, r.Duration)
	assert.Equal(t, r.Created, r.Updated)
}

func TestCreate_Fails(t *testing.T) {
	s, _ := initTest(t)
	_, err := s.Create(test.Ctx(t), "", &NewRecord{Title: "T"})
	assert.Equal(t, api.ErrUnauthenticated, err)

	_, err = s.Create(test.Ctx(t), "u1", &NewRecord{Title: " "})
	var ve *api.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"title"}, ve.Fields)

	_, err = s.Create(test.Ctx(t), "u1", &NewRecord{Title: "a", Duration: fp(-1)})
	assert.True(t, errors.As(err, &ve))
}

func TestGet_NotFound(t *testing.T) {
	s, _ := initTest(t)
	_, err := s.Get(test.Ctx(t), "olia", "u1")
	assert.Equal(t, api.ErrNotFound, err)
	_, err = s.Get(test.Ctx(t), "2f6d1f7c-1f0e-4a44-9d55-2f0a0c6a3c11", "u1")
	assert.Equal(t, api.ErrNotFound, err)
	_, err = s.Get(test.Ctx(t), "2f6d1f7c-1f0e-4a44-9d55-2f0a0c6a3c11", "")
	assert.Equal(t, api.ErrUnauthenticated, err)
}

func TestUpdate_OnlyTitle(t *testing.T) {
	s, _ := initTest(t)
	r, err := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "T", Content: "c", Duration: fp(2)})
	require.Nil(t, err)

	u, err := s.Update(test.Ctx(t), r.ID, "u1", &persistence.TranscriptionUpdate{Title: sp("T2")})

	require.Nil(t, err)
	assert.Equal(t, "T2", u.Title)
	assert.Equal(t, "c", u.Content)
	assert.Equal(t, 2.0, *u.Duration)
}

func TestUpdate_Fails(t *testing.T) {
	s, _ := initTest(t)
	r, err := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "T"})
	require.Nil(t, err)

	_, err = s.Update(test.Ctx(t), r.ID, "u2", &persistence.TranscriptionUpdate{Title: sp("T2")})
	assert.Equal(t, api.ErrNotFound, err)

	var ve *api.ValidationError
	_, err = s.Update(test.Ctx(t), r.ID, "u1", &persistence.TranscriptionUpdate{Title: sp("")})
	assert.True(t, errors.As(err, &ve))

	u, err := s.Update(test.Ctx(t), r.ID, "u1", &persistence.TranscriptionUpdate{})
	require.Nil(t, err)
	assert.Equal(t, "T", u.Title)
}

func TestList_OwnershipAndOrder(t *testing.T) {
	s, _ := initTest(t)
	r1, _ := s.Create(test.Ctx(t), "a", &NewRecord{Title: "1"})
	r2, _ := s.Create(test.Ctx(t), "a", &NewRecord{Title: "2"})
	_, _ = s.Create(test.Ctx(t), "b", &NewRecord{Title: "3"})

	la, err := s.List(test.Ctx(t), "a")
	require.Nil(t, err)
	require.Equal(t, 2, len(la))
	assert.Equal(t, r2.ID, la[0].ID)
	assert.Equal(t, r1.ID, la[1].ID)

	lc, err := s.List(test.Ctx(t), "c")
	require.Nil(t, err)
	assert.Empty(t, lc)

	_, err = s.List(test.Ctx(t), "")
	assert.Equal(t, api.ErrUnauthenticated, err)
}

func TestDelete(t *testing.T) {
	s, sender := initTest(t)
	sender.On("SendMessage", mock.Anything, mock.Anything, messages.CleanAudio).Return(nil)
	r, _ := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "1", AudioURL: "/api/transcriptions/x/audio"})

	err := s.Delete(test.Ctx(t), r.ID, "u1")

	require.Nil(t, err)
	_, err = s.Get(test.Ctx(t), r.ID, "u1")
	assert.Equal(t, api.ErrNotFound, err)
	sender.AssertNumberOfCalls(t, "SendMessage", 1)
	msg := sender.Calls[0].Arguments[1].(*messages.CleanMessage)
	assert.Equal(t, r.ID, msg.ID)
	assert.Equal(t, "u1", msg.Owner)
}

func TestDelete_SenderFails_StillDeletes(t *testing.T) {
	s, sender := initTest(t)
	sender.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("olia"))
	r, _ := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "1", AudioURL: "/a"})

	err := s.Delete(test.Ctx(t), r.ID, "u1")

	assert.Nil(t, err)
	_, err = s.Get(test.Ctx(t), r.ID, "u1")
	assert.Equal(t, api.ErrNotFound, err)
}

func TestDelete_NoAudio_NoMessage(t *testing.T) {
	s, sender := initTest(t)
	r, _ := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "1"})

	err := s.Delete(test.Ctx(t), r.ID, "u1")

	assert.Nil(t, err)
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_Foreign(t *testing.T) {
	s, _ := initTest(t)
	r, _ := s.Create(test.Ctx(t), "u1", &NewRecord{Title: "1"})

	err := s.Delete(test.Ctx(t), r.ID, "u2")

	assert.Equal(t, api.ErrNotFound, err)
	g, err := s.Get(test.Ctx(t), r.ID, "u1")
	require.Nil(t, err)
	assert.Equal(t, utils.ToSQLStr(""), g.AudioURL)
}
