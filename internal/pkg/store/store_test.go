package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type remoteMock struct {
	mock.Mock
}

func (m *remoteMock) List(ctx context.Context) ([]*api.Transcription, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]*api.Transcription)
	return res, args.Error(1)
}

func (m *remoteMock) Get(ctx context.Context, id string) (*api.Transcription, error) {
	args := m.Called(ctx, id)
	return tr(args.Get(0)), args.Error(1)
}

func (m *remoteMock) Create(ctx context.Context, in *api.CreateRequest, progress func(sent, total int64)) (*api.Transcription, error) {
	args := m.Called(ctx, in)
	return tr(args.Get(0)), args.Error(1)
}

func (m *remoteMock) Update(ctx context.Context, id string, in *api.UpdateRequest) (*api.Transcription, error) {
	args := m.Called(ctx, id, in)
	return tr(args.Get(0)), args.Error(1)
}

func (m *remoteMock) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func tr(v interface{}) *api.Transcription {
	res, _ := v.(*api.Transcription)
	return res
}

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func rec(id string, min int) *api.Transcription {
	return &api.Transcription{ID: id, Title: "t" + id, CreatedAt: base.Add(time.Duration(min) * time.Minute)}
}

func ids(items []*api.Transcription) []string {
	res := []string{}
	for _, it := range items {
		res = append(res, it.ID)
	}
	return res
}

func newTestStore(t *testing.T) (*Store, *remoteMock) {
	t.Helper()
	rm := &remoteMock{}
	s, err := New(rm)
	require.Nil(t, err)
	return s, rm
}

func loaded(t *testing.T) (*Store, *remoteMock) {
	t.Helper()
	s, rm := newTestStore(t)
	rm.On("List", mock.Anything).Return([]*api.Transcription{rec("1", 1), rec("3", 3), rec("2", 2)}, nil).Once()
	_, err := s.List(test.Ctx(t))
	require.Nil(t, err)
	return s, rm
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.NotNil(t, err)
}

func TestList_Sorted(t *testing.T) {
	s, _ := loaded(t)
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Cached()))
}

func TestList_Fail_KeepsCache(t *testing.T) {
	s, rm := loaded(t)
	rm.On("List", mock.Anything).Return(nil, errors.New("olia"))
	_, err := s.List(test.Ctx(t))
	assert.NotNil(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Cached()))
}

func TestCreate(t *testing.T) {
	s, rm := loaded(t)
	d := 3.0
	rm.On("Create", mock.Anything, &api.CreateRequest{Title: "Test", Content: "hello world", APIUsed: "manual", Duration: &d}).
		Return(rec("4", 4), nil)
	res, err := s.Create(test.Ctx(t), " Test ", "hello world", "manual", &d)
	require.Nil(t, err)
	assert.Equal(t, "4", res.ID)
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(s.Cached()))
}

func TestCreate_EmptyContent(t *testing.T) {
	s, rm := loaded(t)
	rm.On("Create", mock.Anything, &api.CreateRequest{Title: "Test", APIUsed: "manual"}).Return(rec("4", 4), nil)
	res, err := s.Create(test.Ctx(t), "Test", "", "manual", nil)
	require.Nil(t, err)
	assert.Equal(t, "4", res.ID)
	in := rm.Calls[len(rm.Calls)-1].Arguments[1].(*api.CreateRequest)
	assert.Equal(t, "", in.AudioData)
	assert.Equal(t, "", in.Content)
}

func TestCreate_Validation(t *testing.T) {
	s, rm := loaded(t)
	_, err := s.Create(test.Ctx(t), " ", "hello", "", nil)
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	rm.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_Fail_KeepsCache(t *testing.T) {
	s, rm := loaded(t)
	rm.On("Create", mock.Anything, mock.Anything).Return(nil, api.NewTranscriptionError("bad", nil))
	_, err := s.Submit(test.Ctx(t), &api.CreateRequest{Title: "a", AudioData: "AA=="}, nil)
	assert.NotNil(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Cached()))
}

func TestUpdate(t *testing.T) {
	s, rm := loaded(t)
	title := "new"
	upd := rec("2", 2)
	upd.Title = "new"
	rm.On("Update", mock.Anything, "2", &api.UpdateRequest{Title: &title}).Return(upd, nil)
	res, err := s.Update(test.Ctx(t), "2", &title, nil)
	require.Nil(t, err)
	assert.Equal(t, "new", res.Title)
	c := s.Cached()
	assert.Equal(t, []string{"3", "2", "1"}, ids(c))
	assert.Equal(t, "new", c[1].Title)
}

func TestUpdate_Fail_KeepsCache(t *testing.T) {
	s, rm := loaded(t)
	title := "new"
	rm.On("Update", mock.Anything, "2", mock.Anything).Return(nil, api.ErrNotFound)
	_, err := s.Update(test.Ctx(t), "2", &title, nil)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "t2", s.Cached()[1].Title)

	empty := ""
	_, err = s.Update(test.Ctx(t), "2", &empty, nil)
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDelete(t *testing.T) {
	s, rm := loaded(t)
	before := s.Cached()
	rm.On("Delete", mock.Anything, "2").Return(nil)
	require.Nil(t, s.Delete(test.Ctx(t), "2"))
	assert.Equal(t, []string{"3", "1"}, ids(s.Cached()))
	assert.Equal(t, []string{"3", "2", "1"}, ids(before))

	rm.On("Get", mock.Anything, "2").Return(nil, api.ErrNotFound)
	_, err := s.Get(test.Ctx(t), "2")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDelete_Fail_KeepsCache(t *testing.T) {
	s, rm := loaded(t)
	rm.On("Delete", mock.Anything, "2").Return(errors.New("olia"))
	assert.NotNil(t, s.Delete(test.Ctx(t), "2"))
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Cached()))
}

func TestGet_Puts(t *testing.T) {
	s, rm := newTestStore(t)
	rm.On("Get", mock.Anything, "5").Return(rec("5", 5), nil)
	res, err := s.Get(test.Ctx(t), "5")
	require.Nil(t, err)
	assert.Equal(t, "5", res.ID)
	assert.Equal(t, []string{"5"}, ids(s.Cached()))
}
