package mocks

import (
	"context"
	"io"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/identity"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

// SaveFile func mock
func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	args := m.Called(ctx, name, r, size)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// Clean func mock
func (m *Filer) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertTranscription(ctx context.Context, item *persistence.Transcription) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	args := m.Called(ctx, id, owner)
	return to[*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) ListTranscriptions(ctx context.Context, owner string) ([]*persistence.Transcription, error) {
	args := m.Called(ctx, owner)
	return to[[]*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateTranscription(ctx context.Context, id, owner string, upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error) {
	args := m.Called(ctx, id, owner, upd)
	return to[*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) DeleteTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	args := m.Called(ctx, id, owner)
	return to[*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) InsertProfile(ctx context.Context, item *persistence.Profile) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadProfile(ctx context.Context, id string) (*persistence.Profile, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Profile](args.Get(0)), args.Error(1)
}

func (m *DB) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is oracle mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audio *transcriber.Audio) (*transcriber.Result, error) {
	args := m.Called(ctx, audio)
	return to[*transcriber.Result](args.Get(0)), args.Error(1)
}

// IdentityProvider is identity service mock
type IdentityProvider struct{ mock.Mock }

func (m *IdentityProvider) SignUp(ctx context.Context, email, password, fullName string) (*identity.Session, error) {
	args := m.Called(ctx, email, password, fullName)
	return to[*identity.Session](args.Get(0)), args.Error(1)
}

func (m *IdentityProvider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	return to[*identity.Session](args.Get(0)), args.Error(1)
}

func (m *IdentityProvider) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *IdentityProvider) User(ctx context.Context, token string) (*persistence.Identity, error) {
	args := m.Called(ctx, token)
	return to[*persistence.Identity](args.Get(0)), args.Error(1)
}

func (m *IdentityProvider) Resend(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *IdentityProvider) Recover(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *IdentityProvider) UpdatePassword(ctx context.Context, token, password string) (*persistence.Identity, error) {
	args := m.Called(ctx, token, password)
	return to[*persistence.Identity](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	var res T
	if val == nil {
		return res
	}
	return val.(T)
}
