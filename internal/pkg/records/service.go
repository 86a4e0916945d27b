package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/google/uuid"
)

// DB keeps owner scoped transcription records
type DB interface {
	InsertTranscription(ctx context.Context, item *persistence.Transcription) error
	LoadTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error)
	ListTranscriptions(ctx context.Context, owner string) ([]*persistence.Transcription, error)
	UpdateTranscription(ctx context.Context, id, owner string, upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error)
	DeleteTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// NewRecord is the input for Create
type NewRecord struct {
	// ID is optional, generated if empty
	ID       string
	Title    string
	Content  string
	APIUsed  string
	Duration *float64
	AudioURL string
}

// Service is the server side transcription store
type Service struct {
	db     DB
	sender MsgSender
	now    func() time.Time
}

// NewService creates records service
func NewService(db DB, sender MsgSender) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if sender == nil {
		return nil, fmt.Errorf("no msg sender")
	}
	return &Service{db: db, sender: sender, now: time.Now}, nil
}

// List returns owner's records, newest first
func (s *Service) List(ctx context.Context, owner string) ([]*persistence.Transcription, error) {
	if owner == "" {
		return nil, api.ErrUnauthenticated
	}
	return s.db.ListTranscriptions(ctx, owner)
}

// Get returns owner's record, api.ErrNotFound if there is no such
func (s *Service) Get(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	if owner == "" {
		return nil, api.ErrUnauthenticated
	}
	if !validID(id) {
		return nil, api.ErrNotFound
	}
	return s.db.LoadTranscription(ctx, id, owner)
}

// Create inserts a new record
func (s *Service) Create(ctx context.Context, owner string, in *NewRecord) (*persistence.Transcription, error) {
	if owner == "" {
		return nil, api.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, api.NewValidationError(api.PrmTitle)
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, api.NewValidationError(api.PrmDuration)
	}
	now := s.now()
	res := &persistence.Transcription{ID: in.ID, UserID: owner, Title: title, Content: in.Content,
		APIUsed: in.APIUsed, AudioURL: utils.ToSQLStr(in.AudioURL), Duration: in.Duration, Created: now, Updated: now}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.APIUsed == "" {
		res.APIUsed = api.APITagManual
	}
	if err := s.db.InsertTranscription(ctx, res); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("ID", res.ID).Str("owner", owner).Str("api", res.APIUsed).Msg("created")
	return res, nil
}

// Update changes only provided fields
func (s *Service) Update(ctx context.Context, id, owner string, upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error) {
	if owner == "" {
		return nil, api.ErrUnauthenticated
	}
	if !validID(id) {
		return nil, api.ErrNotFound
	}
	if upd == nil || upd.Empty() {
		return s.db.LoadTranscription(ctx, id, owner)
	}
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, api.NewValidationError(api.PrmTitle)
		}
		upd.Title = &t
	}
	return s.db.UpdateTranscription(ctx, id, owner, upd)
}

// Delete removes the record and schedules removal of its audio.
// Failure to schedule is only logged
func (s *Service) Delete(ctx context.Context, id, owner string) error {
	if owner == "" {
		return api.ErrUnauthenticated
	}
	if !validID(id) {
		return api.ErrNotFound
	}
	res, err := s.db.DeleteTranscription(ctx, id, owner)
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("ID", id).Str("owner", owner).Msg("deleted")
	if audio := utils.FromSQLStr(res.AudioURL); audio != "" {
		if err := s.sender.SendMessage(ctx, messages.NewCleanMessage(id, owner, audio), messages.CleanAudio); err != nil {
			goapp.Log.Error().Err(err).Str("ID", id).Msg("can't schedule audio removal")
		}
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
