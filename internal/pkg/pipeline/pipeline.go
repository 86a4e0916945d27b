package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/records"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/google/uuid"
)

// Filer stores raw audio artifacts
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	Clean(ctx context.Context, id string) error
}

// Store persists transcription records
type Store interface {
	Create(ctx context.Context, owner string, in *records.NewRecord) (*persistence.Transcription, error)
}

// Publisher pushes state changes to the owner
type Publisher interface {
	Publish(owner string, ev *api.Event)
}

// Submission is one audio submission
type Submission struct {
	Owner    string
	Title    string
	Audio    []byte
	MimeType string
	FileName string
	Duration *float64
}

// Pipeline runs submissions: uploading -> transcribing -> complete | failed
type Pipeline struct {
	filer       Filer
	transcriber transcriber.Transcriber
	store       Store
	publisher   Publisher
}

// New creates pipeline, publisher may be nil
func New(filer Filer, tr transcriber.Transcriber, store Store, publisher Publisher) (*Pipeline, error) {
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	if tr == nil {
		return nil, fmt.Errorf("no transcriber")
	}
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	return &Pipeline{filer: filer, transcriber: tr, store: store, publisher: publisher}, nil
}

// Submit validates the submission, stores the audio, calls the oracle and persists the record.
// Oracle call is never retried, no record is persisted on failure
func (p *Pipeline) Submit(ctx context.Context, in *Submission) (*persistence.Transcription, error) {
	if in.Owner == "" {
		return nil, api.ErrUnauthenticated
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	sid := uuid.NewString()
	m := status.NewMachine(func(s status.Snapshot) { p.publish(in.Owner, sid, s) })
	if err := m.Begin(); err != nil {
		return nil, err
	}
	res, err := p.run(ctx, m, in)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("submission", sid).Str("owner", in.Owner).Msg("submission failed")
		_ = m.Fail(err)
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, m *status.Machine, in *Submission) (*persistence.Transcription, error) {
	id := uuid.NewString()
	mime := in.MimeType
	if mime == "" {
		mime = utils.MimeByName(in.FileName)
	}
	name, err := utils.MakeArtifactName(id, artifactExt(mime, in.FileName))
	if err != nil {
		return nil, err
	}
	if err := p.filer.SaveFile(ctx, name, bytes.NewReader(in.Audio), int64(len(in.Audio))); err != nil {
		return nil, fmt.Errorf("can't save audio: %w", err)
	}
	if err := m.Transcribing(); err != nil {
		return nil, err
	}
	// the oracle call can't be aborted once the audio is sent
	ctx = context.WithoutCancel(ctx)
	tr, err := p.transcriber.Transcribe(ctx, &transcriber.Audio{Data: in.Audio, MimeType: mime, FileName: in.FileName})
	if err != nil {
		p.cleanArtifact(ctx, id)
		var te *api.TranscriptionError
		if !errors.As(err, &te) {
			err = api.NewTranscriptionError("", err)
		}
		return nil, err
	}
	res, err := p.store.Create(ctx, in.Owner, &records.NewRecord{ID: id, Title: in.Title, Content: tr.Text,
		APIUsed: tr.APIUsed, Duration: in.Duration, AudioURL: name})
	if err != nil {
		p.cleanArtifact(ctx, id)
		return nil, fmt.Errorf("can't save transcription: %w", err)
	}
	if err := m.Complete(res.ID); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) cleanArtifact(ctx context.Context, id string) {
	ctx, cf := context.WithTimeout(ctx, 10*time.Second)
	defer cf()
	if err := p.filer.Clean(ctx, id); err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("can't clean audio")
	}
}

func (p *Pipeline) publish(owner, sid string, s status.Snapshot) {
	goapp.Log.Info().Str("submission", sid).Str("state", s.Status.String()).Msg("state")
	if p.publisher == nil {
		return
	}
	ev := &api.Event{ID: sid, State: s.Status.String(), TranscriptionID: s.TranscriptionID, At: time.Now()}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	p.publisher.Publish(owner, ev)
}

func validate(in *Submission) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, api.PrmTitle)
	}
	if len(in.Audio) == 0 {
		missing = append(missing, api.PrmAudio)
	}
	if in.MimeType != "" && !utils.IsAudioMime(in.MimeType) {
		missing = append(missing, api.PrmMimeType)
	}
	if in.Duration != nil && *in.Duration < 0 {
		missing = append(missing, api.PrmDuration)
	}
	return api.NewValidationError(missing...)
}

func artifactExt(mime, fileName string) string {
	if res := utils.ExtByMime(mime); res != "" {
		return res
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); utils.SupportAudioExt(ext) {
		return ext
	}
	return ".mp3"
}
