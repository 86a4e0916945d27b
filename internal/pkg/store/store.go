package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/airenas/scribe/internal/pkg/api"
)

// Remote is the relay records API
type Remote interface {
	List(ctx context.Context) ([]*api.Transcription, error)
	Get(ctx context.Context, id string) (*api.Transcription, error)
	Create(ctx context.Context, in *api.CreateRequest, progress func(sent, total int64)) (*api.Transcription, error)
	Update(ctx context.Context, id string, in *api.UpdateRequest) (*api.Transcription, error)
	Delete(ctx context.Context, id string) error
}

// Store is a client cache of the user's records.
// The cache is patched only after the remote call succeeds.
type Store struct {
	remote Remote

	lock  sync.RWMutex
	items []*api.Transcription
}

// New creates empty store
func New(remote Remote) (*Store, error) {
	if remote == nil {
		return nil, fmt.Errorf("no remote")
	}
	return &Store{remote: remote}, nil
}

// List loads all records, newest first
func (s *Store) List(ctx context.Context) ([]*api.Transcription, error) {
	res, err := s.remote.List(ctx)
	if err != nil {
		return nil, err
	}
	items := append([]*api.Transcription{}, res...)
	sortItems(items)
	s.lock.Lock()
	s.items = items
	s.lock.Unlock()
	return s.Cached(), nil
}

// Cached returns the local copy without calling the relay
func (s *Store) Cached() []*api.Transcription {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]*api.Transcription{}, s.items...)
}

// Get loads one record
func (s *Store) Get(ctx context.Context, id string) (*api.Transcription, error) {
	res, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(res)
	return res, nil
}

// Create stores a record without audio, apiTag defaults to manual on the relay
func (s *Store) Create(ctx context.Context, title, content, apiTag string, duration *float64) (*api.Transcription, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, api.NewValidationError(api.PrmTitle)
	}
	return s.Submit(ctx, &api.CreateRequest{Title: title, Content: content, APIUsed: apiTag, Duration: duration}, nil)
}

// Submit sends the create request as is and caches the created record
func (s *Store) Submit(ctx context.Context, in *api.CreateRequest, progress func(sent, total int64)) (*api.Transcription, error) {
	res, err := s.remote.Create(ctx, in, progress)
	if err != nil {
		return nil, err
	}
	s.put(res)
	return res, nil
}

// Update changes only the not nil fields
func (s *Store) Update(ctx context.Context, id string, title, content *string) (*api.Transcription, error) {
	if title != nil && strings.TrimSpace(*title) == "" {
		return nil, api.NewValidationError(api.PrmTitle)
	}
	res, err := s.remote.Update(ctx, id, &api.UpdateRequest{Title: title, Content: content})
	if err != nil {
		return nil, err
	}
	s.put(res)
	return res, nil
}

// Delete removes the record
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) put(t *api.Transcription) {
	s.lock.Lock()
	defer s.lock.Unlock()
	items := make([]*api.Transcription, 0, len(s.items)+1)
	items = append(items, t)
	for _, it := range s.items {
		if it.ID != t.ID {
			items = append(items, it)
		}
	}
	sortItems(items)
	s.items = items
}

func sortItems(items []*api.Transcription) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
