package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/quiz"
)

// Store is the single access path to one progress document. It caches the
// document after the first read and writes it back whole on every change.
//
// Two stores on the same key do not coordinate; the last write wins.
type Store struct {
	backend Backend
	key     string

	mu     sync.Mutex
	cached *Progress
}

// NewStore returns a store for the document under key.
func NewStore(b Backend, key string) *Store {
	return &Store{backend: b, key: key}
}

// Key returns the document key.
func (s *Store) Key() string {
	return s.key
}

// Get returns a copy of the current document. A missing or malformed
// document reads as [Zero].
func (s *Store) Get(ctx context.Context) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx)
	if err != nil {
		return Progress{}, err
	}
	return p.Clone(), nil
}

// load fills the cache. The caller holds mu.
func (s *Store) load(ctx context.Context) (Progress, error) {
	if s.cached != nil {
		return *s.cached, nil
	}
	data, err := s.backend.Load(ctx, s.key)
	p := Zero()
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return Progress{}, fmt.Errorf("progress: load %q: %w", s.key, err)
	default:
		var ok bool
		if p, ok = Parse(data); !ok {
			observe.Logger(ctx).Warn("progress document malformed, starting fresh", "key", s.key)
		}
	}
	s.cached = &p
	return p, nil
}

// RecordQuiz merges a finished quiz about figure into the document and
// persists it. It returns the updated document.
func (s *Store) RecordQuiz(ctx context.Context, figure string, r quiz.Result) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx)
	if err != nil {
		return Progress{}, err
	}
	next := Apply(cur, figure, r)

	data, err := json.Marshal(next)
	if err != nil {
		return Progress{}, fmt.Errorf("progress: marshal: %w", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return Progress{}, fmt.Errorf("progress: save %q: %w", s.key, err)
	}
	s.cached = &next
	return next.Clone(), nil
}

// Reset deletes the document. Subsequent reads return [Zero].
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("progress: reset %q: %w", s.key, err)
	}
	z := Zero()
	s.cached = &z
	return nil
}
