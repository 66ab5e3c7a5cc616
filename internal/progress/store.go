package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultKey is the well-known key the record is stored under.
const DefaultKey = "userProgress"

// Backend is a key-value store holding the serialized record as one blob.
type Backend interface {
	// Get returns the blob for key; found is false when nothing is stored.
	Get(ctx context.Context, key string) (blob []byte, found bool, err error)
	Put(ctx context.Context, key string, blob []byte) error
}

// Store owns the in-process copy of the record and writes it through to a
// Backend on every update. One Store per learner profile.
type Store struct {
	backend Backend
	key     string
	current UserProgress
	mu      sync.Mutex
}

// NewStore creates a store over backend. An empty key selects DefaultKey.
// The record starts at Default until Load is called.
func NewStore(backend Backend, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		backend: backend,
		key:     key,
		current: Default(),
	}
}

// Load reads the persisted record. A missing, unreadable or malformed blob
// yields the default record; the failure is logged, never returned.
func (s *Store) Load(ctx context.Context) UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.read(ctx)
	return s.current.Clone()
}

func (s *Store) read(ctx context.Context) UserProgress {
	blob, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		slog.Warn("failed to read progress, starting fresh", "key", s.key, "error", err)
		return Default()
	}
	if !found {
		slog.Info("no saved progress, starting fresh", "key", s.key)
		return Default()
	}

	p, err := Decode(blob)
	if err != nil {
		slog.Warn("failed to parse progress, starting fresh", "key", s.key, "error", err)
		return Default()
	}

	slog.Info("progress loaded",
		"key", s.key,
		"completed_lessons", len(p.CompletedLessons),
		"exercise_scores", len(p.ExerciseScores),
	)
	return p
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Update merges patch over the current record and writes the result through
// before returning. A patch carrying an invalid score is rejected untouched.
// If the write fails the in-process record still holds the merge and the
// error is returned, so the learner can carry on and the next update retries
// the whole record.
func (s *Store) Update(ctx context.Context, patch Patch) (UserProgress, error) {
	if err := patch.validate(); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.current.apply(patch)
	next := s.current.Clone()

	blob, err := Encode(next)
	if err != nil {
		return next, err
	}
	if err := s.backend.Put(ctx, s.key, blob); err != nil {
		return next, fmt.Errorf("saving progress: %w", err)
	}
	return next, nil
}

// Check reports whether the backend can be read.
func (s *Store) Check(ctx context.Context) error {
	if _, _, err := s.backend.Get(ctx, s.key); err != nil {
		return fmt.Errorf("progress backend: %w", err)
	}
	return nil
}
