// Package progress owns the learner's single persisted progress record.
package progress

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// ErrInvalidScore is returned when an exercise score breaks 0 <= score <= total, total > 0.
var ErrInvalidScore = errors.New("invalid exercise score")

// ExerciseScore is the latest result recorded for one exercise.
type ExerciseScore struct {
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completedAt"`
}

// Validate checks the score bounds.
func (s ExerciseScore) Validate() error {
	if s.Total <= 0 || s.Score < 0 || s.Score > s.Total {
		return fmt.Errorf("%w: %d/%d", ErrInvalidScore, s.Score, s.Total)
	}
	return nil
}

// UserProgress is the persisted aggregate: completed lessons, exercise scores
// and the most recently opened lesson.
type UserProgress struct {
	CompletedLessons []string                 `json:"completedLessons"`
	ExerciseScores   map[string]ExerciseScore `json:"exerciseScores"`
	LastVisited      string                   `json:"lastVisited"`
}

// Default returns the empty record used on first start.
func Default() UserProgress {
	return UserProgress{
		CompletedLessons: []string{},
		ExerciseScores:   map[string]ExerciseScore{},
		LastVisited:      "",
	}
}

// HasCompleted reports whether lessonID is in CompletedLessons.
func (p UserProgress) HasCompleted(lessonID string) bool {
	return slices.Contains(p.CompletedLessons, lessonID)
}

// Score returns the recorded score for an exercise.
func (p UserProgress) Score(exerciseID string) (ExerciseScore, bool) {
	s, ok := p.ExerciseScores[exerciseID]
	return s, ok
}

// Clone returns a deep copy so callers can compose a new list or map without
// aliasing the store's record.
func (p UserProgress) Clone() UserProgress {
	out := UserProgress{
		CompletedLessons: slices.Clone(p.CompletedLessons),
		ExerciseScores:   maps.Clone(p.ExerciseScores),
		LastVisited:      p.LastVisited,
	}
	if out.CompletedLessons == nil {
		out.CompletedLessons = []string{}
	}
	if out.ExerciseScores == nil {
		out.ExerciseScores = map[string]ExerciseScore{}
	}
	return out
}

// Patch is a partial update. A nil field is absent and leaves the stored value
// alone; a present field replaces the stored value wholesale.
type Patch struct {
	CompletedLessons []string
	ExerciseScores   map[string]ExerciseScore
	LastVisited      *string
}

// WithCompletedLesson returns the completed-lessons list with lessonID appended
// unless it is already present.
func (p UserProgress) WithCompletedLesson(lessonID string) []string {
	out := slices.Clone(p.CompletedLessons)
	if !slices.Contains(out, lessonID) {
		out = append(out, lessonID)
	}
	return out
}

// WithExerciseScore returns the full score map with exerciseID set to s,
// replacing any earlier attempt.
func (p UserProgress) WithExerciseScore(exerciseID string, s ExerciseScore) map[string]ExerciseScore {
	out := maps.Clone(p.ExerciseScores)
	if out == nil {
		out = make(map[string]ExerciseScore, 1)
	}
	out[exerciseID] = s
	return out
}

func (p Patch) validate() error {
	for id, s := range p.ExerciseScores {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("exercise %s: %w", id, err)
		}
	}
	return nil
}

// apply merges the patch over p. CompletedLessons is deduplicated.
func (p UserProgress) apply(patch Patch) UserProgress {
	next := p.Clone()
	if patch.CompletedLessons != nil {
		next.CompletedLessons = dedupe(patch.CompletedLessons)
	}
	if patch.ExerciseScores != nil {
		next.ExerciseScores = maps.Clone(patch.ExerciseScores)
	}
	if patch.LastVisited != nil {
		next.LastVisited = *patch.LastVisited
	}
	return next
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
