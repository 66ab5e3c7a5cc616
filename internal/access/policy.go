// Package access derives lock, gating and completion state from the curriculum
// and the learner's progress. Everything here is recomputed on every call.
package access

import (
	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

// FreeLessons is how many completed lessons lift the premium gate.
const FreeLessons = 2

// TopicCompletion returns the rounded share of the topic's lessons completed.
// A topic without lessons is 0% complete.
func TopicCompletion(t content.Topic, p progress.UserProgress) int {
	done := 0
	for _, l := range t.Lessons {
		if p.HasCompleted(l.ID) {
			done++
		}
	}
	return assessment.Percent(done, len(t.Lessons))
}

// GradeCompletion is TopicCompletion over every lesson of every topic in the grade.
func GradeCompletion(g content.Grade, p progress.UserProgress) int {
	done, total := 0, 0
	for _, t := range g.Topics {
		total += len(t.Lessons)
		for _, l := range t.Lessons {
			if p.HasCompleted(l.ID) {
				done++
			}
		}
	}
	return assessment.Percent(done, total)
}

// IsLessonLocked reports whether the lesson at index waits on its predecessor.
// The first lesson is never locked. An index past the end is locked.
func IsLessonLocked(t content.Topic, index int, p progress.UserProgress) bool {
	if index <= 0 {
		return false
	}
	if index >= len(t.Lessons) {
		return true
	}
	return !p.HasCompleted(t.Lessons[index-1].ID)
}

// IsPremiumGated reports whether a premium lesson is still held back because
// fewer than FreeLessons lessons are completed.
func IsPremiumGated(l content.LessonSummary, p progress.UserProgress) bool {
	return l.IsPremium && len(p.CompletedLessons) < FreeLessons
}

// State is one of the three mutually exclusive lesson states.
type State string

const (
	StateLocked       State = "locked"
	StatePremiumGated State = "premium"
	StateAvailable    State = "available"
)

// Availability is a lesson's effective state. Completed is only meaningful
// when the lesson is available.
type Availability struct {
	State     State `json:"state"`
	Completed bool  `json:"completed"`
}

// Open reports whether the lesson may be started.
func (a Availability) Open() bool { return a.State == StateAvailable }

// LessonAvailability combines the sequential lock and the premium gate for
// the lesson at index. The lock takes precedence and an index outside the
// topic is locked.
func LessonAvailability(t content.Topic, index int, p progress.UserProgress) Availability {
	if index < 0 || index >= len(t.Lessons) || IsLessonLocked(t, index, p) {
		return Availability{State: StateLocked}
	}
	if IsPremiumGated(t.Lessons[index], p) {
		return Availability{State: StatePremiumGated}
	}
	return Availability{
		State:     StateAvailable,
		Completed: p.HasCompleted(t.Lessons[index].ID),
	}
}

// ContinueLesson locates the last visited lesson. ok is false when nothing was
// visited or the id is no longer in the curriculum.
func ContinueLesson(c content.Curriculum, p progress.UserProgress) (content.Location, bool) {
	return c.FindLesson(p.LastVisited)
}

// BestScore returns the strongest recorded result among exerciseIDs, by
// percentage and then by recency.
func BestScore(p progress.UserProgress, exerciseIDs []string) (progress.ExerciseScore, bool) {
	var (
		best  progress.ExerciseScore
		found bool
	)
	for _, id := range exerciseIDs {
		s, ok := p.Score(id)
		if !ok {
			continue
		}
		if !found || better(s, best) {
			best, found = s, true
		}
	}
	return best, found
}

func better(a, b progress.ExerciseScore) bool {
	pa, pb := assessment.Percent(a.Score, a.Total), assessment.Percent(b.Score, b.Total)
	if pa != pb {
		return pa > pb
	}
	return a.CompletedAt.After(b.CompletedAt)
}
