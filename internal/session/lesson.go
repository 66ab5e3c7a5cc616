package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

// DestinationKind says where the learner goes after completing a lesson.
type DestinationKind string

const (
	DestinationExercise DestinationKind = "exercise"
	DestinationTopic    DestinationKind = "topic"
	DestinationHome     DestinationKind = "home"
)

// Destination is the follow-up action of a completed lesson.
type Destination struct {
	Kind DestinationKind `json:"kind"`
	ID   string          `json:"id,omitempty"`
}

// ExerciseFinder looks up the exercise attached to a lesson.
type ExerciseFinder interface {
	ExerciseForLesson(ctx context.Context, lessonID string) (content.Exercise, error)
}

// LessonConfig holds dependencies for a lesson session.
type LessonConfig struct {
	Lesson    content.Lesson
	Store     Recorder
	Exercises ExerciseFinder // optional
	// TopicID is the topic the lesson was opened from. When set, completing a
	// lesson without an exercise returns to the topic instead of home.
	TopicID string
}

// Lesson steps through a lesson's sections. Reaching the last section does
// not complete the lesson; Complete does.
type Lesson struct {
	lesson     content.Lesson
	store      Recorder
	topicID    string
	exerciseID string

	index     int
	completed bool
}

// NewLesson opens a lesson at its first section and records it as the
// learner's last visited lesson. The attached exercise is looked up once here.
func NewLesson(ctx context.Context, cfg LessonConfig) (*Lesson, error) {
	if len(cfg.Lesson.Sections) == 0 {
		return nil, ErrNoSections
	}

	l := &Lesson{
		lesson:  cfg.Lesson,
		store:   cfg.Store,
		topicID: cfg.TopicID,
	}

	if cfg.Exercises != nil {
		ex, err := cfg.Exercises.ExerciseForLesson(ctx, cfg.Lesson.ID)
		switch {
		case err == nil:
			l.exerciseID = ex.ID
		case !errors.Is(err, content.ErrNotFound):
			slog.Warn("exercise lookup failed", "lesson_id", cfg.Lesson.ID, "error", err)
		}
	}

	if l.store != nil {
		id := cfg.Lesson.ID
		if _, err := l.store.Update(ctx, progress.Patch{LastVisited: &id}); err != nil {
			slog.Error("failed to record last visited lesson", "lesson_id", id, "error", err)
		}
	}

	return l, nil
}

// Next moves to the following section. Ignored on the last section.
func (l *Lesson) Next() bool {
	if l.completed || l.index >= len(l.lesson.Sections)-1 {
		return false
	}
	l.index++
	return true
}

// Previous moves to the preceding section. Ignored on the first section.
func (l *Lesson) Previous() bool {
	if l.completed || l.index == 0 {
		return false
	}
	l.index--
	return true
}

// Complete marks the lesson completed and says where to go next. The lesson id
// is added to the completed list at most once. Ignored after the first call.
func (l *Lesson) Complete(ctx context.Context) (Destination, bool) {
	if l.completed {
		return l.destination(), false
	}
	l.completed = true

	if l.store != nil {
		completed := l.store.Snapshot().WithCompletedLesson(l.lesson.ID)
		if _, err := l.store.Update(ctx, progress.Patch{CompletedLessons: completed}); err != nil {
			slog.Error("failed to record lesson completion", "lesson_id", l.lesson.ID, "error", err)
		} else {
			slog.Info("lesson completed", "lesson_id", l.lesson.ID)
		}
	}

	return l.destination(), true
}

func (l *Lesson) destination() Destination {
	switch {
	case l.exerciseID != "":
		return Destination{Kind: DestinationExercise, ID: l.exerciseID}
	case l.topicID != "":
		return Destination{Kind: DestinationTopic, ID: l.topicID}
	default:
		return Destination{Kind: DestinationHome}
	}
}

// Completed reports whether Complete has been called.
func (l *Lesson) Completed() bool { return l.completed }

// LessonView is what the presentation layer renders.
type LessonView struct {
	LessonID    string          `json:"lesson_id"`
	Title       string          `json:"title"`
	Index       int             `json:"index"`
	Total       int             `json:"total"`
	Progress    int             `json:"progress"`
	Section     content.Section `json:"section"`
	HasPrevious bool            `json:"has_previous"`
	HasNext     bool            `json:"has_next"`
	ExerciseID  string          `json:"exercise_id,omitempty"`
	Completed   bool            `json:"completed"`
	Destination *Destination    `json:"destination,omitempty"`
}

// View returns the current state for rendering.
func (l *Lesson) View() LessonView {
	total := len(l.lesson.Sections)
	v := LessonView{
		LessonID:    l.lesson.ID,
		Title:       l.lesson.Title,
		Index:       l.index,
		Total:       total,
		Progress:    assessment.Percent(l.index+1, total),
		Section:     l.lesson.Sections[l.index],
		HasPrevious: l.index > 0,
		HasNext:     l.index < total-1,
		ExerciseID:  l.exerciseID,
		Completed:   l.completed,
	}
	if l.completed {
		d := l.destination()
		v.Destination = &d
	}
	return v
}
