package content

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNotFound is returned when a content id does not resolve.
var ErrNotFound = errors.New("content not found")

// Source resolves lesson and exercise bodies by id.
type Source interface {
	Lesson(ctx context.Context, id string) (Lesson, error)
	Exercise(ctx context.Context, id string) (Exercise, error)
	ExerciseForLesson(ctx context.Context, lessonID string) (Exercise, error)
}

// Registry is an in-memory catalog of curriculum, lessons and exercises.
type Registry struct {
	curriculum Curriculum
	lessons    map[string]Lesson
	exercises  map[string]Exercise
	// registration order, used to pick the first exercise for a lesson
	exerciseIDs []string
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lessons:   make(map[string]Lesson),
		exercises: make(map[string]Exercise),
	}
}

// SetCurriculum replaces the curriculum hierarchy.
func (r *Registry) SetCurriculum(c Curriculum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.curriculum = c
}

// AddLesson registers a lesson body. A later lesson with the same id replaces the earlier one.
func (r *Registry) AddLesson(l Lesson) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.lessons[l.ID]; dup {
		slog.Warn("duplicate lesson id, replacing", "lesson_id", l.ID)
	}
	r.lessons[l.ID] = l
}

// AddExercise registers an exercise body.
func (r *Registry) AddExercise(e Exercise) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.exercises[e.ID]; dup {
		slog.Warn("duplicate exercise id, replacing", "exercise_id", e.ID)
	} else {
		r.exerciseIDs = append(r.exerciseIDs, e.ID)
	}
	r.exercises[e.ID] = e
}

// Curriculum returns the curriculum hierarchy.
func (r *Registry) Curriculum() Curriculum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curriculum
}

func (r *Registry) Lesson(_ context.Context, id string) (Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lessons[id]
	if !ok {
		return Lesson{}, ErrNotFound
	}
	return l, nil
}

func (r *Registry) Exercise(_ context.Context, id string) (Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exercises[id]
	if !ok {
		return Exercise{}, ErrNotFound
	}
	return e, nil
}

// ExerciseForLesson returns the first registered exercise attached to lessonID.
func (r *Registry) ExerciseForLesson(_ context.Context, lessonID string) (Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.exerciseIDs {
		if e := r.exercises[id]; e.LessonID == lessonID {
			return e, nil
		}
	}
	return Exercise{}, ErrNotFound
}

// ExercisesForLesson returns the ids of every exercise attached to lessonID,
// in registration order.
func (r *Registry) ExercisesForLesson(lessonID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, id := range r.exerciseIDs {
		if r.exercises[id].LessonID == lessonID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Grade returns a grade by id.
func (r *Registry) Grade(id string) (Grade, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.curriculum.Grades {
		if g.ID == id {
			return g, true
		}
	}
	return Grade{}, false
}

// Topic returns a topic by id together with the grade that lists it.
func (r *Registry) Topic(id string) (Grade, Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.curriculum.Grades {
		for _, t := range g.Topics {
			if t.ID == id {
				return g, t, true
			}
		}
	}
	return Grade{}, Topic{}, false
}

// FindLesson locates a lesson summary in the curriculum.
func (r *Registry) FindLesson(lessonID string) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curriculum.FindLesson(lessonID)
}

// TopicOf returns the id of the topic listing lessonID.
func (r *Registry) TopicOf(lessonID string) (string, bool) {
	loc, ok := r.FindLesson(lessonID)
	return loc.Topic.ID, ok
}

// FindLesson locates a lesson summary in the curriculum.
func (c Curriculum) FindLesson(lessonID string) (Location, bool) {
	if lessonID == "" {
		return Location{}, false
	}
	for _, g := range c.Grades {
		for _, t := range g.Topics {
			for i, l := range t.Lessons {
				if l.ID == lessonID {
					return Location{Grade: g, Topic: t, Index: i, Lesson: l}, true
				}
			}
		}
	}
	return Location{}, false
}
