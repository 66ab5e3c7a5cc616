// Package session drives a learner through one lesson or one exercise.
//
// Sessions are single-owner state machines: every transition runs to
// completion before the next intent is accepted. Transitions that are not
// legal in the current state are ignored and report false.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

var (
	// ErrNoQuestions is returned when an exercise has nothing to ask.
	ErrNoQuestions = errors.New("exercise has no questions")
	// ErrNoSections is returned when a lesson has nothing to show.
	ErrNoSections = errors.New("lesson has no sections")
)

// Recorder is the part of the progress store a session writes through.
type Recorder interface {
	Snapshot() progress.UserProgress
	Update(ctx context.Context, patch progress.Patch) (progress.UserProgress, error)
}

// AnswerPhase is where the current question stands.
type AnswerPhase string

const (
	PhaseUnanswered AnswerPhase = "unanswered"
	PhaseSelected   AnswerPhase = "selected"
	PhaseSubmitted  AnswerPhase = "submitted"
)

// ExerciseConfig holds dependencies for an exercise session.
type ExerciseConfig struct {
	Exercise content.Exercise
	Store    Recorder
	Now      func() time.Time // defaults to time.Now
}

// Exercise steps through an exercise's questions, keeps the running score and
// records the final result. There is no going back to an earlier question.
type Exercise struct {
	exercise content.Exercise
	store    Recorder
	now      func() time.Time

	index    int
	phase    AnswerPhase
	response assessment.Response
	correct  bool
	score    int

	completed bool
	summary   assessment.Summary
}

// NewExercise starts an exercise at its first question, unanswered.
func NewExercise(cfg ExerciseConfig) (*Exercise, error) {
	if len(cfg.Exercise.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Exercise{
		exercise: cfg.Exercise,
		store:    cfg.Store,
		now:      now,
		phase:    PhaseUnanswered,
	}, nil
}

// Select records r as the pending answer. Ignored once the answer is submitted,
// after completion, or when r is nil.
func (e *Exercise) Select(r assessment.Response) bool {
	if e.completed || e.phase == PhaseSubmitted || r == nil {
		return false
	}
	e.response = r
	e.phase = PhaseSelected
	return true
}

// Submit grades the pending answer. Ignored unless an answer is selected.
func (e *Exercise) Submit() bool {
	if e.completed || e.phase != PhaseSelected {
		return false
	}
	e.correct = assessment.Evaluate(e.question(), e.response)
	if e.correct {
		e.score++
	}
	e.phase = PhaseSubmitted
	return true
}

// Advance moves past a submitted question. After the last question the
// exercise completes and its score replaces any earlier attempt in the store.
func (e *Exercise) Advance(ctx context.Context) bool {
	if e.completed || e.phase != PhaseSubmitted {
		return false
	}

	if e.index < len(e.exercise.Questions)-1 {
		e.index++
		e.phase = PhaseUnanswered
		e.response = nil
		e.correct = false
		return true
	}

	e.completed = true
	total := len(e.exercise.Questions)
	e.summary = assessment.Summarize(e.score, total)
	e.record(ctx, progress.ExerciseScore{
		Score:       e.score,
		Total:       total,
		CompletedAt: e.now().UTC(),
	})
	return true
}

func (e *Exercise) record(ctx context.Context, s progress.ExerciseScore) {
	if e.store == nil {
		return
	}
	scores := e.store.Snapshot().WithExerciseScore(e.exercise.ID, s)
	if _, err := e.store.Update(ctx, progress.Patch{ExerciseScores: scores}); err != nil {
		slog.Error("failed to record exercise score",
			"exercise_id", e.exercise.ID,
			"error", err,
		)
		return
	}
	slog.Info("exercise completed",
		"exercise_id", e.exercise.ID,
		"score", s.Score,
		"total", s.Total,
	)
}

func (e *Exercise) question() content.Question {
	return e.exercise.Questions[e.index]
}

// Completed reports whether the exercise has finished.
func (e *Exercise) Completed() bool { return e.completed }

// Score returns the running score and the number of questions.
func (e *Exercise) Score() (score, total int) {
	return e.score, len(e.exercise.Questions)
}

// Summary returns the result once the exercise has completed.
func (e *Exercise) Summary() (assessment.Summary, bool) {
	return e.summary, e.completed
}

// ExerciseView is what the presentation layer renders.
type ExerciseView struct {
	ExerciseID string           `json:"exercise_id"`
	Title      string           `json:"title"`
	Index      int              `json:"index"`
	Total      int              `json:"total"`
	Progress   int              `json:"progress"`
	Question   content.Question `json:"question,omitempty"`
	Phase      AnswerPhase      `json:"phase,omitempty"`
	Response   any              `json:"response,omitempty"`

	// Set once the current answer is submitted.
	Correct       *bool  `json:"correct,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	CorrectAnswer any    `json:"correct_answer,omitempty"`

	Completed bool                `json:"completed"`
	Summary   *assessment.Summary `json:"summary,omitempty"`
}

// View returns the current state for rendering.
func (e *Exercise) View() ExerciseView {
	total := len(e.exercise.Questions)
	v := ExerciseView{
		ExerciseID: e.exercise.ID,
		Title:      e.exercise.Title,
		Index:      e.index,
		Total:      total,
		Progress:   assessment.Percent(e.index+1, total),
		Completed:  e.completed,
	}
	if e.completed {
		s := e.summary
		v.Summary = &s
		return v
	}

	q := e.question()
	v.Question = q
	v.Phase = e.phase
	v.Response = e.response
	if e.phase == PhaseSubmitted {
		correct := e.correct
		v.Correct = &correct
		v.Explanation = q.Common().Explanation
		v.CorrectAnswer = assessment.CorrectAnswer(q)
	}
	return v
}
