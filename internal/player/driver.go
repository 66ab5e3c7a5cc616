package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/session"
)

// Actions accepted from the client.
const (
	ActionOpenLesson   = "open_lesson"
	ActionOpenExercise = "open_exercise"
	ActionNext         = "next"
	ActionPrevious     = "previous"
	ActionComplete     = "complete"
	ActionSelect       = "select"
	ActionSubmit       = "submit"
	ActionAdvance      = "advance"
)

const (
	errNotFound      = "not found"
	errNoLesson      = "no lesson open"
	errNoExercise    = "no exercise open"
	errUnknown       = "unknown action"
	errInvalidIntent = "invalid intent"
	errUnavailable   = "content unavailable"
)

// Intent is one learner action. Select carries exactly one of Answer, Pairs or
// Order depending on the question type.
type Intent struct {
	Action  string            `json:"action"`
	ID      string            `json:"id,omitempty"`
	TopicID string            `json:"topic_id,omitempty"`
	Answer  *string           `json:"answer,omitempty"`
	Pairs   map[string]string `json:"pairs,omitempty"`
	Order   []string          `json:"order,omitempty"`
}

func (in Intent) response() assessment.Response {
	switch {
	case in.Pairs != nil:
		return assessment.Matches(in.Pairs)
	case in.Order != nil:
		return assessment.Sequence(in.Order)
	case in.Answer != nil:
		return assessment.Choice(*in.Answer)
	default:
		return nil
	}
}

// Reply is sent after every intent. Applied is false when the intent was not
// legal in the current state; the view is then unchanged.
type Reply struct {
	Session  string                `json:"session"`
	Action   string                `json:"action,omitempty"`
	Applied  bool                  `json:"applied"`
	Lesson   *session.LessonView   `json:"lesson,omitempty"`
	Exercise *session.ExerciseView `json:"exercise,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// driver owns the one active session of a connection. Content lookups run
// asynchronously, but replies keep the order the intents arrived in: a step
// waits for every intent before it, and an open installs its result only after
// the steps sent before it. A later open does not wait for an earlier one; the
// earlier result is dropped instead.
type driver struct {
	id   string
	srv  *Server
	send func(context.Context, Reply)

	latest  session.Latest
	pending sync.WaitGroup

	// Touched only by the read loop. Each channel is closed once the
	// corresponding intent has replied or been dropped.
	last  chan struct{}
	steps chan struct{}

	mu       sync.Mutex
	lesson   *session.Lesson
	exercise *session.Exercise
}

func newDriver(id string, srv *Server, send func(context.Context, Reply)) *driver {
	done := make(chan struct{})
	close(done)
	return &driver{id: id, srv: srv, send: send, last: done, steps: done}
}

func (d *driver) handle(ctx context.Context, in Intent) {
	switch in.Action {
	case ActionOpenLesson, ActionOpenExercise:
		t := d.latest.Begin(in.ID)
		after := d.steps
		done := make(chan struct{})
		d.last = done
		d.pending.Go(func() {
			defer close(done)
			if in.Action == ActionOpenLesson {
				d.openLesson(ctx, t, after, in)
			} else {
				d.openExercise(ctx, t, after, in)
			}
		})
	default:
		d.enqueue(ctx, func() Reply { return d.step(ctx, in) })
	}
}

// reject replies to a message that could not be decoded into an intent.
func (d *driver) reject(ctx context.Context) {
	d.enqueue(ctx, func() Reply { return Reply{Session: d.id, Error: errInvalidIntent} })
}

func (d *driver) enqueue(ctx context.Context, run func() Reply) {
	after := d.last
	done := make(chan struct{})
	d.last, d.steps = done, done
	d.pending.Go(func() {
		defer close(done)
		<-after
		d.send(ctx, run())
	})
}

// wait blocks until every queued intent has finished.
func (d *driver) wait() { d.pending.Wait() }

// afterSteps wraps lookup so its result is only handed on once after is closed.
func afterSteps[T any](after <-chan struct{}, lookup func(context.Context, string) (T, error)) func(context.Context, string) (T, error) {
	return func(ctx context.Context, id string) (T, error) {
		v, err := lookup(ctx, id)
		<-after
		return v, err
	}
}

// openLesson installs the looked-up lesson. The reply is sent while the ticket
// is still current so no later open can reply first.
func (d *driver) openLesson(ctx context.Context, t session.Ticket, after <-chan struct{}, in Intent) {
	applied := session.Fetch(ctx, &d.latest, t, afterSteps(after, d.srv.catalog.Lesson), func(l content.Lesson, err error) {
		d.send(ctx, d.installLesson(ctx, in, l, err))
	})
	if !applied {
		slog.Debug("stale lesson lookup dropped", "session_id", d.id, "lesson_id", in.ID)
	}
}

func (d *driver) installLesson(ctx context.Context, in Intent, l content.Lesson, err error) Reply {
	if err != nil {
		return d.lookupError(in, err)
	}

	topicID := in.TopicID
	if topicID == "" {
		topicID, _ = d.srv.catalog.TopicOf(l.ID)
	}
	ls, err := session.NewLesson(ctx, session.LessonConfig{
		Lesson:    l,
		Store:     d.srv.progress,
		Exercises: d.srv.catalog,
		TopicID:   topicID,
	})
	if err != nil {
		return d.lookupError(in, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lesson, d.exercise = ls, nil
	v := ls.View()
	return Reply{Session: d.id, Action: in.Action, Applied: true, Lesson: &v}
}

func (d *driver) openExercise(ctx context.Context, t session.Ticket, after <-chan struct{}, in Intent) {
	applied := session.Fetch(ctx, &d.latest, t, afterSteps(after, d.srv.catalog.Exercise), func(e content.Exercise, err error) {
		d.send(ctx, d.installExercise(in, e, err))
	})
	if !applied {
		slog.Debug("stale exercise lookup dropped", "session_id", d.id, "exercise_id", in.ID)
	}
}

func (d *driver) installExercise(in Intent, e content.Exercise, err error) Reply {
	if err != nil {
		return d.lookupError(in, err)
	}

	ex, err := session.NewExercise(session.ExerciseConfig{
		Exercise: e,
		Store:    d.srv.progress,
		Now:      d.srv.now,
	})
	if err != nil {
		return d.lookupError(in, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.exercise, d.lesson = ex, nil
	v := ex.View()
	return Reply{Session: d.id, Action: in.Action, Applied: true, Exercise: &v}
}

func (d *driver) lookupError(in Intent, err error) Reply {
	if errors.Is(err, content.ErrNotFound) {
		return Reply{Session: d.id, Action: in.Action, Error: errNotFound}
	}
	slog.Error("failed to open content", "session_id", d.id, "action", in.Action, "id", in.ID, "error", err)
	return Reply{Session: d.id, Action: in.Action, Error: errUnavailable}
}

func (d *driver) step(ctx context.Context, in Intent) Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply := Reply{Session: d.id, Action: in.Action}

	switch in.Action {
	case ActionNext, ActionPrevious, ActionComplete:
		if d.lesson == nil {
			reply.Error = errNoLesson
			return reply
		}
		switch in.Action {
		case ActionNext:
			reply.Applied = d.lesson.Next()
		case ActionPrevious:
			reply.Applied = d.lesson.Previous()
		case ActionComplete:
			_, reply.Applied = d.lesson.Complete(ctx)
		}
		v := d.lesson.View()
		reply.Lesson = &v

	case ActionSelect, ActionSubmit, ActionAdvance:
		if d.exercise == nil {
			reply.Error = errNoExercise
			return reply
		}
		switch in.Action {
		case ActionSelect:
			reply.Applied = d.exercise.Select(in.response())
		case ActionSubmit:
			reply.Applied = d.exercise.Submit()
		case ActionAdvance:
			reply.Applied = d.exercise.Advance(ctx)
		}
		v := d.exercise.View()
		reply.Exercise = &v

	default:
		reply.Error = errUnknown
	}
	return reply
}
