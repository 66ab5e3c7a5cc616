package player_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/player"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/session"
)

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, catalog player.Catalog, store *progress.Store) *client {
	t.Helper()
	srv := player.NewServer(player.Config{
		Catalog:  catalog,
		Progress: store,
		Now:      func() time.Time { return fixedNow },
	})
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &client{t: t, conn: conn}
}

func (c *client) do(in player.Intent) reply {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, in); err != nil {
		c.t.Fatalf("write %s: %v", in.Action, err)
	}
	return c.read()
}

func (c *client) read() reply {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var r reply
	if err := wsjson.Read(ctx, c.conn, &r); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return r
}

// reply mirrors player.Reply with the fields the tests inspect; the section
// and question payloads are interfaces and cannot be decoded directly.
type reply struct {
	Session string `json:"session"`
	Action  string `json:"action"`
	Applied bool   `json:"applied"`
	Error   string `json:"error"`
	Lesson  *struct {
		LessonID    string               `json:"lesson_id"`
		Total       int                  `json:"total"`
		Progress    int                  `json:"progress"`
		ExerciseID  string               `json:"exercise_id"`
		Section     map[string]any       `json:"section"`
		Destination *session.Destination `json:"destination"`
	} `json:"lesson"`
	Exercise *struct {
		Total     int                 `json:"total"`
		Question  map[string]any      `json:"question"`
		Correct   *bool               `json:"correct"`
		Completed bool                `json:"completed"`
		Summary   *assessment.Summary `json:"summary"`
	} `json:"exercise"`
}

func answer(s string) *string { return &s }

func TestSession_LessonThenExercise(t *testing.T) {
	store := progress.NewStore(progress.NewMemoryBackend(), "")
	c := dial(t, testRegistry(), store)

	r := c.do(player.Intent{Action: player.ActionOpenLesson, ID: "counting-to-100"})
	if r.Error != "" || r.Lesson == nil {
		t.Fatalf("open_lesson = %+v", r)
	}
	if _, err := uuid.Parse(r.Session); err != nil {
		t.Errorf("session id %q is not a uuid", r.Session)
	}
	if r.Lesson.Total != 3 || r.Lesson.ExerciseID != "counting-practice" {
		t.Errorf("lesson view = %+v", r.Lesson)
	}
	if r.Lesson.Section["type"] != "introduction" {
		t.Errorf("first section = %v", r.Lesson.Section)
	}
	if store.Snapshot().LastVisited != "counting-to-100" {
		t.Error("opening a lesson should record lastVisited")
	}

	if r := c.do(player.Intent{Action: player.ActionPrevious}); r.Applied {
		t.Error("previous on the first section should not apply")
	}
	c.do(player.Intent{Action: player.ActionNext})
	if r := c.do(player.Intent{Action: player.ActionNext}); !r.Applied || r.Lesson.Progress != 100 {
		t.Errorf("second next = %+v", r.Lesson)
	}

	r = c.do(player.Intent{Action: player.ActionComplete})
	if !r.Applied || r.Lesson.Destination == nil {
		t.Fatalf("complete = %+v", r)
	}
	want := session.Destination{Kind: session.DestinationExercise, ID: "counting-practice"}
	if *r.Lesson.Destination != want {
		t.Errorf("destination = %+v, want %+v", *r.Lesson.Destination, want)
	}

	r = c.do(player.Intent{Action: player.ActionOpenExercise, ID: "counting-practice"})
	if r.Exercise == nil || r.Exercise.Total != 2 {
		t.Fatalf("open_exercise = %+v", r)
	}
	if r.Exercise.Question["type"] != "multiple-choice" {
		t.Errorf("first question = %v", r.Exercise.Question)
	}
	if r := c.do(player.Intent{Action: player.ActionNext}); r.Error != "no lesson open" {
		t.Errorf("next during an exercise = %+v", r)
	}

	c.do(player.Intent{Action: player.ActionSelect, Answer: answer("20")})
	r = c.do(player.Intent{Action: player.ActionSubmit})
	if r.Exercise.Correct == nil || !*r.Exercise.Correct {
		t.Errorf("submit q1 = %+v", r.Exercise)
	}
	c.do(player.Intent{Action: player.ActionAdvance})

	c.do(player.Intent{Action: player.ActionSelect, Pairs: map[string]string{"ten": "100"}})
	r = c.do(player.Intent{Action: player.ActionSubmit})
	if r.Exercise.Correct == nil || *r.Exercise.Correct {
		t.Errorf("submit q2 = %+v", r.Exercise)
	}
	r = c.do(player.Intent{Action: player.ActionAdvance})
	if !r.Exercise.Completed || r.Exercise.Summary == nil {
		t.Fatalf("final advance = %+v", r.Exercise)
	}
	if s := r.Exercise.Summary; s.Percentage != 50 || s.Tier != assessment.TierNiceEffort {
		t.Errorf("summary = %+v", s)
	}

	p := store.Snapshot()
	if !p.HasCompleted("counting-to-100") {
		t.Error("lesson completion not recorded")
	}
	if s, ok := p.Score("counting-practice"); !ok || s.Score != 1 || s.Total != 2 {
		t.Errorf("recorded score = %+v, %v", s, ok)
	}
}

func TestSession_Errors(t *testing.T) {
	c := dial(t, testRegistry(), progress.NewStore(progress.NewMemoryBackend(), ""))

	tests := []struct {
		name string
		in   player.Intent
		want string
	}{
		{"missing lesson", player.Intent{Action: player.ActionOpenLesson, ID: "nope"}, "not found"},
		{"missing exercise", player.Intent{Action: player.ActionOpenExercise, ID: "nope"}, "not found"},
		{"no lesson", player.Intent{Action: player.ActionComplete}, "no lesson open"},
		{"no exercise", player.Intent{Action: player.ActionSubmit}, "no exercise open"},
		{"unknown", player.Intent{Action: "dance"}, "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := c.do(tt.in); r.Error != tt.want {
				t.Errorf("reply = %+v, want error %q", r, tt.want)
			}
		})
	}
}

func TestSession_InvalidIntentKeepsConnection(t *testing.T) {
	c := dial(t, testRegistry(), progress.NewStore(progress.NewMemoryBackend(), ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := c.read(); r.Error != "invalid intent" {
		t.Errorf("reply = %+v, want invalid intent", r)
	}

	if r := c.do(player.Intent{Action: player.ActionOpenLesson, ID: "counting-by-tens"}); r.Lesson == nil {
		t.Errorf("connection should stay usable, got %+v", r)
	}
}

func TestSession_NoExerciseReturnsToTopic(t *testing.T) {
	c := dial(t, testRegistry(), progress.NewStore(progress.NewMemoryBackend(), ""))

	c.do(player.Intent{Action: player.ActionOpenLesson, ID: "counting-by-tens"})
	r := c.do(player.Intent{Action: player.ActionComplete})
	want := session.Destination{Kind: session.DestinationTopic, ID: "counting"}
	if r.Lesson == nil || r.Lesson.Destination == nil || *r.Lesson.Destination != want {
		t.Errorf("complete = %+v, want destination %+v", r.Lesson, want)
	}
}

// slowCatalog holds lookups of the "slow" lesson until release is closed.
type slowCatalog struct {
	*content.Registry
	release chan struct{}
	looked  chan struct{}
}

func (c slowCatalog) Lesson(ctx context.Context, id string) (content.Lesson, error) {
	if id == "slow" {
		<-c.release
		defer close(c.looked)
		return content.Lesson{ID: "slow", Title: "Slow", Sections: []content.Section{content.Text{Content: "late"}}}, nil
	}
	return c.Registry.Lesson(ctx, id)
}

func TestSession_StaleLookupDropped(t *testing.T) {
	catalog := slowCatalog{
		Registry: testRegistry(),
		release:  make(chan struct{}),
		looked:   make(chan struct{}),
	}
	c := dial(t, catalog, progress.NewStore(progress.NewMemoryBackend(), ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, player.Intent{Action: player.ActionOpenLesson, ID: "slow"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := c.do(player.Intent{Action: player.ActionOpenLesson, ID: "counting-by-tens"})
	if r.Lesson == nil || r.Lesson.LessonID != "counting-by-tens" {
		t.Fatalf("open fast = %+v", r)
	}

	close(catalog.release)
	<-catalog.looked

	r = c.do(player.Intent{Action: player.ActionNext})
	if r.Lesson == nil || r.Lesson.LessonID != "counting-by-tens" {
		t.Errorf("after the slow lookup resolved, active lesson = %+v", r.Lesson)
	}
}

// gatedCatalog holds every lesson lookup until gate is closed.
type gatedCatalog struct {
	*content.Registry
	gate chan struct{}
}

func (c gatedCatalog) Lesson(ctx context.Context, id string) (content.Lesson, error) {
	<-c.gate
	return c.Registry.Lesson(ctx, id)
}

func TestSession_StepsWaitForPendingOpen(t *testing.T) {
	catalog := gatedCatalog{Registry: testRegistry(), gate: make(chan struct{})}
	c := dial(t, catalog, progress.NewStore(progress.NewMemoryBackend(), ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	intents := []player.Intent{
		{Action: player.ActionOpenLesson, ID: "counting-to-100"},
		{Action: player.ActionNext},
		{Action: player.ActionNext},
		{Action: player.ActionComplete},
	}
	for _, in := range intents {
		if err := wsjson.Write(ctx, c.conn, in); err != nil {
			t.Fatalf("write %s: %v", in.Action, err)
		}
	}
	close(catalog.gate)

	wantProgress := []int{33, 67, 100, 100}
	for i, in := range intents {
		r := c.read()
		if r.Action != in.Action || r.Error != "" || !r.Applied {
			t.Fatalf("reply %d = %+v, want applied %s", i, r, in.Action)
		}
		if r.Lesson == nil || r.Lesson.LessonID != "counting-to-100" || r.Lesson.Progress != wantProgress[i] {
			t.Errorf("reply %d lesson = %+v, want progress %d", i, r.Lesson, wantProgress[i])
		}
	}
}

func TestSession_OpenWaitsForEarlierSteps(t *testing.T) {
	c := dial(t, testRegistry(), progress.NewStore(progress.NewMemoryBackend(), ""))
	c.do(player.Intent{Action: player.ActionOpenLesson, ID: "counting-to-100"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	intents := []player.Intent{
		{Action: player.ActionNext},
		{Action: player.ActionOpenLesson, ID: "counting-by-tens"},
		{Action: player.ActionComplete},
	}
	for _, in := range intents {
		if err := wsjson.Write(ctx, c.conn, in); err != nil {
			t.Fatalf("write %s: %v", in.Action, err)
		}
	}

	wantLesson := []string{"counting-to-100", "counting-by-tens", "counting-by-tens"}
	for i, in := range intents {
		r := c.read()
		if r.Action != in.Action || r.Lesson == nil || r.Lesson.LessonID != wantLesson[i] {
			t.Errorf("reply %d = %+v, want %s on %s", i, r, in.Action, wantLesson[i])
		}
	}
}
