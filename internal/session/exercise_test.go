package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/session"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func countingPractice() content.Exercise {
	q := func(id string) content.QuestionBase {
		return content.QuestionBase{ID: id, Text: "question " + id, Explanation: "explained " + id}
	}
	return content.Exercise{
		ID:       "counting-practice",
		LessonID: "counting-to-100",
		Title:    "Counting Practice",
		Questions: []content.Question{
			content.MultipleChoice{QuestionBase: q("q1"), Options: []string{"18", "20"}, CorrectAnswer: "20"},
			content.FillIn{QuestionBase: q("q2"), CorrectAnswer: "Fifty"},
			content.TrueFalse{QuestionBase: q("q3"), CorrectAnswer: true},
			content.Ordering{QuestionBase: q("q4"), Items: []string{"2", "1"}, CorrectOrder: []string{"1", "2"}},
		},
	}
}

func newStore() *progress.Store {
	return progress.NewStore(progress.NewMemoryBackend(), "")
}

func newExercise(t *testing.T, store session.Recorder) *session.Exercise {
	t.Helper()
	ex, err := session.NewExercise(session.ExerciseConfig{
		Exercise: countingPractice(),
		Store:    store,
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewExercise() error = %v", err)
	}
	return ex
}

func answer(t *testing.T, ex *session.Exercise, r assessment.Response) {
	t.Helper()
	if !ex.Select(r) {
		t.Fatal("Select() rejected")
	}
	if !ex.Submit() {
		t.Fatal("Submit() rejected")
	}
	if !ex.Advance(context.Background()) {
		t.Fatal("Advance() rejected")
	}
}

func TestExercise_ThreeOfFour(t *testing.T) {
	store := newStore()
	ex := newExercise(t, store)

	answer(t, ex, assessment.Choice("20"))
	answer(t, ex, assessment.Choice(" fifty "))
	answer(t, ex, assessment.Choice("false"))
	answer(t, ex, assessment.Sequence{"1", "2"})

	if !ex.Completed() {
		t.Fatal("exercise should be completed")
	}
	summary, ok := ex.Summary()
	if !ok {
		t.Fatal("Summary() not available")
	}
	if summary.Score != 3 || summary.Total != 4 {
		t.Errorf("Summary = %d/%d, want 3/4", summary.Score, summary.Total)
	}
	if summary.Percentage != 75 || summary.Tier != assessment.TierGood {
		t.Errorf("Summary = %d%% %q, want 75%% good", summary.Percentage, summary.Tier)
	}

	got, ok := store.Snapshot().Score("counting-practice")
	if !ok {
		t.Fatal("score not recorded")
	}
	if got.Score != 3 || got.Total != 4 || !got.CompletedAt.Equal(fixedNow) {
		t.Errorf("recorded = %+v", got)
	}
}

func TestExercise_TotalEqualsQuestionCount(t *testing.T) {
	responses := [][]assessment.Response{
		{assessment.Choice("18"), assessment.Choice("x"), assessment.Choice("false"), assessment.Sequence{"2", "1"}},
		{assessment.Choice("20"), assessment.Choice("fifty"), assessment.Choice("true"), assessment.Sequence{"1", "2"}},
	}

	for i, rs := range responses {
		store := newStore()
		ex := newExercise(t, store)
		for _, r := range rs {
			answer(t, ex, r)
		}

		s, _ := store.Snapshot().Score("counting-practice")
		if s.Total != 4 {
			t.Errorf("run %d: Total = %d, want 4", i, s.Total)
		}
		if s.Score < 0 || s.Score > s.Total {
			t.Errorf("run %d: Score = %d out of bounds", i, s.Score)
		}
	}
}

func TestExercise_InvalidTransitionsAreIgnored(t *testing.T) {
	store := newStore()
	ex := newExercise(t, store)

	if ex.Submit() {
		t.Error("Submit() without a selection should be ignored")
	}
	if ex.Advance(context.Background()) {
		t.Error("Advance() before submission should be ignored")
	}
	if ex.Select(nil) {
		t.Error("Select(nil) should be ignored")
	}

	ex.Select(assessment.Choice("18"))
	if ex.Advance(context.Background()) {
		t.Error("Advance() with only a selection should be ignored")
	}
	ex.Select(assessment.Choice("20"))
	ex.Submit()

	if ex.Select(assessment.Choice("18")) {
		t.Error("Select() after submission should be ignored")
	}
	if ex.Submit() {
		t.Error("double Submit() should be ignored")
	}
	if score, _ := ex.Score(); score != 1 {
		t.Errorf("Score = %d, want 1 (changed selection before submit)", score)
	}

	v := ex.View()
	if v.Correct == nil || !*v.Correct {
		t.Error("View().Correct should be true after a correct submission")
	}
	if v.Explanation != "explained q1" {
		t.Errorf("Explanation = %q", v.Explanation)
	}
	if v.CorrectAnswer != assessment.Choice("20") {
		t.Errorf("CorrectAnswer = %v", v.CorrectAnswer)
	}
}

func TestExercise_ViewProgress(t *testing.T) {
	ex := newExercise(t, nil)

	v := ex.View()
	if v.Index != 0 || v.Total != 4 || v.Progress != 25 {
		t.Errorf("View() = index %d total %d progress %d, want 0/4/25", v.Index, v.Total, v.Progress)
	}
	if v.Phase != session.PhaseUnanswered || v.Correct != nil {
		t.Errorf("initial phase = %q", v.Phase)
	}

	answer(t, ex, assessment.Choice("20"))
	if v := ex.View(); v.Index != 1 || v.Progress != 50 || v.Phase != session.PhaseUnanswered {
		t.Errorf("after advance View() = %+v", v)
	}
}

func TestExercise_NoTransitionsAfterCompletion(t *testing.T) {
	store := newStore()
	ex := newExercise(t, store)
	for _, r := range []assessment.Response{
		assessment.Choice("20"), assessment.Choice("fifty"), assessment.Choice("true"), assessment.Sequence{"1", "2"},
	} {
		answer(t, ex, r)
	}

	if ex.Select(assessment.Choice("20")) || ex.Submit() || ex.Advance(context.Background()) {
		t.Error("completed exercise should accept no transitions")
	}
	v := ex.View()
	if !v.Completed || v.Summary == nil || v.Summary.Message != "Excellent work!" {
		t.Errorf("View() = %+v", v)
	}
}

func TestExercise_ReplacesPriorAttempt(t *testing.T) {
	store := newStore()
	store.Update(context.Background(), progress.Patch{ExerciseScores: map[string]progress.ExerciseScore{
		"counting-practice": {Score: 4, Total: 4, CompletedAt: fixedNow.Add(-time.Hour)},
		"other":             {Score: 1, Total: 2, CompletedAt: fixedNow.Add(-time.Hour)},
	}})

	ex := newExercise(t, store)
	for range 4 {
		answer(t, ex, assessment.Choice("wrong"))
	}

	p := store.Snapshot()
	if s := p.ExerciseScores["counting-practice"]; s.Score != 0 {
		t.Errorf("Score = %d, want 0 (latest attempt wins)", s.Score)
	}
	if _, ok := p.Score("other"); !ok {
		t.Error("other exercise scores should be kept")
	}
}

func TestNewExercise_NoQuestions(t *testing.T) {
	_, err := session.NewExercise(session.ExerciseConfig{Exercise: content.Exercise{ID: "empty"}})
	if !errors.Is(err, session.ErrNoQuestions) {
		t.Errorf("NewExercise() error = %v, want ErrNoQuestions", err)
	}
}
