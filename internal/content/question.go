package content

import (
	"encoding/json"
	"fmt"
)

// QuestionType tags an exercise question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionFillIn         QuestionType = "fill-in"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionMatching       QuestionType = "matching"
	QuestionOrdering       QuestionType = "ordering"
)

// Question is one exercise item. The set of implementations is closed.
type Question interface {
	Type() QuestionType
	Common() QuestionBase
	isQuestion()
}

// QuestionBase holds the fields every question carries.
type QuestionBase struct {
	ID          string `json:"id" validate:"required"`
	Text        string `json:"text" validate:"required"`
	Explanation string `json:"explanation"`
}

// Common returns the shared question fields.
func (b QuestionBase) Common() QuestionBase { return b }

type MultipleChoice struct {
	QuestionBase
	Options       []string `json:"options" validate:"min=2"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
}

type FillIn struct {
	QuestionBase
	CorrectAnswer string `json:"correct_answer" validate:"required"`
}

type TrueFalse struct {
	QuestionBase
	CorrectAnswer bool `json:"correct_answer"`
}

// Pair is one left/right association of a matching question.
type Pair struct {
	Left  string `json:"left" validate:"required"`
	Right string `json:"right" validate:"required"`
}

type Matching struct {
	QuestionBase
	Pairs []Pair `json:"pairs" validate:"min=1,dive"`
}

type Ordering struct {
	QuestionBase
	Items        []string `json:"items" validate:"min=1"`
	CorrectOrder []string `json:"correct_order" validate:"min=1"`
}

func (MultipleChoice) Type() QuestionType { return QuestionMultipleChoice }
func (FillIn) Type() QuestionType         { return QuestionFillIn }
func (TrueFalse) Type() QuestionType      { return QuestionTrueFalse }
func (Matching) Type() QuestionType       { return QuestionMatching }
func (Ordering) Type() QuestionType       { return QuestionOrdering }

func (MultipleChoice) isQuestion() {}
func (FillIn) isQuestion()         {}
func (TrueFalse) isQuestion()      {}
func (Matching) isQuestion()       {}
func (Ordering) isQuestion()       {}

func (q MultipleChoice) MarshalJSON() ([]byte, error) {
	type body MultipleChoice
	return json.Marshal(struct {
		Type QuestionType `json:"type"`
		body
	}{q.Type(), body(q)})
}

func (q FillIn) MarshalJSON() ([]byte, error) {
	type body FillIn
	return json.Marshal(struct {
		Type QuestionType `json:"type"`
		body
	}{q.Type(), body(q)})
}

func (q TrueFalse) MarshalJSON() ([]byte, error) {
	type body TrueFalse
	return json.Marshal(struct {
		Type QuestionType `json:"type"`
		body
	}{q.Type(), body(q)})
}

func (q Matching) MarshalJSON() ([]byte, error) {
	type body Matching
	return json.Marshal(struct {
		Type QuestionType `json:"type"`
		body
	}{q.Type(), body(q)})
}

func (q Ordering) MarshalJSON() ([]byte, error) {
	type body Ordering
	return json.Marshal(struct {
		Type QuestionType `json:"type"`
		body
	}{q.Type(), body(q)})
}

// UnmarshalJSON decodes the questions by their "type" tag.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	type plain Exercise
	var raw struct {
		plain
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Exercise(raw.plain)
	e.Questions = make([]Question, 0, len(raw.Questions))
	for i, r := range raw.Questions {
		q, err := decodeQuestion(r)
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		e.Questions = append(e.Questions, q)
	}
	return nil
}

func decodeQuestion(raw json.RawMessage) (Question, error) {
	var head struct {
		Type QuestionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case QuestionMultipleChoice:
		var q MultipleChoice
		err := json.Unmarshal(raw, &q)
		return q, err
	case QuestionFillIn:
		var q FillIn
		err := json.Unmarshal(raw, &q)
		return q, err
	case QuestionTrueFalse:
		var q TrueFalse
		err := json.Unmarshal(raw, &q)
		return q, err
	case QuestionMatching:
		var q Matching
		err := json.Unmarshal(raw, &q)
		return q, err
	case QuestionOrdering:
		var q Ordering
		err := json.Unmarshal(raw, &q)
		return q, err
	default:
		return nil, fmt.Errorf("unknown question type %q", head.Type)
	}
}
