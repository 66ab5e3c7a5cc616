package content

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks content documents for structural problems before they are registered.
type Validator struct {
	core *validator.Validate
}

// NewValidator creates a content validator that reports json field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{core: v}
}

// Curriculum validates the grade/topic/lesson hierarchy.
func (v *Validator) Curriculum(c Curriculum) error {
	if err := v.core.Struct(c); err != nil {
		return fmt.Errorf("invalid curriculum: %w", err)
	}
	return nil
}

// Lesson validates a lesson body.
func (v *Validator) Lesson(l Lesson) error {
	if err := v.core.Struct(l); err != nil {
		return fmt.Errorf("invalid lesson %q: %w", l.ID, err)
	}
	for i, s := range l.Sections {
		if vid, ok := s.(Video); ok && vid.URL == "" {
			return fmt.Errorf("invalid lesson %q: section %d: video url is empty", l.ID, i)
		}
	}
	return nil
}

// Exercise validates an exercise body and each of its questions.
func (v *Validator) Exercise(e Exercise) error {
	if err := v.core.Struct(e); err != nil {
		return fmt.Errorf("invalid exercise %q: %w", e.ID, err)
	}
	for i, q := range e.Questions {
		if err := v.core.Struct(q); err != nil {
			return fmt.Errorf("invalid exercise %q: question %d: %w", e.ID, i, err)
		}
		if err := checkAnswerKey(q); err != nil {
			return fmt.Errorf("invalid exercise %q: question %s: %w", e.ID, q.Common().ID, err)
		}
	}
	return nil
}

// checkAnswerKey verifies that a question's answer key is consistent with its choices.
func checkAnswerKey(q Question) error {
	switch q := q.(type) {
	case MultipleChoice:
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("correct answer %q is not an option", q.CorrectAnswer)
		}
	case Ordering:
		if len(q.Items) != len(q.CorrectOrder) {
			return fmt.Errorf("correct order has %d items, want %d", len(q.CorrectOrder), len(q.Items))
		}
		items := slices.Clone(q.Items)
		order := slices.Clone(q.CorrectOrder)
		slices.Sort(items)
		slices.Sort(order)
		if !slices.Equal(items, order) {
			return fmt.Errorf("correct order is not a permutation of items")
		}
	case Matching:
		seen := make(map[string]bool, len(q.Pairs))
		for _, p := range q.Pairs {
			if seen[p.Left] {
				return fmt.Errorf("duplicate left value %q", p.Left)
			}
			seen[p.Left] = true
		}
	case FillIn, TrueFalse:
	}
	return nil
}
