// Package assessment grades learner responses and classifies exercise results.
package assessment

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-learn/internal/content"
)

// Response is a learner's answer to one question. A nil Response is "no answer".
type Response interface {
	isResponse()
}

// Choice answers multiple-choice, fill-in and true-false questions.
// True-false expects the literal "true" or "false".
type Choice string

// Matches answers a matching question: left value → chosen right value.
type Matches map[string]string

// Sequence answers an ordering question.
type Sequence []string

func (Choice) isResponse()   {}
func (Matches) isResponse()  {}
func (Sequence) isResponse() {}

var folder = cases.Fold()

// Evaluate reports whether r is a correct answer to q. It never panics;
// a missing response or one of the wrong shape is incorrect.
func Evaluate(q content.Question, r Response) bool {
	if r == nil {
		return false
	}

	switch q := q.(type) {
	case content.MultipleChoice:
		c, ok := r.(Choice)
		return ok && string(c) == q.CorrectAnswer
	case content.FillIn:
		c, ok := r.(Choice)
		return ok && normalize(string(c)) == normalize(q.CorrectAnswer)
	case content.TrueFalse:
		c, ok := r.(Choice)
		if !ok || (c != "true" && c != "false") {
			return false
		}
		return (c == "true") == q.CorrectAnswer
	case content.Matching:
		m, ok := r.(Matches)
		if !ok {
			return false
		}
		for _, p := range q.Pairs {
			if got, answered := m[p.Left]; !answered || got != p.Right {
				return false
			}
		}
		return true
	case content.Ordering:
		s, ok := r.(Sequence)
		return ok && slices.Equal(s, q.CorrectOrder)
	default:
		return false
	}
}

// normalize case-folds and trims a free-text answer. NFC first so composed and
// decomposed accents compare equal.
func normalize(s string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// CorrectAnswer renders the answer key of q for feedback after submission.
func CorrectAnswer(q content.Question) Response {
	switch q := q.(type) {
	case content.MultipleChoice:
		return Choice(q.CorrectAnswer)
	case content.FillIn:
		return Choice(q.CorrectAnswer)
	case content.TrueFalse:
		if q.CorrectAnswer {
			return Choice("true")
		}
		return Choice("false")
	case content.Matching:
		m := make(Matches, len(q.Pairs))
		for _, p := range q.Pairs {
			m[p.Left] = p.Right
		}
		return m
	case content.Ordering:
		return Sequence(slices.Clone(q.CorrectOrder))
	default:
		return nil
	}
}
