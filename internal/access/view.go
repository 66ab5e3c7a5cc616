package access

import (
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

const (
	featuredTopics = 3
	relatedTopics  = 2
)

// ExerciseLister returns the ids of the exercises attached to a lesson.
type ExerciseLister func(lessonID string) []string

// GradeCard is a grade as listed on the home page.
type GradeCard struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Topics     int    `json:"topics"`
	Lessons    int    `json:"lessons"`
	Completion int    `json:"completion"`
}

// TopicCard is a topic as listed inside a grade.
type TopicCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Lessons     int    `json:"lessons"`
	Completion  int    `json:"completion"`
}

// ContinueCard points back at the last visited lesson.
type ContinueCard struct {
	GradeID   string                `json:"grade_id"`
	GradeName string                `json:"grade_name"`
	TopicID   string                `json:"topic_id"`
	TopicName string                `json:"topic_name"`
	Lesson    content.LessonSummary `json:"lesson"`
}

// Overview is the home page.
type Overview struct {
	Continue *ContinueCard `json:"continue,omitempty"`
	Grades   []GradeCard   `json:"grades"`
	Featured []TopicCard   `json:"featured"`
}

// BuildOverview lists every grade with its completion, the continue banner
// and the first topics of the first grade.
func BuildOverview(c content.Curriculum, p progress.UserProgress) Overview {
	o := Overview{
		Grades:   make([]GradeCard, 0, len(c.Grades)),
		Featured: []TopicCard{},
	}
	for _, g := range c.Grades {
		lessons := 0
		for _, t := range g.Topics {
			lessons += len(t.Lessons)
		}
		o.Grades = append(o.Grades, GradeCard{
			ID:         g.ID,
			Name:       g.Name,
			Topics:     len(g.Topics),
			Lessons:    lessons,
			Completion: GradeCompletion(g, p),
		})
	}
	if len(c.Grades) > 0 {
		topics := c.Grades[0].Topics
		o.Featured = topicCards(topics[:min(featuredTopics, len(topics))], p)
	}
	if loc, ok := ContinueLesson(c, p); ok {
		o.Continue = &ContinueCard{
			GradeID:   loc.Grade.ID,
			GradeName: loc.Grade.Name,
			TopicID:   loc.Topic.ID,
			TopicName: loc.Topic.Name,
			Lesson:    loc.Lesson,
		}
	}
	return o
}

// GradeView is one grade with its topics.
type GradeView struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Lessons int         `json:"lessons"`
	Topics  []TopicCard `json:"topics"`
}

// BuildGradeView lists a grade's topics with their completion.
func BuildGradeView(g content.Grade, p progress.UserProgress) GradeView {
	v := GradeView{
		ID:     g.ID,
		Name:   g.Name,
		Topics: topicCards(g.Topics, p),
	}
	for _, t := range g.Topics {
		v.Lessons += len(t.Lessons)
	}
	return v
}

// LessonCard is one lesson row of a topic page.
type LessonCard struct {
	content.LessonSummary
	Index        int                     `json:"index"`
	Availability Availability            `json:"availability"`
	Score        *progress.ExerciseScore `json:"score,omitempty"`
}

// TopicView is a topic page: its lessons in unlock order plus related topics.
type TopicView struct {
	GradeID     string       `json:"grade_id"`
	GradeName   string       `json:"grade_name"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Completion  int          `json:"completion"`
	Lessons     []LessonCard `json:"lessons"`
	Related     []TopicCard  `json:"related"`
}

// BuildTopicView computes every lesson's availability. Completed lessons
// carry their best exercise score when exercises is set.
func BuildTopicView(g content.Grade, t content.Topic, p progress.UserProgress, exercises ExerciseLister) TopicView {
	v := TopicView{
		GradeID:     g.ID,
		GradeName:   g.Name,
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Icon:        t.Icon,
		Completion:  TopicCompletion(t, p),
		Lessons:     make([]LessonCard, 0, len(t.Lessons)),
		Related:     []TopicCard{},
	}

	for i, l := range t.Lessons {
		card := LessonCard{
			LessonSummary: l,
			Index:         i,
			Availability:  LessonAvailability(t, i, p),
		}
		if exercises != nil && card.Availability.Completed {
			if s, ok := BestScore(p, exercises(l.ID)); ok {
				card.Score = &s
			}
		}
		v.Lessons = append(v.Lessons, card)
	}

	for _, other := range g.Topics {
		if len(v.Related) == relatedTopics {
			break
		}
		if other.ID != t.ID {
			v.Related = append(v.Related, topicCard(other, p))
		}
	}
	return v
}

func topicCards(topics []content.Topic, p progress.UserProgress) []TopicCard {
	cards := make([]TopicCard, 0, len(topics))
	for _, t := range topics {
		cards = append(cards, topicCard(t, p))
	}
	return cards
}

func topicCard(t content.Topic, p progress.UserProgress) TopicCard {
	return TopicCard{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Icon:        t.Icon,
		Lessons:     len(t.Lessons),
		Completion:  TopicCompletion(t, p),
	}
}
