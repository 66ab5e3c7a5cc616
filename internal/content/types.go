// Package content describes the curriculum, lessons and exercises served by the player.
package content

// Curriculum is the fixed Grade → Topic → Lesson hierarchy.
type Curriculum struct {
	Grades []Grade `json:"grades" yaml:"grades" validate:"dive"`
}

// Grade is a school year (e.g. "Grade 1").
type Grade struct {
	ID     string  `json:"id" yaml:"id" validate:"required"`
	Name   string  `json:"name" yaml:"name" validate:"required"`
	Topics []Topic `json:"topics" yaml:"topics" validate:"dive"`
}

// Topic groups lessons. The order of Lessons defines the sequential-unlock chain.
type Topic struct {
	ID          string          `json:"id" yaml:"id" validate:"required"`
	Name        string          `json:"name" yaml:"name" validate:"required"`
	Order       int             `json:"order" yaml:"order"`
	Description string          `json:"description" yaml:"description"`
	Icon        string          `json:"icon,omitempty" yaml:"icon"`
	Lessons     []LessonSummary `json:"lessons" yaml:"lessons" validate:"dive"`
}

// LessonSummary is the curriculum entry for a lesson.
type LessonSummary struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Title       string `json:"title" yaml:"title" validate:"required"`
	Description string `json:"description" yaml:"description"`
	Order       int    `json:"order" yaml:"order"`
	Duration    string `json:"duration" yaml:"duration"`
	IsPremium   bool   `json:"is_premium" yaml:"is_premium"`
}

// Lesson is the full body of a lesson.
type Lesson struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	ContentType string    `json:"content_type,omitempty"`
	IsPremium   bool      `json:"is_premium"`
	Sections    []Section `json:"sections" validate:"min=1"`
}

// Exercise is a graded set of questions attached to one lesson.
type Exercise struct {
	ID          string     `json:"id" validate:"required"`
	LessonID    string     `json:"lesson_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions" validate:"min=1"`
}

// Location places a lesson summary inside the curriculum.
type Location struct {
	Grade  Grade
	Topic  Topic
	Index  int
	Lesson LessonSummary
}
