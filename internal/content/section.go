package content

import (
	"encoding/json"
	"fmt"
)

// SectionType tags a lesson section.
type SectionType string

const (
	SectionIntroduction SectionType = "introduction"
	SectionVideo        SectionType = "video"
	SectionText         SectionType = "text"
	SectionInteractive  SectionType = "interactive"
	SectionConclusion   SectionType = "conclusion"
)

// Section is one page of a lesson. The set of implementations is closed.
type Section interface {
	Type() SectionType
	isSection()
}

// Introduction opens a lesson. Content is formatted text.
type Introduction struct {
	Content string `json:"content"`
}

// Video embeds an external video.
type Video struct {
	Source      string `json:"source"` // youtube, vimeo or other
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Text is a plain reading section.
type Text struct {
	Content string `json:"content"`
}

// Interactive names a client-side widget and its props.
type Interactive struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
}

// Conclusion closes a lesson.
type Conclusion struct {
	Content string `json:"content"`
}

func (Introduction) Type() SectionType { return SectionIntroduction }
func (Video) Type() SectionType        { return SectionVideo }
func (Text) Type() SectionType         { return SectionText }
func (Interactive) Type() SectionType  { return SectionInteractive }
func (Conclusion) Type() SectionType   { return SectionConclusion }

func (Introduction) isSection() {}
func (Video) isSection()        {}
func (Text) isSection()         {}
func (Interactive) isSection()  {}
func (Conclusion) isSection()   {}

func (s Introduction) MarshalJSON() ([]byte, error) {
	type body Introduction
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		body
	}{s.Type(), body(s)})
}

func (s Video) MarshalJSON() ([]byte, error) {
	type body Video
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		body
	}{s.Type(), body(s)})
}

func (s Text) MarshalJSON() ([]byte, error) {
	type body Text
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		body
	}{s.Type(), body(s)})
}

func (s Interactive) MarshalJSON() ([]byte, error) {
	type body Interactive
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		body
	}{s.Type(), body(s)})
}

func (s Conclusion) MarshalJSON() ([]byte, error) {
	type body Conclusion
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		body
	}{s.Type(), body(s)})
}

// UnmarshalJSON decodes the sections by their "type" tag.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	type plain Lesson
	var raw struct {
		plain
		Sections []json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = Lesson(raw.plain)
	l.Sections = make([]Section, 0, len(raw.Sections))
	for i, r := range raw.Sections {
		s, err := decodeSection(r)
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		l.Sections = append(l.Sections, s)
	}
	return nil
}

func decodeSection(raw json.RawMessage) (Section, error) {
	var head struct {
		Type SectionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case SectionIntroduction:
		var s Introduction
		err := json.Unmarshal(raw, &s)
		return s, err
	case SectionVideo:
		var s Video
		err := json.Unmarshal(raw, &s)
		return s, err
	case SectionText:
		var s Text
		err := json.Unmarshal(raw, &s)
		return s, err
	case SectionInteractive:
		var s Interactive
		err := json.Unmarshal(raw, &s)
		return s, err
	case SectionConclusion:
		var s Conclusion
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		return nil, fmt.Errorf("unknown section type %q", head.Type)
	}
}
