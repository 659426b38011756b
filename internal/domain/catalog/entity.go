// Package catalog contains the static reference data of the course: topics,
// content templates, the fixed lesson list, and lessons prepared from
// templates for a particular user.
package catalog

import (
	"strings"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// TopicID identifies a learning topic.
type TopicID int64

// Int64 returns the underlying value.
func (id TopicID) Int64() int64 {
	return int64(id)
}

// Topic is a named subject area.
type Topic struct {
	ID                 TopicID
	Slug               string
	Name               string
	Description        string
	DifficultyLevel    shared.Difficulty
	LearningObjectives []string
	CreatedAt          time.Time
}

// TemplateType names the kind of exercise a template produces.
type TemplateType string

const (
	TemplateContextLessons   TemplateType = "context_lessons"
	TemplateCriticalThinking TemplateType = "critical_thinking"
	TemplateEthicsCheck      TemplateType = "ethics_check"
)

// NormalizeTemplateType lowercases and trims a requested type.
func NormalizeTemplateType(raw string) TemplateType {
	return TemplateType(strings.ToLower(strings.TrimSpace(raw)))
}

// Option is one answer of a multiple-choice section.
type Option struct {
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// Section is one block of lesson content.
type Section struct {
	Type             string   `json:"type"`
	Content          string   `json:"content,omitempty"`
	Scenario         string   `json:"scenario,omitempty"`
	BadExample       string   `json:"bad_example,omitempty"`
	GoodExample      string   `json:"good_example,omitempty"`
	FeedbackCriteria []string `json:"feedback_criteria,omitempty"`
	Options          []Option `json:"options,omitempty"`
}

// ContentTemplate is a reusable exercise pattern owned by a topic.
type ContentTemplate struct {
	ID       int64
	TopicID  TopicID
	Name     string
	Type     TemplateType
	Title    string
	Sections []Section
}

// SelectTemplate picks the template of the requested type, falling back to
// the first template. It returns nil for an empty list.
func SelectTemplate(templates []*ContentTemplate, typ TemplateType) *ContentTemplate {
	if len(templates) == 0 {
		return nil
	}
	for _, t := range templates {
		if t.Type == typ {
			return t
		}
	}
	return templates[0]
}

// GeneratedLesson is a template instance prepared for one user at the
// difficulty that user has reached on the topic.
type GeneratedLesson struct {
	ID                string
	UserID            shared.UserID
	TopicID           TopicID
	TemplateID        int64
	DifficultyAdapted shared.Difficulty
	Title             string
	Sections          []Section
	CreatedAt         time.Time
}

// Lesson is one step of the fixed course.
type Lesson struct {
	ID        int
	Title     string
	TopicSlug string
	Summary   string
}

// TopicSeed bundles a topic with its templates for seeding.
type TopicSeed struct {
	Topic     Topic
	Templates []ContentTemplate
}

// Seed is the full reference data set.
type Seed struct {
	DefaultTopic string
	Topics       []TopicSeed
	Lessons      []Lesson
}
