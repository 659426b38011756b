// Package seed loads the course catalog (lessons, topics and content
// templates) from YAML. The default catalog is compiled into the binary.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// ErrInvalidCatalog is returned for a catalog document that cannot be seeded.
var ErrInvalidCatalog = errors.New("seed: invalid catalog")

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT
// ══════════════════════════════════════════════════════════════════════════════

type document struct {
	DefaultTopic string      `yaml:"default_topic"`
	Lessons      []lessonDoc `yaml:"lessons"`
	Topics       []topicDoc  `yaml:"topics"`
}

type lessonDoc struct {
	ID      int    `yaml:"id"`
	Title   string `yaml:"title"`
	Topic   string `yaml:"topic"`
	Summary string `yaml:"summary"`
}

type topicDoc struct {
	Slug        string        `yaml:"slug"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Difficulty  int           `yaml:"difficulty"`
	Objectives  []string      `yaml:"objectives"`
	Templates   []templateDoc `yaml:"templates"`
}

type templateDoc struct {
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type"`
	Title    string       `yaml:"title"`
	Sections []sectionDoc `yaml:"sections"`
}

type sectionDoc struct {
	Type             string      `yaml:"type"`
	Content          string      `yaml:"content"`
	Scenario         string      `yaml:"scenario"`
	BadExample       string      `yaml:"bad_example"`
	GoodExample      string      `yaml:"good_example"`
	FeedbackCriteria []string    `yaml:"feedback_criteria"`
	Options          []optionDoc `yaml:"options"`
}

type optionDoc struct {
	Text        string `yaml:"text"`
	Correct     bool   `yaml:"correct"`
	Explanation string `yaml:"explanation"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING
// ══════════════════════════════════════════════════════════════════════════════

// Default returns the embedded catalog.
func Default() (catalog.Seed, error) {
	return Parse(embeddedCatalog)
}

// Load returns the catalog in path, or the embedded one when path is empty.
func Load(path string) (catalog.Seed, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Seed{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. Unknown keys are rejected.
func Parse(data []byte) (catalog.Seed, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return catalog.Seed{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := doc.validate(); err != nil {
		return catalog.Seed{}, err
	}
	return doc.toSeed(), nil
}

func (d *document) validate() error {
	var errs []string

	slugs := make(map[string]bool, len(d.Topics))
	for _, t := range d.Topics {
		if t.Slug == "" || t.Name == "" {
			errs = append(errs, "topic needs slug and name")
			continue
		}
		if slugs[t.Slug] {
			errs = append(errs, fmt.Sprintf("duplicate topic %q", t.Slug))
		}
		slugs[t.Slug] = true

		if t.Difficulty != 0 && !shared.Difficulty(t.Difficulty).IsValid() {
			errs = append(errs, fmt.Sprintf("topic %q: difficulty %d out of range", t.Slug, t.Difficulty))
		}

		names := make(map[string]bool, len(t.Templates))
		for _, tpl := range t.Templates {
			if tpl.Name == "" || tpl.Type == "" {
				errs = append(errs, fmt.Sprintf("topic %q: template needs name and type", t.Slug))
				continue
			}
			if names[tpl.Name] {
				errs = append(errs, fmt.Sprintf("topic %q: duplicate template %q", t.Slug, tpl.Name))
			}
			names[tpl.Name] = true
		}
	}

	if d.DefaultTopic != "" && !slugs[d.DefaultTopic] {
		errs = append(errs, fmt.Sprintf("default topic %q is not defined", d.DefaultTopic))
	}

	ids := make(map[int]bool, len(d.Lessons))
	for _, l := range d.Lessons {
		if _, err := progress.NewLessonID(l.ID); err != nil || l.ID > progress.TotalLessons {
			errs = append(errs, fmt.Sprintf("lesson id %d must be 1-%d", l.ID, progress.TotalLessons))
			continue
		}
		if ids[l.ID] {
			errs = append(errs, fmt.Sprintf("duplicate lesson %d", l.ID))
		}
		ids[l.ID] = true
		if l.Topic != "" && !slugs[l.Topic] {
			errs = append(errs, fmt.Sprintf("lesson %d: unknown topic %q", l.ID, l.Topic))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidCatalog, strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d *document) toSeed() catalog.Seed {
	s := catalog.Seed{
		DefaultTopic: d.DefaultTopic,
		Topics:       make([]catalog.TopicSeed, 0, len(d.Topics)),
		Lessons:      make([]catalog.Lesson, 0, len(d.Lessons)),
	}

	for _, l := range d.Lessons {
		s.Lessons = append(s.Lessons, catalog.Lesson{
			ID:        l.ID,
			Title:     l.Title,
			TopicSlug: l.Topic,
			Summary:   l.Summary,
		})
	}

	for _, t := range d.Topics {
		diff := shared.Difficulty(t.Difficulty)
		if diff == 0 {
			diff = shared.MinDifficulty
		}
		ts := catalog.TopicSeed{
			Topic: catalog.Topic{
				Slug:               t.Slug,
				Name:               t.Name,
				Description:        t.Description,
				DifficultyLevel:    diff,
				LearningObjectives: append([]string{}, t.Objectives...),
			},
		}
		for _, tpl := range t.Templates {
			ts.Templates = append(ts.Templates, catalog.ContentTemplate{
				Name:     tpl.Name,
				Type:     catalog.NormalizeTemplateType(tpl.Type),
				Title:    tpl.Title,
				Sections: toSections(tpl.Sections),
			})
		}
		s.Topics = append(s.Topics, ts)
	}
	return s
}

func toSections(docs []sectionDoc) []catalog.Section {
	out := make([]catalog.Section, 0, len(docs))
	for _, sd := range docs {
		sec := catalog.Section{
			Type:             sd.Type,
			Content:          sd.Content,
			Scenario:         sd.Scenario,
			BadExample:       sd.BadExample,
			GoodExample:      sd.GoodExample,
			FeedbackCriteria: sd.FeedbackCriteria,
		}
		for _, o := range sd.Options {
			sec.Options = append(sec.Options, catalog.Option{
				Text:        o.Text,
				Correct:     o.Correct,
				Explanation: o.Explanation,
			})
		}
		out = append(out, sec)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLYING
// ══════════════════════════════════════════════════════════════════════════════

// Apply upserts the catalog through the seeder.
func Apply(ctx context.Context, seeder catalog.Seeder, s catalog.Seed, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	if err := seeder.Seed(ctx, s); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	templates := 0
	for _, t := range s.Topics {
		templates += len(t.Templates)
	}
	log.Info("catalog seeded",
		logger.Component("seed"),
		logger.Int("topics", len(s.Topics)),
		logger.Int("templates", templates),
		logger.Int("lessons", len(s.Lessons)),
	)
	return nil
}
