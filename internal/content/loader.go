package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads curriculum, lesson and exercise documents from a directory tree.
//
// Layout:
//
//	<root>/curriculum.yaml     grades, topics and lesson summaries
//	<root>/lessons/*.json      lesson bodies (.yaml also accepted)
//	<root>/exercises/*.json    exercise bodies (.yaml also accepted)
//
// Invalid documents are logged and skipped so one broken file never blocks the catalog.
type Loader struct {
	rootDir   string
	validator *Validator
	registry  *Registry
}

// Load walks rootDir and returns a registry holding every valid document found.
func Load(rootDir string) (*Registry, error) {
	l := &Loader{
		rootDir:   rootDir,
		validator: NewValidator(),
		registry:  NewRegistry(),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	slog.Info("content loaded",
		"grades", len(l.registry.curriculum.Grades),
		"lessons", len(l.registry.lessons),
		"exercises", len(l.registry.exercises),
	)
	return l.registry, nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !isDocument(path) {
			return nil
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		switch {
		case name == "curriculum":
			return l.loadCurriculum(path)
		case filepath.Base(filepath.Dir(path)) == "lessons":
			return l.loadLesson(path)
		case filepath.Base(filepath.Dir(path)) == "exercises":
			return l.loadExercise(path)
		}
		return nil
	})
}

func (l *Loader) loadCurriculum(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c Curriculum
	if isYAML(path) {
		err = yaml.Unmarshal(data, &c)
	} else {
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		slog.Warn("skipping invalid curriculum", "path", path, "error", err)
		return nil
	}
	if err := l.validator.Curriculum(c); err != nil {
		slog.Warn("skipping invalid curriculum", "path", path, "error", err)
		return nil
	}

	l.registry.SetCurriculum(c)
	return nil
}

func (l *Loader) loadLesson(path string) error {
	var lesson Lesson
	if ok, err := l.decode(path, &lesson); err != nil || !ok {
		return err
	}
	if err := l.validator.Lesson(lesson); err != nil {
		slog.Warn("skipping invalid lesson", "path", path, "error", err)
		return nil
	}

	l.registry.AddLesson(lesson)
	return nil
}

func (l *Loader) loadExercise(path string) error {
	var exercise Exercise
	if ok, err := l.decode(path, &exercise); err != nil || !ok {
		return err
	}
	if err := l.validator.Exercise(exercise); err != nil {
		slog.Warn("skipping invalid exercise", "path", path, "error", err)
		return nil
	}

	l.registry.AddExercise(exercise)
	return nil
}

// decode reads a JSON or YAML document into v. YAML is routed through JSON so the
// tagged section and question decoders apply to both formats. It returns false when
// the document was skipped.
func (l *Loader) decode(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			slog.Warn("skipping invalid YAML", "path", path, "error", err)
			return false, nil
		}
		if data, err = json.Marshal(doc); err != nil {
			slog.Warn("skipping unconvertible YAML", "path", path, "error", err)
			return false, nil
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("skipping invalid document", "path", path, "error", err)
		return false, nil
	}
	return true, nil
}

func isDocument(path string) bool {
	return strings.HasSuffix(path, ".json") || isYAML(path)
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
