package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of participant definitions.
type Loader struct {
	participantsDir string
}

func NewLoader(participantsDir string) *Loader {
	return &Loader{participantsDir: participantsDir}
}

// LoadAll loads all YAML definition files from the participants directory,
// sorted by filename for a stable registration order.
func (l *Loader) LoadAll() ([]*Definition, error) {
	if _, err := os.Stat(l.participantsDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.participantsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.participantsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	definitions := make([]*Definition, 0, len(files))
	for _, file := range files {
		definition, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(definition); err != nil {
			return nil, fmt.Errorf("invalid definition %s: %w", file, err)
		}

		definitions = append(definitions, definition)
		slog.Debug("Participant definition loaded", "participant", definition.Slug, "feed_url", definition.FeedURL)
	}

	return definitions, nil
}

func (l *Loader) loadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var definition Definition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	definition.Slug = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")

	if definition.Name == "" {
		definition.Name = definition.Slug
	}

	return &definition, nil
}

func (l *Loader) validate(definition *Definition) error {
	if definition.Slug == "" {
		return fmt.Errorf("participant slug is empty")
	}
	// A missing feed URL is allowed: the participant is registered and the
	// batch records the condition as a per-run failure.
	if definition.SkipCount != nil && *definition.SkipCount < 0 {
		return fmt.Errorf("skip_count must be non-negative, got %d", *definition.SkipCount)
	}
	return nil
}
