package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedLoader reads source seed definitions from a directory of YAML files,
// one source per file. The source name defaults to the file name.
type SeedLoader struct {
	sourcesDir string
}

func NewSeedLoader(sourcesDir string) *SeedLoader {
	return &SeedLoader{sourcesDir: sourcesDir}
}

type rawSeed struct {
	Type        SourceType `yaml:"type"`
	Name        string     `yaml:"name"`
	URL         string     `yaml:"url"`
	Username    string     `yaml:"username"`
	Priority    Priority   `yaml:"priority"`
	Active      *bool      `yaml:"active"`
	Description string     `yaml:"description"`
}

func (l *SeedLoader) Run() ([]Source, error) {
	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	seeds := make([]Source, 0, len(files))
	for _, file := range files {
		source, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source seed loaded", "name", source.Name, "type", source.Type, "active", source.Active)
		seeds = append(seeds, *source)
	}

	return seeds, nil
}

func (l *SeedLoader) loadFile(file string) (*Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw rawSeed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	source := Source{
		Type:        raw.Type,
		Name:        raw.Name,
		URL:         raw.URL,
		Username:    raw.Username,
		Priority:    raw.Priority,
		Active:      true,
		Description: raw.Description,
	}

	if source.Name == "" {
		source.Name = strings.TrimSuffix(filepath.Base(file), ".yml")
	}
	if source.Priority == "" {
		source.Priority = PriorityMedium
	}
	if raw.Active != nil {
		source.Active = *raw.Active
	}

	if err := l.validate(&source); err != nil {
		return nil, err
	}

	return &source, nil
}

func (l *SeedLoader) validate(source *Source) error {
	if source.Type == "" {
		return fmt.Errorf("source type is required")
	}
	if source.Name == "" {
		return fmt.Errorf("source name is required")
	}

	switch source.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("invalid priority: %s", source.Priority)
	}

	return nil
}
