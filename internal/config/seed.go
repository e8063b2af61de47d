package config

import (
	_ "embed"
	"fmt"
	"livepoll/internal/model"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// SeedQuestion describes one question of a seed session
type SeedQuestion struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Title   string   `yaml:"title"`
	Options []string `yaml:"options"`
	Items   []string `yaml:"items"`
}

// SeedSession describes a session created at startup under a fixed code
type SeedSession struct {
	Code      string         `yaml:"code"`
	Questions []SeedQuestion `yaml:"questions"`
}

// Seed is the content of a seed file
type Seed struct {
	Sessions []SeedSession `yaml:"sessions"`
}

// LoadSeed reads a seed file. An empty path yields the built-in sample session.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and checks seed YAML
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	for i, s := range seed.Sessions {
		if model.NormalizeCode(s.Code) == "" {
			return nil, fmt.Errorf("seed session %d: missing code", i)
		}
		for _, q := range s.Questions {
			if !model.QuestionType(q.Type).Valid() {
				return nil, fmt.Errorf("seed session %s: unknown question type %q", s.Code, q.Type)
			}
		}
	}
	return &seed, nil
}

// ModelQuestions converts the seed questions of a session
func (s SeedSession) ModelQuestions() []*model.Question {
	out := make([]*model.Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		out = append(out, &model.Question{
			ID:      q.ID,
			Type:    model.QuestionType(q.Type),
			Title:   q.Title,
			Options: q.Options,
			Items:   q.Items,
		})
	}
	return out
}
