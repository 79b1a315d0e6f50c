// Package persona loads the host persona that shapes the broadcast script.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const genericPrompt = "You are a helpful radio script writer."

// Persona describes the show host. Files may be YAML or JSON.
type Persona struct {
	Name        string     `yaml:"name"`
	Tone        string     `yaml:"tone"`
	Favorites   stringList `yaml:"favorites"`
	LanguageMix string     `yaml:"language_mix"`

	raw map[string]any
}

type stringList []string

// UnmarshalYAML accepts a sequence or a comma-separated scalar.
func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(node.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("favorites must be a list or a string")
	}
}

// Load reads path. A missing file yields an empty persona.
func Load(path string) (Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Persona{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Persona{}, nil
	}
	if err != nil {
		return Persona{}, fmt.Errorf("read persona: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON persona document.
func Parse(data []byte) (Persona, error) {
	var p Persona
	if strings.TrimSpace(string(data)) == "" {
		return p, nil
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona: %w", err)
	}
	if err := yaml.Unmarshal(data, &p.raw); err != nil {
		return Persona{}, fmt.Errorf("parse persona: %w", err)
	}
	return p, nil
}

// IsEmpty reports whether no persona was configured.
func (p Persona) IsEmpty() bool {
	return len(p.raw) == 0 && p.Name == "" && p.Tone == "" && len(p.Favorites) == 0 && p.LanguageMix == ""
}

// SystemPrompt builds the script writer's system message.
func (p Persona) SystemPrompt() string {
	if p.IsEmpty() {
		return genericPrompt
	}
	lines := []string{
		"You are the persona described below:",
		"Name: " + or(p.Name, "MorningCast Host"),
		"Tone: " + or(p.Tone, "warm and witty"),
		"Preferred language mix: " + or(p.LanguageMix, "Chinese"),
	}
	if len(p.Favorites) > 0 {
		lines = append(lines, "Music preferences: "+strings.Join(p.Favorites, ", "))
	}
	return strings.Join(lines, "\n")
}

// JSON renders every field of the source document, including keys this
// package does not interpret.
func (p Persona) JSON() string {
	doc := p.raw
	if doc == nil {
		doc = map[string]any{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
