package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "persona.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !p.IsEmpty() || p.SystemPrompt() != "You are a helpful radio script writer." || p.JSON() != "{}" {
		t.Fatalf("unexpected empty persona %+v", p)
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
name: Mei
tone: playful
favorites:
  - city pop
  - jazz
catchphrase: "Rise and shine"
`
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := strings.Join([]string{
		"You are the persona described below:",
		"Name: Mei",
		"Tone: playful",
		"Preferred language mix: Chinese",
		"Music preferences: city pop, jazz",
	}, "\n")
	if got := p.SystemPrompt(); got != want {
		t.Fatalf("SystemPrompt:\n%s\nwant:\n%s", got, want)
	}
	if !strings.Contains(p.JSON(), `"catchphrase":"Rise and shine"`) {
		t.Fatalf("JSON should keep unknown keys: %s", p.JSON())
	}
}

func TestParseJSONWithScalarFavorites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.json")
	if err := os.WriteFile(path, []byte(`{"name":"Host","favorites":"lofi, rock","language_mix":"English"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(p.Favorites) != 2 || p.Favorites[1] != "rock" || p.LanguageMix != "English" {
		t.Fatalf("unexpected persona %+v", p)
	}
	if !strings.Contains(p.SystemPrompt(), "Tone: warm and witty") {
		t.Fatal("missing tone should use the default")
	}
}

func TestParseRejectsBadFavorites(t *testing.T) {
	if _, err := Parse([]byte("favorites:\n  a: b\n")); err == nil {
		t.Fatal("expected error for mapping favorites")
	}
}
