package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"morningcast/internal/services/llm"
)

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
	backend, err := New(Config{APIKey: " key "})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if backend.cfg.Model != defaultModel || backend.Name() != "gemini" {
		t.Fatalf("unexpected backend %+v", backend.cfg)
	}
}

func TestGenerateSplitsMessages(t *testing.T) {
	var gotModel, gotSystem, gotPrompt string
	restore := SetGenerateForTests(func(_ context.Context, model, system, prompt string) (string, error) {
		gotModel, gotSystem, gotPrompt = model, system, prompt
		return "reply", nil
	})
	defer restore()

	backend, err := New(Config{APIKey: "k", Model: "gemini-pro"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	text, err := backend.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{llm.System("be brief"), llm.User("first"), llm.User("second")},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "reply" || gotModel != "gemini-pro" || gotSystem != "be brief" || gotPrompt != "first\n\nsecond" {
		t.Fatalf("unexpected call: %q %q %q -> %q", gotModel, gotSystem, gotPrompt, text)
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	backend, _ := New(Config{APIKey: "k"})
	if _, err := backend.Generate(context.Background(), llm.Request{Messages: []llm.Message{llm.System("only system")}}); err == nil {
		t.Fatal("expected error without user prompt")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Good "), genai.Text("morning")}},
		}},
	}
	text, err := responseText(resp)
	if err != nil || text != "Good morning" {
		t.Fatalf("unexpected %q %v", text, err)
	}
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
