// Package gemini adapts Google's Gemini API to the llm.Generator interface so
// it can serve as a fallback generative backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"morningcast/internal/services/llm"
)

const defaultModel = "gemini-1.5-flash"

// Config holds the Gemini credentials and model.
type Config struct {
	APIKey string
	Model  string
}

// Backend generates text with Gemini.
type Backend struct {
	cfg Config
}

// New returns a backend, or an error when no API key is configured.
func New(cfg Config) (*Backend, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Backend{cfg: cfg}, nil
}

// Name identifies the backend.
func (b *Backend) Name() string {
	return "gemini"
}

// Generate sends the request's system messages as the system instruction and
// the user messages as one prompt.
func (b *Backend) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = b.cfg.Model
	}
	system, prompt := splitMessages(req.Messages)
	if prompt == "" {
		return "", errors.New("gemini generate: user prompt required")
	}
	call := generateCall{
		apiKey:      b.cfg.APIKey,
		model:       model,
		system:      system,
		prompt:      prompt,
		temperature: req.Temperature,
		maxTokens:   req.MaxTokens,
		json:        req.JSON,
	}
	text, err := generateContent(ctx, call)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return text, nil
}

type generateCall struct {
	apiKey      string
	model       string
	system      string
	prompt      string
	temperature float64
	maxTokens   int
	json        bool
}

var generateContent = callGemini

func callGemini(ctx context.Context, call generateCall) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(call.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(call.model)
	model.SetTemperature(float32(call.temperature))
	if call.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(call.maxTokens))
	}
	if call.system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(call.system)}}
	}
	if call.json {
		model.ResponseMIMEType = "application/json"
	}
	resp, err := model.GenerateContent(ctx, genai.Text(call.prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func splitMessages(messages []llm.Message) (string, string) {
	var system, user []string
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if msg.Role == llm.RoleSystem {
			system = append(system, content)
		} else {
			user = append(user, content)
		}
	}
	return strings.Join(system, "\n\n"), strings.Join(user, "\n\n")
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty candidates")
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", errors.New("empty candidate content")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("empty text parts")
	}
	return out, nil
}

// SetGenerateForTests replaces the Gemini API call.
func SetGenerateForTests(fn func(ctx context.Context, model, system, prompt string) (string, error)) func() {
	prev := generateContent
	if fn == nil {
		generateContent = callGemini
	} else {
		generateContent = func(ctx context.Context, call generateCall) (string, error) {
			return fn(ctx, call.model, call.system, call.prompt)
		}
	}
	return func() { generateContent = prev }
}
