package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"morningcast/internal/config"
	"morningcast/internal/script"
)

// openAIInputLimit is the maximum characters accepted per speech request.
const openAIInputLimit = 4000

// OpenAI uses the /v1/audio/speech endpoint. Long scripts are split into
// paragraph-aligned chunks and the MP3 responses are concatenated.
type OpenAI struct {
	cfg    config.OpenAISpeech
	client *http.Client
}

// NewOpenAI requires an API key.
func NewOpenAI(cfg config.OpenAISpeech, client *http.Client) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai speech api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1/audio/speech"
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &OpenAI{cfg: cfg, client: client}, nil
}

func (o *OpenAI) Name() string      { return "openai" }
func (o *OpenAI) Accepts() Input    { return Plain }
func (o *OpenAI) Extension() string { return ".mp3" }

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize requests each chunk in order and writes the joined audio.
func (o *OpenAI) Synthesize(ctx context.Context, text, outPath string) error {
	chunks := ChunkText(text, openAIInputLimit)
	if len(chunks) == 0 {
		return errors.New("openai speech: empty input")
	}
	parts := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		payload, err := json.Marshal(openAISpeechRequest{
			Model:          o.cfg.Model,
			Voice:          o.cfg.Voice,
			Input:          chunk,
			ResponseFormat: "mp3",
		})
		if err != nil {
			return fmt.Errorf("openai speech: encode body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("openai speech: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
		audio, err := fetchAudio(o.client, "openai", jsonRequest(req))
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, audio)
	}
	return writeAudio(outPath, parts...)
}

// ChunkText packs paragraphs into chunks of at most limit runes. Oversized
// paragraphs are split by sentence, and oversized sentences by rune count.
func ChunkText(text string, limit int) []string {
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if runeLen(para) <= limit {
			pieces = append(pieces, para)
			continue
		}
		for _, sentence := range script.SplitSentences(para) {
			pieces = append(pieces, splitRunes(sentence, limit)...)
		}
	}

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		sep := 0
		if current.Len() > 0 {
			sep = 2
		}
		if current.Len() > 0 && runeLen(current.String())+sep+runeLen(piece) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitRunes(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var out []string
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
