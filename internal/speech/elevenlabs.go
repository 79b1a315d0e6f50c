package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"morningcast/internal/config"
)

// ElevenLabs streams speech from the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	cfg    config.ElevenLabs
	client *http.Client
}

// NewElevenLabs requires an API key.
func NewElevenLabs(cfg config.ElevenLabs, client *http.Client) (*ElevenLabs, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("elevenlabs api key is required")
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		return nil, errors.New("elevenlabs voice id is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &ElevenLabs{cfg: cfg, client: client}, nil
}

func (e *ElevenLabs) Name() string      { return "elevenlabs" }
func (e *ElevenLabs) Accepts() Input    { return Plain }
func (e *ElevenLabs) Extension() string { return ".mp3" }

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize posts text to the streaming endpoint and writes the MP3 body.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, outPath string) error {
	endpoint, err := url.JoinPath(e.cfg.BaseURL, "text-to-speech", e.cfg.VoiceID, "stream")
	if err != nil {
		return fmt.Errorf("elevenlabs request: build url: %w", err)
	}
	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: elevenLabsSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Accept", "audio/mpeg")
	audio, err := fetchAudio(e.client, "elevenlabs", jsonRequest(req))
	if err != nil {
		return err
	}
	return writeAudio(outPath, audio)
}
