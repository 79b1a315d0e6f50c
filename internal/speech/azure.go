package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"morningcast/internal/config"
)

var (
	speakBodyPattern = regexp.MustCompile(`(?is)<speak[^>]*>(.*)</speak>`)
	voiceElemPattern = regexp.MustCompile(`(?i)<voice[\s>]`)
)

// Azure calls the Azure Speech REST endpoint with SSML.
type Azure struct {
	cfg      config.Azure
	client   *http.Client
	Endpoint string
}

// NewAzure requires a subscription key and region.
func NewAzure(cfg config.Azure, client *http.Client) (*Azure, error) {
	if strings.TrimSpace(cfg.Key) == "" || strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("azure speech key and region are required")
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Azure{
		cfg:      cfg,
		client:   client,
		Endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", strings.TrimSpace(cfg.Region)),
	}, nil
}

func (a *Azure) Name() string      { return "azure" }
func (a *Azure) Accepts() Input    { return Markup }
func (a *Azure) Extension() string { return ".wav" }

// Synthesize posts markup and writes the RIFF response.
func (a *Azure) Synthesize(ctx context.Context, markup, outPath string) error {
	body := AzureSSML(markup, a.cfg.Voice, a.cfg.Language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("azure request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.cfg.Key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "riff-44100hz-16bit-mono-pcm")
	req.Header.Set("User-Agent", "morningcast")
	audio, err := fetchAudio(a.client, "azure", req)
	if err != nil {
		return err
	}
	return writeAudio(outPath, audio)
}

// AzureSSML rewraps a <speak> document with the namespace, language and voice
// Azure requires. Documents that already select a voice keep it.
func AzureSSML(markup, voice, lang string) string {
	inner := strings.TrimSpace(markup)
	if m := speakBodyPattern.FindStringSubmatch(inner); m != nil {
		inner = strings.TrimSpace(m[1])
	}
	if lang == "" {
		lang = "en-US"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s">`, lang)
	if voiceElemPattern.MatchString(inner) || voice == "" {
		b.WriteString(inner)
	} else {
		fmt.Fprintf(&b, `<voice name="%s">%s</voice>`, voice, inner)
	}
	b.WriteString("</speak>")
	return b.String()
}
