package speech

import (
	"net/http"
	"strings"

	"morningcast/internal/config"
)

// Factories returns provider factories in the configured chain order.
// Unknown names are ignored; config validation rejects them earlier.
func Factories(cfg *config.Config, client *http.Client) []Factory {
	if client == nil {
		client = NewHTTPClient(cfg.Speech.TimeoutSeconds)
	}
	speech := cfg.Speech
	out := make([]Factory, 0, len(speech.Providers))
	for _, name := range speech.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "azure":
			out = append(out, Factory{Name: "azure", New: func() (Provider, error) {
				return NewAzure(speech.Azure, client)
			}})
		case "elevenlabs":
			out = append(out, Factory{Name: "elevenlabs", New: func() (Provider, error) {
				return NewElevenLabs(speech.ElevenLabs, client)
			}})
		case "openai":
			out = append(out, Factory{Name: "openai", New: func() (Provider, error) {
				return NewOpenAI(speech.OpenAI, client)
			}})
		case "edge":
			out = append(out, Factory{Name: "edge", New: func() (Provider, error) {
				return NewEdge(speech.Edge)
			}})
		}
	}
	return out
}
