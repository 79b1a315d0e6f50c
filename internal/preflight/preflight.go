package preflight

import (
	"context"

	"morningcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks never fail a doctor run.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFile("Song catalogue", cfg.Paths.SongsCSV, false))
	results = append(results, CheckFile("Email summaries", cfg.Paths.EmailsJSON, true))
	results = append(results, CheckFile("Persona", cfg.Paths.PersonaFile, true))
	if cfg.Paths.CoverImage != "" {
		results = append(results, CheckFile("Cover image", cfg.Paths.CoverImage, true))
	}

	results = append(results, CheckLLM(ctx, "LLM", cfg.LLM))
	results = append(results, CheckGemini(cfg.Gemini))
	results = append(results, CheckSpeechProviders(cfg)...)
	results = append(results, CheckGoogle(cfg.Google)...)

	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
