package mixer

import "morningcast/internal/config"

// Settings holds envelope, ducking and mastering parameters in seconds,
// decibels and LUFS.
type Settings struct {
	LeadIn         float64
	SegmentLength  float64
	FadeIn         float64
	FadeOut        float64
	Crossfade      float64
	BedGainDB      float64
	VoiceGainDB    float64
	GapSeconds     float64
	ClosingFadeIn  float64
	LoudnessTarget float64
	TruePeak       float64
	LoudnessRange  float64
	SampleRate     int
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default().Mixer)
}

// SettingsFromConfig maps the [mixer] config section.
func SettingsFromConfig(cfg config.Mixer) Settings {
	s := Settings{
		LeadIn:         cfg.LeadInSeconds,
		SegmentLength:  cfg.SegmentSeconds,
		FadeIn:         cfg.FadeInSeconds,
		FadeOut:        cfg.FadeOutSeconds,
		Crossfade:      cfg.CrossfadeSeconds,
		BedGainDB:      cfg.BedGainDB,
		GapSeconds:     cfg.GapSeconds,
		ClosingFadeIn:  cfg.ClosingFadeIn,
		LoudnessTarget: cfg.LoudnessTarget,
		TruePeak:       cfg.TruePeak,
		LoudnessRange:  cfg.LoudnessRange,
		SampleRate:     cfg.SampleRate,
	}
	if s.SampleRate <= 0 {
		s.SampleRate = 44100
	}
	return s
}

// SegmentPlan describes one bed excerpt.
type SegmentPlan struct {
	Source   string  `json:"source"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	FadeIn   float64 `json:"fade_in"`
	FadeOut  float64 `json:"fade_out"`
}

// PlanSegment starts the excerpt LeadIn seconds before the hook, floored at
// the start of the track.
func (s Settings) PlanSegment(source string, hookSeconds float64) SegmentPlan {
	start := hookSeconds - s.LeadIn
	if start < 0 {
		start = 0
	}
	return SegmentPlan{
		Source:   source,
		Start:    start,
		Duration: s.SegmentLength,
		FadeIn:   s.FadeIn,
		FadeOut:  s.FadeOut,
	}
}
