package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownProviders = map[string]struct{}{
	"azure":      {},
	"elevenlabs": {},
	"openai":     {},
	"edge":       {},
}

// Validate ensures the configuration is usable. Missing credentials are not an
// error here: providers without credentials are skipped at run time.
func (c *Config) Validate() error {
	if err := c.validateBroadcast(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateMixer(); err != nil {
		return err
	}
	if err := c.validateHook(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	if c.Broadcast.Latitude < -90 || c.Broadcast.Latitude > 90 {
		return errors.New("broadcast.latitude must be between -90 and 90")
	}
	if c.Broadcast.Longitude < -180 || c.Broadcast.Longitude > 180 {
		return errors.New("broadcast.longitude must be between -180 and 180")
	}
	if strings.ContainsAny(c.Broadcast.OutputFormat, `/\. `) {
		return fmt.Errorf("broadcast.output_format %q must be a bare extension such as mp3", c.Broadcast.OutputFormat)
	}
	return nil
}

func (c *Config) validateLLM() error {
	temps := map[string]float64{
		"llm.refiner_temperature": c.LLM.RefinerTemperature,
		"llm.planner_temperature": c.LLM.PlannerTemperature,
		"llm.script_temperature":  c.LLM.ScriptTemperature,
	}
	for key, value := range temps {
		if value < 0 || value > 2 {
			return fmt.Errorf("%s must be between 0 and 2", key)
		}
	}
	return nil
}

func (c *Config) validateSpeech() error {
	for _, name := range c.Speech.Providers {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("speech.providers: unknown provider %q (expected azure, elevenlabs, openai or edge)", name)
		}
	}
	if c.Speech.ElevenLabs.Stability < 0 || c.Speech.ElevenLabs.Stability > 1 {
		return errors.New("speech.elevenlabs.stability must be between 0 and 1")
	}
	if c.Speech.ElevenLabs.SimilarityBoost < 0 || c.Speech.ElevenLabs.SimilarityBoost > 1 {
		return errors.New("speech.elevenlabs.similarity_boost must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMixer() error {
	if err := ensurePositiveMap(map[string]float64{
		"mixer.segment_seconds":   c.Mixer.SegmentSeconds,
		"mixer.crossfade_seconds": c.Mixer.CrossfadeSeconds,
		"mixer.sample_rate":       float64(c.Mixer.SampleRate),
	}); err != nil {
		return err
	}
	if err := ensureNonNegativeMap(map[string]float64{
		"mixer.lead_in_seconds":         c.Mixer.LeadInSeconds,
		"mixer.fade_in_seconds":         c.Mixer.FadeInSeconds,
		"mixer.fade_out_seconds":        c.Mixer.FadeOutSeconds,
		"mixer.gap_seconds":             c.Mixer.GapSeconds,
		"mixer.closing_fade_in_seconds": c.Mixer.ClosingFadeIn,
	}); err != nil {
		return err
	}
	if c.Mixer.BedGainDB > 0 {
		return errors.New("mixer.bed_gain_db must be <= 0")
	}
	if c.Mixer.LoudnessTarget < -70 || c.Mixer.LoudnessTarget > -5 {
		return errors.New("mixer.loudness_target must be between -70 and -5 LUFS")
	}
	return nil
}

func (c *Config) validateHook() error {
	if c.Hook.WindowStart < 0 {
		return errors.New("hook.window_start must be >= 0")
	}
	if c.Hook.WindowEnd <= c.Hook.WindowStart {
		return errors.New("hook.window_end must be greater than hook.window_start")
	}
	return nil
}

func ensurePositiveMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]float64) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
