package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"morningcast/internal/feeds"
	"morningcast/internal/logging"
	"morningcast/internal/persona"
	"morningcast/internal/services"
	"morningcast/internal/services/llm"
)

const (
	refinerSystemPrompt = "You are a Taiwanese Mandarin radio copywriter."
	refinerPrompt       = `You write for a warm, humorous morning radio show.
Rewrite the record below as one conversational sentence a host can read aloud.
Input:
%s
Respond with JSON only: {"spoken_line": "..."}`

	plannerSystemPrompt = "You are a radio program director who thinks in Mandarin."
	plannerPrompt       = `Plan this morning's show from the material below.
Return a JSON array of segments. Each segment has id, title, emotion, and optionally song (an exact title from songs_meta) and reason.
Output only JSON that parses.
Material:
%s`

	scriptPrompt = `You are a morning radio host. Using the segment plan and persona below, write the complete word-for-word script as SSML, including tone, pauses and music cue points.
Program plan:
%s
Persona:
%s
Output the <speak> ... </speak> document directly.`
)

// refine renders each item as one spoken line. A failed or unusable reply
// yields a deterministic line built from the item so the batch keeps one
// line per item.
func (c *Coordinator) refine(ctx context.Context, items []feeds.Item) []string {
	logger := logging.WithContext(ctx, c.logger)
	lines := make([]string, 0, len(items))
	fallbacks := 0
	for idx, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			payload = []byte(item.Category)
		}
		raw, err := c.generator.Generate(ctx, llm.Request{
			Model:       c.cfg.LLM.RefinerModel,
			Temperature: c.cfg.LLM.RefinerTemperature,
			JSON:        true,
			Messages: []llm.Message{
				llm.System(refinerSystemPrompt),
				llm.User(fmt.Sprintf(refinerPrompt, payload)),
			},
		})
		line := ""
		if err != nil {
			logging.WarnWithContext(logger, "line refinement failed; using fallback line",
				"refine_failed",
				logging.Int("item_index", idx),
				logging.String("category", item.Category),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item is read from a template instead of a written line"),
			)
		} else {
			line = spokenLine(raw)
		}
		if line == "" {
			line = FallbackLine(item)
			fallbacks++
		}
		lines = append(lines, line)
	}
	logger.Info("spoken lines refined",
		logging.String(logging.FieldEventType, "refine_complete"),
		logging.Int("lines", len(lines)),
		logging.Int("fallback_lines", fallbacks),
	)
	return lines
}

// spokenLine extracts the spoken_line field, falling back to the reply text
// when it is not JSON.
func spokenLine(raw string) string {
	var parsed struct {
		SpokenLine string `json:"spoken_line"`
	}
	if err := llm.DecodeReply(raw, &parsed); err == nil {
		return strings.TrimSpace(parsed.SpokenLine)
	}
	text := llm.StripCodeFence(raw)
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	return text
}

// FallbackLine renders item without a generative call.
func FallbackLine(item feeds.Item) string {
	switch item.Category {
	case feeds.CategoryWeather:
		line := fmt.Sprintf("Weather in %s today: %s to %s degrees.",
			orText(item.String("city"), "town"), reading(item, "temperature_low"), reading(item, "temperature_high"))
		if pop := reading(item, "precipitation_chance"); pop != "?" {
			line += fmt.Sprintf(" Chance of rain %s%%.", pop)
		}
		return line
	case feeds.CategoryCalendar:
		line := "On the calendar: " + orText(item.String("title"), "an event")
		if start := item.String("start"); start != "" {
			line += " at " + start
		}
		return line + "."
	case feeds.CategoryEmail:
		subject := orText(item.String("summary"), item.String("subject"))
		if from := item.String("from"); from != "" {
			return fmt.Sprintf("A message from %s: %s.", from, orText(subject, "no subject"))
		}
		return "In the inbox: " + orText(subject, "a new message") + "."
	default:
		return fmt.Sprintf("A note about %s.", orText(item.Category, "today"))
	}
}

func reading(item feeds.Item, key string) string {
	value, ok := item.Fields[key].(float64)
	if !ok {
		return "?"
	}
	return formatReading(value)
}

func orText(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// plan requests and validates the program plan. The planner reply is never
// retried: a malformed plan fails the run.
func (c *Coordinator) plan(ctx context.Context, inputs PlanInputs) ([]Segment, error) {
	logger := logging.WithContext(ctx, c.logger)
	payload, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "plan", "encode payload", "", err)
	}
	raw, err := c.generator.Generate(ctx, llm.Request{
		Model:       c.cfg.LLM.PlannerModel,
		Temperature: c.cfg.LLM.PlannerTemperature,
		Messages: []llm.Message{
			llm.System(plannerSystemPrompt),
			llm.User(fmt.Sprintf(plannerPrompt, payload)),
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "plan", "generate", "planner request failed", err)
	}
	segments, err := ParsePlan(raw)
	if err != nil {
		logging.ErrorWithContext(logger, "planner output is not valid JSON",
			"plan_parse_failed",
			logging.String("response", llm.Snippet(raw)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the planner model output; no retry is attempted"),
		)
		return nil, err
	}
	logger.Info("program planned",
		logging.String(logging.FieldEventType, "plan_complete"),
		logging.Int("segments", len(segments)),
		logging.Int("song_cues", len(songTitles(segments))),
	)
	return segments, nil
}

// writeScript asks for the full narrative. The reply is free text.
func (c *Coordinator) writeScript(ctx context.Context, plan Plan, host persona.Persona) (string, error) {
	logger := logging.WithContext(ctx, c.logger)
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "script", "encode plan", "", err)
	}
	raw, err := c.generator.Generate(ctx, llm.Request{
		Model:       c.cfg.LLM.ScriptModel,
		Temperature: c.cfg.LLM.ScriptTemperature,
		MaxTokens:   c.cfg.LLM.ScriptMaxTokens,
		Messages: []llm.Message{
			llm.System(host.SystemPrompt()),
			llm.User(fmt.Sprintf(scriptPrompt, planJSON, host.JSON())),
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "script", "generate", "script request failed", err)
	}
	logger.Info("script generated",
		logging.String(logging.FieldEventType, "script_complete"),
		logging.Int("characters", len([]rune(raw))),
	)
	return raw, nil
}
