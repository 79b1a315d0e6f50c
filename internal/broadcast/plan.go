package broadcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"morningcast/internal/catalog"
	"morningcast/internal/feeds"
	"morningcast/internal/services/llm"
)

// SegmentID accepts a JSON string or number.
type SegmentID string

// UnmarshalJSON stores numbers in their literal form.
func (id *SegmentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SegmentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = SegmentID(n.String())
	return nil
}

// Segment is one block of the planned program.
type Segment struct {
	ID      SegmentID `json:"id"`
	Title   string    `json:"title"`
	Emotion string    `json:"emotion,omitempty"`
	Song    string    `json:"song,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// TemperatureRange is the planner's view of the forecast. Unknown readings
// encode as null.
type TemperatureRange struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// PlanWeather is the weather block of the planner payload.
type PlanWeather struct {
	City string           `json:"city"`
	Temp TemperatureRange `json:"temp"`
	Pop  *float64         `json:"pop"`
}

// PlanInputs is the payload sent to the planner and kept in the plan file.
type PlanInputs struct {
	SpokenLines []string              `json:"spoken_lines"`
	Emails      []feeds.Item          `json:"emails"`
	Weather     PlanWeather           `json:"weather"`
	Calendar    []feeds.CalendarEvent `json:"calendar"`
	SongsMeta   []catalog.Song        `json:"songs_meta"`
}

// Plan is the program plan written to podcast_<slug>.json.
type Plan struct {
	GeneratedAt string     `json:"generated_at"`
	Inputs      PlanInputs `json:"inputs"`
	Segments    []Segment  `json:"segments"`
}

func newPlanInputs(lines []string, in Inputs, songs []catalog.Song) PlanInputs {
	inputs := PlanInputs{
		SpokenLines: lines,
		Emails:      in.Emails,
		Weather: PlanWeather{
			City: in.Weather.City,
			Temp: TemperatureRange{
				Low:  feeds.Nullable(in.Weather.TemperatureLow),
				High: feeds.Nullable(in.Weather.TemperatureHigh),
			},
			Pop: feeds.Nullable(in.Weather.PrecipitationChance),
		},
		Calendar:  in.Calendar,
		SongsMeta: songs,
	}
	if inputs.SpokenLines == nil {
		inputs.SpokenLines = []string{}
	}
	if inputs.Emails == nil {
		inputs.Emails = []feeds.Item{}
	}
	if inputs.Calendar == nil {
		inputs.Calendar = []feeds.CalendarEvent{}
	}
	if inputs.SongsMeta == nil {
		inputs.SongsMeta = []catalog.Song{}
	}
	return inputs
}

// ParsePlan decodes planner output after stripping a surrounding code fence.
// A JSON array of segments and an object with a "segments" array are both
// accepted. Anything else is a *PlanParseError carrying raw.
func ParsePlan(raw string) ([]Segment, error) {
	cleaned := llm.StripCodeFence(raw)
	if cleaned == "" {
		return nil, &PlanParseError{Raw: raw, Err: errors.New("empty response")}
	}

	var segments []Segment
	arrayErr := json.Unmarshal([]byte(cleaned), &segments)
	if arrayErr == nil {
		if segments == nil {
			return nil, &PlanParseError{Raw: raw, Err: errors.New("plan is null")}
		}
		return segments, nil
	}

	var wrapped struct {
		Segments *[]Segment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		if wrapped.Segments == nil {
			return nil, &PlanParseError{Raw: raw, Err: errors.New(`object has no "segments" list`)}
		}
		return *wrapped.Segments, nil
	}
	return nil, &PlanParseError{Raw: raw, Err: arrayErr}
}

func formatReading(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "?"
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func temperatureRange(w feeds.Weather) string {
	return formatReading(w.TemperatureLow) + "-" + formatReading(w.TemperatureHigh)
}

func songTitles(segments []Segment) []string {
	var titles []string
	for _, seg := range segments {
		if title := strings.TrimSpace(seg.Song); title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}
