package broadcast

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"morningcast/internal/catalog"
	"morningcast/internal/feeds"
	"morningcast/internal/services"
)

func TestParsePlanAcceptsArrayAndWrappedObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "array", raw: `[{"id":1,"title":"Opening","emotion":"bright","song":"Sunrise"},{"id":"2","title":"Weather"}]`},
		{name: "fenced", raw: "```json\n[{\"id\":1,\"title\":\"Opening\",\"emotion\":\"bright\",\"song\":\"Sunrise\"},{\"id\":\"2\",\"title\":\"Weather\"}]\n```"},
		{name: "wrapped", raw: `{"segments":[{"id":1,"title":"Opening","emotion":"bright","song":"Sunrise"},{"id":"2","title":"Weather","song":null}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := ParsePlan(tc.raw)
			if err != nil {
				t.Fatalf("ParsePlan: %v", err)
			}
			if len(segments) != 2 {
				t.Fatalf("expected 2 segments, got %d", len(segments))
			}
			if segments[0].ID != "1" || segments[1].ID != "2" {
				t.Fatalf("unexpected ids %q %q", segments[0].ID, segments[1].ID)
			}
			if segments[0].Song != "Sunrise" || segments[1].Song != "" {
				t.Fatalf("unexpected songs %+v", segments)
			}
		})
	}
}

func TestParsePlanRejectsMalformedOutput(t *testing.T) {
	for _, raw := range []string{"not json", "", "```json\n```", `{"title":"only one"}`, "null", `[{"id":1,"song":{"title":"x"}}]`} {
		_, err := ParsePlan(raw)
		if !errors.Is(err, ErrPlanParse) {
			t.Fatalf("ParsePlan(%q) error = %v, want ErrPlanParse", raw, err)
		}
		var parseErr *PlanParseError
		if !errors.As(err, &parseErr) || parseErr.Raw != raw {
			t.Fatalf("expected raw response %q to be captured, got %+v", raw, parseErr)
		}
		if services.FailureKind(err) != "validation" {
			t.Fatalf("expected validation failure kind, got %s", services.FailureKind(err))
		}
	}
}

func TestParsePlanAllowsEmptyList(t *testing.T) {
	segments, err := ParsePlan("[]")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(segments))
	}
}

func TestPlanInputsEncodeUnknownWeatherAsNull(t *testing.T) {
	weather := feeds.UnavailableWeather("Taipei")
	weather.TemperatureHigh = 27
	inputs := newPlanInputs(nil, Inputs{Weather: weather}, nil)

	data, err := json.Marshal(inputs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`"weather":{"city":"Taipei","temp":{"low":null,"high":27},"pop":null}`,
		`"spoken_lines":[]`,
		`"emails":[]`,
		`"calendar":[]`,
		`"songs_meta":[]`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("payload %s missing %s", text, want)
		}
	}
}

func TestPlanInputsCarrySongMetadata(t *testing.T) {
	bpm := 100.0
	inputs := newPlanInputs([]string{"line"}, Inputs{Weather: feeds.UnavailableWeather("Taipei")},
		[]catalog.Song{{Title: "Morning Light", Artist: "Band", Path: "/music/ml.mp3", BPM: &bpm}})
	data, err := json.Marshal(inputs.SongsMeta)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"title":"Morning Light","artist":"Band","path":"/music/ml.mp3","bpm":100,"energy":null}]`
	if string(data) != want {
		t.Fatalf("songs_meta = %s, want %s", data, want)
	}
}

func TestFallbackLine(t *testing.T) {
	tests := []struct {
		name string
		item feeds.Item
		want string
	}{
		{
			name: "weather",
			item: feeds.Weather{City: "Taipei", TemperatureLow: 20, TemperatureHigh: 27, PrecipitationChance: 10}.Item(),
			want: "Weather in Taipei today: 20 to 27 degrees. Chance of rain 10%.",
		},
		{
			name: "unknown weather",
			item: feeds.UnavailableWeather("Taipei").Item(),
			want: "Weather in Taipei today: ? to ? degrees.",
		},
		{
			name: "calendar",
			item: feeds.CalendarEvent{Title: "Standup", Start: "2026-03-14T09:30:00+08:00"}.Item(),
			want: "On the calendar: Standup at 2026-03-14T09:30:00+08:00.",
		},
		{
			name: "email",
			item: feeds.NewItem("email", map[string]any{"from": "Ann", "summary": "Lunch moved to noon"}),
			want: "A message from Ann: Lunch moved to noon.",
		},
		{
			name: "email without sender",
			item: feeds.NewItem("email", map[string]any{"subject": "Invoice"}),
			want: "In the inbox: Invoice.",
		},
		{
			name: "other",
			item: feeds.NewItem("traffic", nil),
			want: "A note about traffic.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FallbackLine(tc.item); got != tc.want {
				t.Fatalf("FallbackLine = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSpokenLine(t *testing.T) {
	tests := map[string]string{
		`{"spoken_line":"  早安台北  "}`:               "早安台北",
		"```json\n{\"spoken_line\":\"hi\"}\n```": "hi",
		"Plain sentence.":                        "Plain sentence.",
		`{"other":"x"}`:                          "",
		`{"spoken_line":`:                        "",
	}
	for raw, want := range tests {
		if got := spokenLine(raw); got != want {
			t.Fatalf("spokenLine(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestTemperatureRange(t *testing.T) {
	if got := temperatureRange(feeds.Weather{TemperatureLow: 20.5, TemperatureHigh: 27}); got != "20.5-27" {
		t.Fatalf("unexpected range %q", got)
	}
	if got := temperatureRange(feeds.Weather{TemperatureLow: math.NaN(), TemperatureHigh: 27}); got != "?-27" {
		t.Fatalf("unexpected range %q", got)
	}
}
