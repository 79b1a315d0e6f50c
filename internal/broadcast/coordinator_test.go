package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"morningcast/internal/catalog"
	"morningcast/internal/config"
	"morningcast/internal/feeds"
	"morningcast/internal/mixer"
	"morningcast/internal/notifications"
	"morningcast/internal/persona"
	"morningcast/internal/runstore"
	"morningcast/internal/services/llm"
	"morningcast/internal/speech"
	"morningcast/internal/testsupport"
)

// scriptedGenerator answers each stage from its system prompt.
type scriptedGenerator struct {
	mu       sync.Mutex
	refine   func(req llm.Request) (string, error)
	planner  string
	script   string
	requests []llm.Request
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	switch req.Messages[0].Content {
	case refinerSystemPrompt:
		if g.refine != nil {
			return g.refine(req)
		}
		return `{"spoken_line":"Taipei looks warm and mostly dry today."}`, nil
	case plannerSystemPrompt:
		return g.planner, nil
	default:
		return g.script, nil
	}
}

func (g *scriptedGenerator) stage(prompt string) []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []llm.Request
	for _, req := range g.requests {
		if req.Messages[0].Content == prompt {
			out = append(out, req)
		}
	}
	return out
}

// durationFFmpeg stands in for ffmpeg. Every file holds its length in
// seconds; outputs follow the shape of the filter graph.
type durationFFmpeg struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *durationFFmpeg) Run(_ context.Context, args []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(args))
	f.mu.Unlock()

	var inputs []float64
	limit := -1.0
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-t":
			limit, _ = strconv.ParseFloat(args[i+1], 64)
		case "-i":
			d, err := readSeconds(args[i+1])
			if limit >= 0 && (err != nil || limit < d) {
				d = limit
			}
			inputs = append(inputs, d)
			limit = -1
		}
	}

	graph := strings.Join(args, " ")
	var total float64
	switch {
	case strings.Contains(graph, "concat="):
		for _, d := range inputs {
			total += d
		}
	case strings.Contains(graph, "acrossfade="):
		for _, d := range inputs {
			total += d
		}
		total -= float64(len(inputs)-1) * mixer.DefaultSettings().Crossfade
	default:
		for _, d := range inputs {
			total = max(total, d)
		}
	}
	return os.WriteFile(args[len(args)-1], []byte(strconv.FormatFloat(total, 'f', 3, 64)), 0o644)
}

func (f *durationFFmpeg) exportArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if slices.Contains(call, "-id3v2_version") {
			return call
		}
	}
	return nil
}

func readSeconds(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}

type fakeVoice struct {
	mu    sync.Mutex
	texts []string
}

func (v *fakeVoice) Name() string { return "fake" }
func (v *fakeVoice) Accepts() speech.Input { return speech.Markup }
func (v *fakeVoice) Extension() string { return ".mp3" }
func (v *fakeVoice) Synthesize(_ context.Context, text, outPath string) error {
	v.mu.Lock()
	v.texts = append(v.texts, text)
	v.mu.Unlock()
	return os.WriteFile(outPath, []byte("12.5"), 0o644)
}

func (v *fakeVoice) calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.texts)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.last = payload
	return nil
}

type harness struct {
	cfg       *config.Config
	gen       *scriptedGenerator
	runner    *durationFFmpeg
	voice     *fakeVoice
	notifier  *recordingNotifier
	store     *runstore.Store
	coord     *Coordinator
	songs     *catalog.Catalog
	broadcast time.Time
}

const (
	fencedPlan = "```json\n" + `[
  {"id": 1, "title": "Good morning", "emotion": "bright"},
  {"id": 2, "title": "Weather", "emotion": "calm", "song": "morning light", "reason": "gentle start"}
]` + "\n```"
	speakScript = "Here is today's script.\n```xml\n<speak><p><s>Good morning Taipei.</s><s>Expect 20 to 27 degrees.</s></p></speak>\n```"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	songPath := filepath.Join(testsupport.BaseDir(cfg), "music", "morning_light.mp3")
	if err := os.MkdirAll(filepath.Dir(songPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(songPath, []byte("180"), 0o644); err != nil {
		t.Fatal(err)
	}
	bpm := 100.0

	h := &harness{
		cfg:       cfg,
		gen:       &scriptedGenerator{planner: fencedPlan, script: speakScript},
		runner:    &durationFFmpeg{},
		voice:     &fakeVoice{},
		notifier:  &recordingNotifier{},
		store:     testsupport.MustOpenStore(t, cfg),
		songs:     catalog.New([]catalog.Song{{Title: "Morning Light", Path: songPath, BPM: &bpm}}),
		broadcast: time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC),
	}
	factories := []speech.Factory{{Name: "fake", New: func() (speech.Provider, error) { return h.voice, nil }}}
	coord, err := NewCoordinator(Options{
		Config:    cfg,
		Generator: h.gen,
		Voice:     speech.NewChain(factories, h.runner, cfg.Mixer.SampleRate, nil),
		Mixer:     mixer.NewEngine(h.runner, nil, mixer.SettingsFromConfig(cfg.Mixer), nil),
		Store:     h.store,
		Notifier:  h.notifier,
		Probe:     func(_ context.Context, path string) (float64, error) { return readSeconds(path) },
		Clock:     func() time.Time { return h.broadcast },
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	h.coord = coord
	return h
}

func (h *harness) request() Request {
	return Request{
		Date: h.broadcast,
		Inputs: Inputs{Weather: feeds.Weather{
			City:                "Taipei",
			TemperatureLow:      20,
			TemperatureHigh:     27,
			PrecipitationChance: 10,
		}},
		Catalog: h.songs,
		Persona: persona.Persona{Name: "Mina", Tone: "warm"},
	}
}

func TestRunProducesBroadcast(t *testing.T) {
	h := newHarness(t)

	result, err := h.coord.Run(context.Background(), h.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Slug != "20260314" || result.Title != "MorningCast 2026-03-14" {
		t.Fatalf("unexpected identity %q %q", result.Slug, result.Title)
	}

	transcript, err := os.ReadFile(result.Artifacts.Transcript)
	if err != nil || len(transcript) == 0 {
		t.Fatalf("expected transcript, err=%v", err)
	}
	plain, err := os.ReadFile(result.Artifacts.PlainText)
	if err != nil || !strings.Contains(string(plain), "Good morning Taipei.") {
		t.Fatalf("unexpected plain text %q err=%v", plain, err)
	}

	var saved struct {
		Inputs struct {
			SpokenLines []string `json:"spoken_lines"`
			Weather     struct {
				City string `json:"city"`
				Temp struct {
					Low  float64 `json:"low"`
					High float64 `json:"high"`
				} `json:"temp"`
			} `json:"weather"`
		} `json:"inputs"`
		Segments []Segment `json:"segments"`
	}
	data, err := os.ReadFile(result.Artifacts.Plan)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(saved.Segments) != 2 || saved.Segments[1].Song != "morning light" {
		t.Fatalf("unexpected segments %+v", saved.Segments)
	}
	if saved.Inputs.Weather.City != "Taipei" || saved.Inputs.Weather.Temp.Low != 20 || saved.Inputs.Weather.Temp.High != 27 {
		t.Fatalf("unexpected weather %+v", saved.Inputs.Weather)
	}
	if len(saved.Inputs.SpokenLines) != 1 {
		t.Fatalf("expected one spoken line per item, got %v", saved.Inputs.SpokenLines)
	}

	voice, err := readSeconds(result.Artifacts.Voice)
	if err != nil {
		t.Fatalf("voice track: %v", err)
	}
	final, err := readSeconds(result.Artifacts.Final)
	if err != nil {
		t.Fatalf("final file: %v", err)
	}
	if final < voice || result.Duration != final {
		t.Fatalf("final %.3f should be at least voice %.3f and match probe %.3f", final, voice, result.Duration)
	}
	if filepath.Ext(result.Artifacts.Final) != ".mp3" {
		t.Fatalf("unexpected final format %s", result.Artifacts.Final)
	}

	if result.Music.Closing == nil || result.Music.Closing.Title != "Morning Light" || len(result.Music.Bed) != 0 {
		t.Fatalf("unexpected music %+v", result.Music)
	}
	if result.Mix.Mix != "" || result.Mix.WithSong != result.Artifacts.WithSong {
		t.Fatalf("unexpected mix result %+v", result.Mix)
	}
	if _, err := os.Stat(result.Artifacts.Mix); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("voice-only bed should not write a mix file, stat err=%v", err)
	}

	export := h.runner.exportArgs()
	for _, want := range []string{"title=MorningCast 2026-03-14", "artist=MorningCast AI", "comment=Weather Taipei 20-27°C", "libmp3lame"} {
		if !slices.Contains(export, want) {
			t.Fatalf("export args %v missing %q", export, want)
		}
	}

	if result.Speech.Provider != "fake" || !strings.HasPrefix(h.voice.texts[0], "<speak>") {
		t.Fatalf("unexpected speech result %+v", result.Speech)
	}
	if _, err := os.Stat(result.Artifacts.WorkDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected work dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(result.Artifacts.Lock); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Get run: %v", err)
	}
	if run.Status != runstore.StatusCompleted || run.Provider != "fake" || run.SegmentCount != 2 || run.AudioPath != result.Artifacts.Final {
		t.Fatalf("unexpected run record %+v", run)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != notifications.EventBroadcastReady {
		t.Fatalf("unexpected notifications %v", h.notifier.events)
	}
	if h.notifier.last["title"] != "MorningCast 2026-03-14" {
		t.Fatalf("unexpected ready payload %v", h.notifier.last)
	}
}

func TestRunStageParameters(t *testing.T) {
	h := newHarness(t)
	if _, err := h.coord.Run(context.Background(), h.request()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	refine := h.gen.stage(refinerSystemPrompt)
	if len(refine) != 1 || !refine[0].JSON || refine[0].Temperature != h.cfg.LLM.RefinerTemperature || refine[0].Model != h.cfg.LLM.RefinerModel {
		t.Fatalf("unexpected refine requests %+v", refine)
	}
	plan := h.gen.stage(plannerSystemPrompt)
	if len(plan) != 1 || plan[0].JSON || plan[0].Temperature != h.cfg.LLM.PlannerTemperature {
		t.Fatalf("unexpected planner requests %+v", plan)
	}
	if !strings.Contains(plan[0].Messages[1].Content, `"songs_meta"`) || !strings.Contains(plan[0].Messages[1].Content, "Morning Light") {
		t.Fatalf("planner payload missing catalogue: %s", plan[0].Messages[1].Content)
	}
	scripts := h.gen.stage(persona.Persona{Name: "Mina", Tone: "warm"}.SystemPrompt())
	if len(scripts) != 1 || scripts[0].MaxTokens != h.cfg.LLM.ScriptMaxTokens || scripts[0].Temperature != h.cfg.LLM.ScriptTemperature {
		t.Fatalf("unexpected script requests %+v", scripts)
	}
	if !strings.Contains(scripts[0].Messages[1].Content, `"segments"`) {
		t.Fatalf("script prompt missing plan: %s", scripts[0].Messages[1].Content)
	}
}

func TestRunUsesFallbackLineWhenRefinementFails(t *testing.T) {
	h := newHarness(t)
	h.gen.refine = func(llm.Request) (string, error) { return "", errors.New("rate limited") }

	result, err := h.coord.Run(context.Background(), h.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Weather in Taipei today: 20 to 27 degrees. Chance of rain 10%."
	if len(result.Plan.Inputs.SpokenLines) != 1 || result.Plan.Inputs.SpokenLines[0] != want {
		t.Fatalf("unexpected spoken lines %v", result.Plan.Inputs.SpokenLines)
	}
}

func TestRunMalformedPlanProducesNoAudio(t *testing.T) {
	h := newHarness(t)
	h.gen.planner = "not json"

	result, err := h.coord.Run(context.Background(), h.request())
	if !errors.Is(err, ErrPlanParse) {
		t.Fatalf("expected ErrPlanParse, got %v", err)
	}
	var parseErr *PlanParseError
	if !errors.As(err, &parseErr) || parseErr.Raw != "not json" {
		t.Fatalf("expected raw planner output in error, got %v", err)
	}
	if len(h.gen.stage(plannerSystemPrompt)) != 1 {
		t.Fatal("planner should not be retried")
	}
	for _, path := range []string{result.Artifacts.Transcript, result.Artifacts.Voice, result.Artifacts.Final} {
		if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
			t.Fatalf("expected %s to be absent, stat err=%v", path, statErr)
		}
	}
	if h.voice.calls() != 0 {
		t.Fatal("speech should not run after a plan failure")
	}
	if _, statErr := os.Stat(result.Artifacts.WorkDir); statErr != nil {
		t.Fatalf("failed run should keep its work dir: %v", statErr)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Get run: %v", err)
	}
	if run.Status != runstore.StatusFailed || run.ErrorKind != "validation" {
		t.Fatalf("unexpected run record %+v", run)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != notifications.EventRunFailed {
		t.Fatalf("unexpected notifications %v", h.notifier.events)
	}
	if h.notifier.last["stage"] != "plan" {
		t.Fatalf("unexpected failure payload %v", h.notifier.last)
	}
}

func TestRunVoiceOnlyWhenNoSongResolves(t *testing.T) {
	h := newHarness(t)
	h.gen.planner = `[{"id":1,"title":"Talk","song":"Unknown Song"}]`

	result, err := h.coord.Run(context.Background(), h.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Music.Closing != nil || len(result.Music.Misses) != 1 {
		t.Fatalf("unexpected music %+v", result.Music)
	}
	if result.Mix.WithSong != "" {
		t.Fatalf("voice-only run should not append a closing song: %+v", result.Mix)
	}
	if result.Duration != 12.5 {
		t.Fatalf("expected final to match the voice length, got %.3f", result.Duration)
	}
}

func TestRunRejectsConcurrentRunForSameDate(t *testing.T) {
	h := newHarness(t)
	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(h.cfg.Paths.OutputDir, ".podcast_20260314.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = h.coord.Run(context.Background(), h.request())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(h.gen.requests) != 0 {
		t.Fatal("no generation should happen while another run holds the lock")
	}
	runs, err := h.store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no run history, got %+v", runs)
	}
}

func TestRunKeepsLockFileAfterRelease(t *testing.T) {
	h := newHarness(t)

	result, err := h.coord.Run(context.Background(), h.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(result.Artifacts.Lock); err != nil {
		t.Fatalf("lock file should stay in place: %v", err)
	}
	next := flock.New(result.Artifacts.Lock)
	locked, err := next.TryLock()
	if err != nil || !locked {
		t.Fatalf("lock should be free after the run: locked=%v err=%v", locked, err)
	}
	_ = next.Unlock()
}

func TestNewCoordinatorRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := NewCoordinator(Options{Config: cfg}); err == nil {
		t.Fatal("expected error without generator")
	}
	if _, err := NewCoordinator(Options{Config: cfg, Generator: &scriptedGenerator{}}); err == nil {
		t.Fatal("expected error without voice")
	}
}

func TestArtifactPaths(t *testing.T) {
	paths := ArtifactPaths("/out", "20260314", ".M4A", "run-1")
	if paths.Final != "/out/podcast_20260314.m4a" || paths.Voice != "/out/podcast_20260314_voice.wav" {
		t.Fatalf("unexpected paths %+v", paths)
	}
	if paths.Lock != "/out/.podcast_20260314.lock" || paths.WorkDir != "/out/tmp/run-1" {
		t.Fatalf("unexpected run paths %+v", paths)
	}
	if ArtifactPaths("/out", "x", "", "r").Final != "/out/podcast_x.mp3" {
		t.Fatal("expected mp3 default")
	}
}
