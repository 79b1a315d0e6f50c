package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"morningcast/internal/broadcast"
	"morningcast/internal/config"
	"morningcast/internal/runstore"
	"morningcast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "morningcast.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeSongs(t *testing.T, cfg *config.Config) {
	t.Helper()
	csv := "\uFEFFname,singer,file,tempo,intensity\nMorning Light,Band,music/light.mp3,100,0.4\nCity Pop Night,,music/night.mp3,,\n"
	if err := os.WriteFile(cfg.Paths.SongsCSV, []byte(csv), 0o644); err != nil {
		t.Fatalf("write songs: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "morningcast.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	env := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "********") {
		t.Fatalf("expected masked api key, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "api_key") && strings.Contains(line, "test") {
			t.Fatalf("secret leaked: %q", line)
		}
	}
}

func TestCatalogList(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSongs(t, env.cfg)

	out, _, err := runCLI(t, []string{"catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	for _, want := range []string{"Morning Light", "City Pop Night", "Band", "100", "2 songs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("catalog list missing %q: %q", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"catalog", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list --json: %v", err)
	}
	var songs []struct {
		Title string   `json:"title"`
		Path  string   `json:"path"`
		BPM   *float64 `json:"bpm"`
	}
	if err := json.Unmarshal([]byte(out), &songs); err != nil {
		t.Fatalf("decode songs: %v", err)
	}
	if len(songs) != 2 || songs[1].BPM != nil || songs[0].Path != filepath.Join(env.baseDir, "music", "light.mp3") {
		t.Fatalf("unexpected songs %+v", songs)
	}
}

func TestCatalogListMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"catalog", "list"}, env.configPath); err == nil {
		t.Fatal("expected error for missing catalogue")
	}
}

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("unexpected empty history output: %q", out)
	}

	store := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()
	started := time.Date(2026, 3, 13, 6, 0, 0, 0, time.UTC)
	testsupport.BeginRun(t, store, "run-a", "20260313", started)
	if err := store.Complete(ctx, "run-a", runstore.Outcome{Provider: "azure", SegmentCount: 5, AudioPath: "/out/podcast_20260313.mp3"}); err != nil {
		t.Fatal(err)
	}
	testsupport.BeginRun(t, store, "run-b", "20260314", started.Add(24*time.Hour))
	if err := store.Fail(ctx, "run-b", runstore.Outcome{ErrorKind: "validation", ErrorMessage: "parse program plan"}); err != nil {
		t.Fatal(err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"20260313", "completed", "podcast_20260313.mp3", "20260314", "failed", "validation: parse program plan"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q: %q", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "run-b" || entries[0].ErrorKind != "validation" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestRunFailsOnMalformedPlan(t *testing.T) {
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat map[string]string `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		content := "not json"
		if req.ResponseFormat["type"] == "json_object" {
			content = `{"spoken_line":"Good morning Taipei."}`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(llmServer.Close)
	weatherServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":{"time":["2026-03-14"],"temperature_2m_max":[27],"temperature_2m_min":[20],"precipitation_probability_mean":[10]}}`))
	}))
	t.Cleanup(weatherServer.Close)

	env := setupCLITestEnv(t,
		testsupport.WithLLMEndpoint(llmServer.URL),
		testsupport.WithWeatherEndpoint(weatherServer.URL),
		testsupport.WithSpeechProviders("edge"),
	)
	writeSongs(t, env.cfg)

	_, _, err := runCLI(t, []string{"run", "--date", "2026-03-14"}, env.configPath)
	if !errors.Is(err, broadcast.ErrPlanParse) {
		t.Fatalf("expected ErrPlanParse, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "podcast_20260314.mp3")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("no audio should be produced, stat err=%v", statErr)
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Slug != "20260314" || entries[0].Status != "failed" || entries[0].ErrorKind != "validation" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestRunRejectsBadDate(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSongs(t, env.cfg)
	_, _, err := runCLI(t, []string{"run", "--date", "14/03/2026"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestBroadcastDate(t *testing.T) {
	date, err := broadcastDate("2026-03-14", "Asia/Taipei")
	if err != nil {
		t.Fatalf("broadcastDate: %v", err)
	}
	if broadcast.Slug(date) != "20260314" || date.Location().String() != "Asia/Taipei" {
		t.Fatalf("unexpected date %v", date)
	}
	if _, err := broadcastDate("", "Not/AZone"); err != nil {
		t.Fatalf("unknown zone should fall back to local time: %v", err)
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("NTFY_TOPIC", "")
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Notifications disabled") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTestNotifySends(t *testing.T) {
	titles := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	configPath := filepath.Join(testsupport.BaseDir(cfg), "morningcast.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"test-notify"}, configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Test notification sent") {
		t.Fatalf("unexpected output %q", out)
	}
	if title := <-titles; title == "" {
		t.Fatal("expected a notification title")
	}
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "2026-03-14T06:00:00Z INFO broadcast: run started run_id=aaaa1111\n" +
		"2026-03-14T06:00:01Z INFO broadcast: run started run_id=bbbb2222\n" +
		"2026-03-14T06:00:02Z INFO broadcast: broadcast ready run_id=aaaa1111\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "morningcast.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--run", "aaaa"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 || strings.Contains(out, "bbbb2222") {
		t.Fatalf("unexpected filtered output %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "broadcast ready") || strings.Count(out, "\n") != 1 {
		t.Fatalf("unexpected tail output %q", out)
	}
}
