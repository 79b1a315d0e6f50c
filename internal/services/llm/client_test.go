package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClientGenerateSendsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "gpt-4o" {
			t.Fatalf("expected request model override, got %v", req["model"])
		}
		if req["temperature"] != 0.7 || req["max_tokens"] != float64(2000) {
			t.Fatalf("unexpected sampling params: %v", req)
		}
		if _, ok := req["response_format"]; ok {
			t.Fatal("plain requests must not set response_format")
		}
		msgs := req["messages"].([]any)
		if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
			t.Fatalf("unexpected messages %v", msgs)
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "Good morning!"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "gpt-4o-mini"})
	text, err := client.Generate(context.Background(), Request{
		Model:       "gpt-4o",
		Messages:    []Message{System("You are a host."), User("Say hi")},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "Good morning!" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestClientGenerateJSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat["type"] != "json_object" {
			t.Fatalf("expected json_object response format, got %v", req.ResponseFormat)
		}
		if req.Model != "default-model" {
			t.Fatalf("expected default model, got %q", req.Model)
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"spoken_line":"hi"}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "default-model"})
	if _, err := client.Generate(context.Background(), Request{Messages: []Message{User("x")}, JSON: true}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
}

func TestClientGenerateRequiresKeyAndMessages(t *testing.T) {
	if _, err := NewClient(Config{}).Generate(context.Background(), Request{Messages: []Message{User("x")}}); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := NewClient(Config{APIKey: "k"}).Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected missing messages error")
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"ready":true}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ready\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientGenerateEmptyReplyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Generate(context.Background(), Request{Messages: []Message{User("x")}})
	if err == nil {
		t.Fatal("expected generate to fail")
	}
	if !strings.Contains(err.Error(), "empty reply") || !strings.Contains(err.Error(), `finish_reason="stop"`) {
		t.Fatalf("expected empty-reply error with finish reason, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "ok"}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", RetryAttempts: 5},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
	)
	if _, err := client.Generate(context.Background(), Request{Messages: []Message{User("x")}}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Generate(context.Background(), Request{Messages: []Message{User("x")}}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "third time"
		}
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	text, err := client.Generate(context.Background(), Request{Messages: []Message{User("x")}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "third time" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", text, calls)
	}
}
