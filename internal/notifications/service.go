package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"morningcast/internal/config"
)

const userAgent = "MorningCast-Go/0.1.0"

// Event names a notification type.
type Event string

const (
	EventBroadcastReady Event = "broadcast_ready"
	EventRunFailed      Event = "run_failed"
	EventTest           Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

// Service publishes broadcast events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventBroadcastReady: cfg.Notifications.Broadcast,
			EventRunFailed:      cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBroadcastReady:
		title := payload.text("title")
		if title == "" {
			title = payload.text("slug")
		}
		var body strings.Builder
		fmt.Fprintf(&body, "📻 Broadcast ready: %s", title)
		if duration, ok := payload["duration"].(time.Duration); ok && duration > 0 {
			fmt.Fprintf(&body, " (%s)", duration.Round(time.Second))
		}
		if file := payload.text("file"); file != "" {
			fmt.Fprintf(&body, "\nFile: %s", file)
		}
		if provider := payload.text("provider"); provider != "" {
			fmt.Fprintf(&body, "\nVoice: %s", provider)
		}
		return message{
			title: "MorningCast - Ready",
			body:  body.String(),
			tags:  []string{"morningcast", "broadcast", "ready"},
		}, true
	case EventRunFailed:
		var body strings.Builder
		body.WriteString("❌ Error")
		if stage := payload.text("stage"); stage != "" {
			body.WriteString(" during ")
			body.WriteString(stage)
		}
		body.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			body.WriteString(errText)
		} else {
			body.WriteString("unknown")
		}
		if slug := payload.text("slug"); slug != "" {
			fmt.Fprintf(&body, "\nRun: %s", slug)
		}
		return message{
			title:    "MorningCast - Error",
			body:     body.String(),
			tags:     []string{"morningcast", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "MorningCast - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"morningcast", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
