package maildigest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message is one fetched mail.
type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	Date    string
	Body    string
	IsAd    bool
}

var adKeywords = []string{"newsletter", "promotion", "discount", "sale", "buy now", "unsubscribe"}

// IsProbablyAd reports whether subject looks like marketing mail.
func IsProbablyAd(subject string) bool {
	lowered := strings.ToLower(subject)
	for _, kw := range adKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Mailbox lists recent messages through the Gmail API.
type Mailbox struct {
	svc     *gmail.Service
	account string
}

// NewMailbox builds the Gmail service. endpoint may be empty.
func NewMailbox(ctx context.Context, client *http.Client, endpoint string) (*Mailbox, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Mailbox{svc: svc}, nil
}

// Account returns the mailbox address, looked up once.
func (m *Mailbox) Account(ctx context.Context) string {
	if m.account != "" {
		return m.account
	}
	profile, err := m.svc.Users.GetProfile("me").Context(ctx).Do()
	if err == nil {
		m.account = profile.EmailAddress
	}
	return m.account
}

// Recent returns up to limit messages received after since, newest first.
func (m *Mailbox) Recent(ctx context.Context, since time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := m.svc.Users.Messages.List("me").
		Q(fmt.Sprintf("after:%d", since.Unix())).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list messages: %w", err)
	}
	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := m.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get message %s: %w", ref.Id, err)
		}
		messages = append(messages, toMessage(full))
	}
	return messages, nil
}

func toMessage(msg *gmail.Message) Message {
	out := Message{ID: msg.Id}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				out.From = cleanText(h.Value)
			case "to":
				out.To = cleanText(h.Value)
			case "subject":
				out.Subject = cleanText(h.Value)
			case "date":
				out.Date = cleanText(h.Value)
			}
		}
	}
	out.Body = cleanText(plainBody(msg.Payload))
	if out.Body == "" {
		out.Body = cleanText(msg.Snippet)
	}
	out.IsAd = IsProbablyAd(out.Subject)
	return out
}

// plainBody returns the first text/plain part that is not an attachment.
func plainBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Filename == "" && part.Body != nil && part.Body.Data != "" {
		if data, err := decodePart(part.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		if text := plainBody(child); text != "" {
			return text
		}
	}
	return ""
}

func decodePart(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
