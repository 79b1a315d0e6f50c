package maildigest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"morningcast/internal/feeds"
	"morningcast/internal/logging"
	"morningcast/internal/services/llm"
)

const (
	summaryTemperature = 0.4
	summaryMaxTokens   = 1000
	bodyLimit          = 2000
)

const summarySystemPrompt = "You read email and produce a short summary with a classification."

const summaryPromptTemplate = `Read the email below and reply with a JSON object with these keys:
"summary" (one or two sentences), "important" ("yes" or "no"),
"need_reply" ("yes" or "no") and "category" (for example work, personal, school, ads).

---
From: %s
To: %s
Subject: %s
Date: %s

%s
---`

// Summary is one email digest entry.
type Summary struct {
	Subject   string `json:"subject"`
	From      string `json:"from"`
	Account   string `json:"recipient_account,omitempty"`
	Date      string `json:"date"`
	Summary   string `json:"summary"`
	Important string `json:"important"`
	NeedReply string `json:"need_reply"`
	Topic     string `json:"category"`
	IsAd      bool   `json:"is_ad"`
}

// Item renders the summary as an email context item. The model's category
// is kept as "topic" so the item stays tagged as email.
func (s Summary) Item() feeds.Item {
	return feeds.NewItem(feeds.CategoryEmail, map[string]any{
		"subject":           s.Subject,
		"from":              s.From,
		"recipient_account": s.Account,
		"date":              s.Date,
		"summary":           s.Summary,
		"important":         s.Important,
		"need_reply":        s.NeedReply,
		"topic":             s.Topic,
		"is_ad":             s.IsAd,
	})
}

// Summarizer turns messages into summaries with a generative backend.
type Summarizer struct {
	gen    llm.Generator
	model  string
	logger *slog.Logger
}

// NewSummarizer returns a summarizer using model on gen.
func NewSummarizer(gen llm.Generator, model string, logger *slog.Logger) *Summarizer {
	return &Summarizer{gen: gen, model: model, logger: logging.NewComponentLogger(logger, "maildigest")}
}

type summaryReply struct {
	Summary   string `json:"summary"`
	Important string `json:"important"`
	NeedReply string `json:"need_reply"`
	Category  string `json:"category"`
}

// Summarize never fails: advertising short-circuits to a fixed entry and a
// backend error yields a "failed" entry.
func (s *Summarizer) Summarize(ctx context.Context, account string, msg Message) Summary {
	out := Summary{Subject: msg.Subject, From: msg.From, Account: account, Date: msg.Date, IsAd: msg.IsAd}
	if msg.IsAd {
		out.Summary, out.Important, out.NeedReply, out.Topic = "skipped", "no", "no", "ads"
		return out
	}

	body := msg.Body
	if runes := []rune(body); len(runes) > bodyLimit {
		body = string(runes[:bodyLimit])
	}
	to := account
	if to == "" {
		to = msg.To
	}
	raw, err := s.gen.Generate(ctx, llm.Request{
		Model: s.model,
		Messages: []llm.Message{
			llm.System(summarySystemPrompt),
			llm.User(fmt.Sprintf(summaryPromptTemplate, msg.From, to, msg.Subject, msg.Date, body)),
		},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
		JSON:        true,
	})
	var reply summaryReply
	if err == nil {
		err = llm.DecodeReply(raw, &reply)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "email summary failed", "email_summary_failed",
			logging.String("subject", msg.Subject),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the generative backend credentials"),
			logging.String(logging.FieldImpact, "email listed with a failed summary"),
		)
		out.Summary, out.Important, out.NeedReply, out.Topic = "failed", "unknown", "unknown", "unknown"
		return out
	}
	out.Summary = strings.TrimSpace(reply.Summary)
	out.Important = strings.TrimSpace(reply.Important)
	out.NeedReply = strings.TrimSpace(reply.NeedReply)
	out.Topic = strings.TrimSpace(reply.Category)
	return out
}

// Source lists recent messages.
type Source interface {
	Account(ctx context.Context) string
	Recent(ctx context.Context, since time.Time, limit int) ([]Message, error)
}

// Build fetches messages received in the lookback window and summarizes
// each one, returning context items ready for feeds.SaveEmails.
func Build(ctx context.Context, src Source, summarizer *Summarizer, now time.Time, lookback time.Duration, limit int) ([]feeds.Item, error) {
	messages, err := src.Recent(ctx, now.Add(-lookback), limit)
	if err != nil {
		return nil, err
	}
	account := src.Account(ctx)
	items := make([]feeds.Item, 0, len(messages))
	for _, msg := range messages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		items = append(items, summarizer.Summarize(ctx, account, msg).Item())
	}
	summarizer.logger.Info("email digest built",
		logging.Int("messages", len(messages)),
		logging.String(logging.FieldEventType, "email_digest_built"),
	)
	return items, nil
}
