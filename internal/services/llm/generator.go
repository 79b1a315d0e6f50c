package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"morningcast/internal/logging"
)

// ErrNoBackend reports a chain with no configured generative backend.
var ErrNoBackend = errors.New("no generative backend configured")

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    Role
	Content string
}

// Request is a single text generation call. Model may be empty to use the
// backend default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Generator turns a request into free text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Chain tries generators in order and returns the first successful reply.
type Chain struct {
	backends []Generator
	logger   *slog.Logger
}

// NewChain builds a chain, skipping nil backends.
func NewChain(logger *slog.Logger, backends ...Generator) *Chain {
	chain := &Chain{logger: logging.NewComponentLogger(logger, "llm")}
	for _, b := range backends {
		if b != nil {
			chain.backends = append(chain.backends, b)
		}
	}
	return chain
}

// Name lists the backends in order.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return strings.Join(names, ",")
}

// Len returns the number of backends.
func (c *Chain) Len() int {
	return len(c.backends)
}

// Generate calls each backend until one succeeds. Backends other than the
// first ignore Request.Model and use their own configured model.
func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	if len(c.backends) == 0 {
		return "", ErrNoBackend
	}
	var errs []error
	for i, backend := range c.backends {
		attempt := req
		if i > 0 {
			attempt.Model = ""
		}
		text, err := backend.Generate(ctx, attempt)
		if err == nil {
			if i > 0 {
				c.logger.Info("generative fallback succeeded",
					logging.Args(logging.DecisionAttrs("llm_backend", backend.Name(), "earlier backend failed")...)...)
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		if i < len(c.backends)-1 {
			logging.WarnWithContext(c.logger, "generative backend failed; trying next",
				"llm_backend_failed",
				logging.String("backend", backend.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to the next backend"),
			)
		}
	}
	return "", errors.Join(errs...)
}
