package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiError is a non-2xx response from the endpoint.
type apiError struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (e *apiError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.status, e.body)
}

// emptyReplyError is a 2xx response whose choices carry no text.
type emptyReplyError struct {
	op           string
	finishReason string
	refusal      string
	body         string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("%s: empty reply (finish_reason=%q refusal=%q body=%s)", e.op, e.finishReason, e.refusal, e.body)
}

// backoff retries transient failures with doubling delays capped at max.
type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(time.Duration)
}

func defaultBackoff(attempts int) backoff {
	if attempts <= 0 {
		attempts = 3
	}
	return backoff{attempts: attempts, base: time.Second, max: 10 * time.Second}
}

func (b backoff) run(ctx context.Context, op string, call func() (string, error)) (string, error) {
	attempts := max(b.attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var text string
		text, err = call()
		if err == nil {
			return text, nil
		}
		if attempt == attempts || ctx.Err() != nil || !retryable(err) {
			break
		}
		if werr := b.wait(ctx, b.delay(attempt, err)); werr != nil {
			return "", werr
		}
	}
	if attempts > 1 && retryable(err) {
		return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, err)
	}
	return "", err
}

// retryable reports 408, 429 and 5xx responses, empty replies and network
// timeouts. Cancellation never retries.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var empty *emptyReplyError
	if errors.As(err, &empty) {
		return true
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusRequestTimeout ||
			apiErr.status == http.StatusTooManyRequests ||
			apiErr.status >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// delay is the wait before the attempt following attempt (1-based).
// Retry-After wins over the doubling schedule.
func (b backoff) delay(attempt int, err error) time.Duration {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.retryAfter > 0 {
		return b.clamp(apiErr.retryAfter)
	}
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 1; i < attempt && (b.max <= 0 || d < b.max); i++ {
		d *= 2
	}
	return b.clamp(d)
}

func (b backoff) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if b.sleep != nil {
		b.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Invalid or past
// values yield zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
