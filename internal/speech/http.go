package speech

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type httpStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	body := strings.Join(strings.Fields(e.Body), " ")
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s request: http %d: %s", e.Provider, e.StatusCode, body)
}

// NewHTTPClient returns the client shared by HTTP providers.
func NewHTTPClient(timeoutSeconds int) *http.Client {
	timeout := 5 * time.Minute
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// fetchAudio performs req and returns the response body, failing on non-2xx
// statuses and empty bodies.
func fetchAudio(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s request: read body: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s request: empty audio response", provider)
	}
	return body, nil
}

func jsonRequest(req *http.Request) *http.Request {
	req.Header.Set("Content-Type", "application/json")
	return req
}

func writeAudio(path string, chunks ...[]byte) error {
	return os.WriteFile(path, bytes.Join(chunks, nil), 0o644)
}
