package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

var (
	// ErrNoCredentials reports a missing OAuth client secret file.
	ErrNoCredentials = errors.New("google credentials file not found")
	// ErrNoToken reports a missing token file; the auth subcommand creates it.
	ErrNoToken = errors.New("google token not found")
)

// CalendarScopes grants read access to calendar events.
var CalendarScopes = []string{calendar.CalendarReadonlyScope}

// GmailScopes grants read access to mail.
var GmailScopes = []string{gmail.GmailReadonlyScope}

const callbackPath = "/oauth/callback"

// Authorizer pairs an OAuth client config with the file its token lives in.
type Authorizer struct {
	config    *oauth2.Config
	tokenPath string
	// AuthTimeout bounds how long Authorize waits for the browser redirect.
	AuthTimeout time.Duration
}

// New reads the client secret file. Both "installed" and "web" client
// formats are accepted.
func New(credentialsFile, tokenPath string, scopes ...string) (*Authorizer, error) {
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsFile == "" {
		return nil, ErrNoCredentials
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCredentials, credentialsFile)
		}
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return &Authorizer{config: cfg, tokenPath: tokenPath, AuthTimeout: 5 * time.Minute}, nil
}

// TokenPath returns the token file location.
func (a *Authorizer) TokenPath() string {
	return a.tokenPath
}

// Client returns an HTTP client authorized with the cached token. Refreshed
// tokens are written back to the token file.
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	tok, err := LoadToken(a.tokenPath)
	if err != nil {
		return nil, err
	}
	source := &savingSource{
		base:      a.config.TokenSource(ctx, tok),
		path:      a.tokenPath,
		lastToken: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, source)), nil
}

// Authorize runs the loopback code flow: it listens on a random local port,
// hands the consent URL to prompt and waits for Google to redirect back.
// The exchanged token is saved to the token file.
func (a *Authorizer) Authorize(ctx context.Context, prompt func(url string)) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("oauth loopback listen: %w", err)
	}
	defer listener.Close()

	cfg := *a.config
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)
	state := uuid.NewString()

	type outcome struct {
		code string
		err  error
	}
	results := make(chan outcome, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var result outcome
		switch {
		case query.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			result.err = errors.New("oauth callback: state mismatch")
		case query.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusBadRequest)
			result.err = fmt.Errorf("oauth callback: %s", query.Get("error"))
		case query.Get("code") == "":
			http.Error(w, "code missing", http.StatusBadRequest)
			result.err = errors.New("oauth callback: code missing")
		default:
			fmt.Fprint(w, "Authorization received. You can close this tab.")
			result.code = query.Get("code")
		}
		select {
		case results <- result:
		default:
		}
	})
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	if prompt != nil {
		prompt(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	}

	timeout := a.AuthTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	var result outcome
	select {
	case result = <-results:
	case <-time.After(timeout):
		return nil, errors.New("oauth authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if result.err != nil {
		return nil, result.err
	}

	tok, err := cfg.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("oauth token exchange: %w", err)
	}
	if err := SaveToken(a.tokenPath, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// LoadToken reads a JSON-encoded token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, path)
		}
		return nil, fmt.Errorf("read google token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse google token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode google token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write google token: %w", err)
	}
	return nil
}

type savingSource struct {
	mu        sync.Mutex
	base      oauth2.TokenSource
	path      string
	lastToken string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.lastToken {
		s.lastToken = tok.AccessToken
		// A failed write only costs a refresh on the next run.
		_ = SaveToken(s.path, tok)
	}
	return tok, nil
}
