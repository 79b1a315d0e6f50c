package preflight

import (
	"errors"

	"morningcast/internal/config"
	"morningcast/internal/googleauth"
	"morningcast/internal/speech"
)

// CheckSpeechProviders constructs each configured speech provider without
// synthesizing anything. Providers are optional individually; the chain
// only fails a run when none can be built.
func CheckSpeechProviders(cfg *config.Config) []Result {
	factories := speech.Factories(cfg, nil)
	results := make([]Result, 0, len(factories)+1)
	usable := 0
	for _, factory := range factories {
		name := "Speech: " + factory.Name
		if _, err := factory.New(); err != nil {
			results = append(results, Result{Name: name, Optional: true, Detail: err.Error()})
			continue
		}
		usable++
		results = append(results, Result{Name: name, Passed: true, Optional: true, Detail: "Ready"})
	}
	chain := Result{Name: "Speech chain", Passed: usable > 0}
	if usable == 0 {
		chain.Detail = "no provider can be constructed"
	} else {
		chain.Detail = "usable providers available"
	}
	return append(results, chain)
}

// CheckGoogle reports OAuth client and token state for Calendar and Gmail.
// Both are optional; a missing credentials file disables the feeds.
func CheckGoogle(cfg config.Google) []Result {
	creds := CheckFile("Google credentials", cfg.CredentialsFile, true)
	if !creds.Passed {
		creds.Detail += "; calendar and gmail disabled"
		return []Result{creds}
	}
	return []Result{
		creds,
		checkToken("Calendar token", cfg.CalendarToken, "morningcast calendar auth"),
		checkToken("Gmail token", cfg.GmailToken, "morningcast emails auth"),
	}
}

func checkToken(name, path, command string) Result {
	tok, err := googleauth.LoadToken(path)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, googleauth.ErrNoToken) {
			detail = "missing; run '" + command + "'"
		}
		return Result{Name: name, Optional: true, Detail: detail}
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return Result{Name: name, Optional: true, Detail: "expired without refresh token; run '" + command + "'"}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: path}
}
