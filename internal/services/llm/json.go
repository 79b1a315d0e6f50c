package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DecodeReply unmarshals a model reply into target. It accepts bare JSON,
// fenced JSON, and JSON embedded in prose, in that order.
func DecodeReply(reply string, target any) error {
	text := strings.TrimSpace(reply)
	if text == "" {
		return errors.New("empty reply")
	}
	err := json.Unmarshal([]byte(text), target)
	if err == nil {
		return nil
	}
	unfenced := StripCodeFence(text)
	if unfenced != text {
		if json.Unmarshal([]byte(unfenced), target) == nil {
			return nil
		}
	}
	if start := strings.IndexAny(unfenced, "{["); start > 0 {
		// Decode reads one value and ignores trailing prose.
		if json.NewDecoder(strings.NewReader(unfenced[start:])).Decode(target) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w (reply: %s)", err, Snippet(text))
}

var openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")

// StripCodeFence removes a surrounding markdown code fence (with an optional
// language tag) and nothing else. Text without a leading fence is returned
// trimmed.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := openingFence.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), "```"))
}

const snippetRunes = 160

// Snippet collapses whitespace and truncates a reply for logs and errors.
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetRunes {
		return string(runes[:snippetRunes]) + "..."
	}
	return clean
}
