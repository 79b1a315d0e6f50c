package script

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var bracketStripper = strings.NewReplacer("[", "", "]", "", "{", "", "}", "", "<", "", ">", "")

// SpeakableText returns text for providers that cannot read markup. Plain
// text is used when available, otherwise it is derived from the markup.
func SpeakableText(v Variant) string {
	text := v.Plain
	if strings.TrimSpace(text) == "" {
		text = MarkupToPlain(v.Markup)
	}
	return Sanitize(text)
}

// Sanitize composes text to NFC, drops bracket characters and replaces
// control, symbol and emoji code points with spaces. Newlines survive so
// paragraph pauses are kept.
func Sanitize(text string) string {
	text = norm.NFC.String(text)
	text = bracketStripper.Replace(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), unicode.IsSymbol(r), unicode.Is(unicode.Variation_Selector, r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
