package script

import (
	"errors"
	"html"
	"strings"
	"unicode"
)

// ErrEmptyContent reports a script with nothing left to speak.
var ErrEmptyContent = errors.New("script has no speakable content")

// Variant is the speakable form of a script. Both fields are non-empty when
// returned from Normalize.
type Variant struct {
	Plain    string
	Markup   string
	Embedded bool
}

// Normalize derives plain text and speech markup from a generated script.
// An embedded <speak> block is authoritative when present; otherwise the
// markdown is flattened and markup is synthesized from it.
func Normalize(raw string) (Variant, error) {
	if strings.TrimSpace(raw) == "" {
		return Variant{}, ErrEmptyContent
	}
	if markup, ok := ExtractMarkup(raw); ok {
		plain := MarkupToPlain(markup)
		if strings.TrimSpace(plain) == "" {
			return Variant{}, ErrEmptyContent
		}
		return Variant{Plain: plain, Markup: markup, Embedded: true}, nil
	}

	plain := MarkdownToPlain(raw)
	if strings.TrimSpace(plain) == "" {
		return Variant{}, ErrEmptyContent
	}
	markup, err := PlainToMarkup(plain)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Plain: plain, Markup: markup}, nil
}

// ExtractMarkup returns the first <speak> block, preferring one inside a code
// fence over a bare one.
func ExtractMarkup(raw string) (string, bool) {
	if m := fencedMarkupPattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := bareMarkupPattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// MarkupToPlain strips tags from speech markup, keeping paragraph breaks as
// blank lines and decoding character entities.
func MarkupToPlain(markup string) string {
	text := applyRules(markup, markupRules)
	return strings.TrimSpace(html.UnescapeString(text))
}

// MarkdownToPlain flattens markdown into blank-line separated paragraphs.
func MarkdownToPlain(raw string) string {
	text := applyRules(raw, markdownRules)

	var paragraphs []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}

	cleaned := strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
	cleaned = inlineSpacePattern.ReplaceAllString(cleaned, " ")
	return html.UnescapeString(cleaned)
}

// PlainToMarkup wraps paragraphs in <p> and sentences in <s>, escaping text.
func PlainToMarkup(plain string) (string, error) {
	var b strings.Builder
	for _, para := range paragraphSplitPattern.Split(plain, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sentences := SplitSentences(para)
		if len(sentences) == 0 {
			continue
		}
		b.WriteString("<p>")
		for _, sentence := range sentences {
			b.WriteString("<s>")
			b.WriteString(html.EscapeString(sentence))
			b.WriteString("</s>")
		}
		b.WriteString("</p>")
	}
	if b.Len() == 0 {
		return "", ErrEmptyContent
	}
	return "<speak>" + b.String() + "</speak>", nil
}

// SplitSentences splits after '.', '!' or '?' when followed by whitespace.
func SplitSentences(paragraph string) []string {
	var sentences []string
	runes := []rune(paragraph)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
