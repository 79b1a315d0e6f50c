package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Bag is a token frequency vector for one title.
type Bag struct {
	counts map[string]float64
	length float64
}

// NewBag tokenizes text. It returns nil when no token survives.
func NewBag(text string) *Bag {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	bag := &Bag{counts: make(map[string]float64, len(tokens))}
	for _, token := range tokens {
		bag.counts[token]++
	}
	var sum float64
	for _, n := range bag.counts {
		sum += n * n
	}
	bag.length = math.Sqrt(sum)
	return bag
}

// Distinct returns the number of different tokens.
func (b *Bag) Distinct() int {
	if b == nil {
		return 0
	}
	return len(b.counts)
}

// Similarity is the cosine of the angle between two bags, 0 when either is
// empty.
func Similarity(a, b *Bag) float64 {
	if a == nil || b == nil || a.length == 0 || b.length == 0 {
		return 0
	}
	if len(b.counts) < len(a.counts) {
		a, b = b, a
	}
	var dot float64
	for token, n := range a.counts {
		dot += n * b.counts[token]
	}
	return dot / (a.length * b.length)
}

// Tokenize folds text and splits it into match tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) >= 3 || strings.ContainsFunc(field, isCJK) {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// fold lowercases text and removes combining marks, so "Café" and "cafe"
// tokenize alike.
func fold(text string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(text) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return norm.NFC.String(b.String())
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// Closest returns the candidate most similar to query when its score reaches
// threshold. Ties keep the earlier candidate.
func Closest(query string, candidates []string, threshold float64) (string, float64, bool) {
	target := NewBag(query)
	if target == nil {
		return "", 0, false
	}
	best, bestScore := "", 0.0
	for _, candidate := range candidates {
		if score := Similarity(target, NewBag(candidate)); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if best == "" || bestScore < threshold {
		return "", bestScore, false
	}
	return best, bestScore, true
}
