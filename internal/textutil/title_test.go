package textutil

import (
	"math"
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "Morning Light", []string{"morning", "light"}},
		{"drops short latin", "Up in the Sky", []string{"the", "sky"}},
		{"punctuation", "Rain, Rain! (Go Away?)", []string{"rain", "rain", "away"}},
		{"digits", "Track01 1999", []string{"track01", "1999"}},
		{"accents fold", "Café Olé", []string{"cafe", "ole"}},
		{"keeps cjk", "晴天 (Live) ft. 周", []string{"晴天", "live", "周"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewBag(t *testing.T) {
	if NewBag("") != nil || NewBag("a an it") != nil {
		t.Fatal("expected nil bag when no token survives")
	}
	bag := NewBag("rain rain away")
	if bag.Distinct() != 2 {
		t.Fatalf("expected 2 distinct tokens, got %d", bag.Distinct())
	}
	// rain:2 away:1
	if math.Abs(bag.length-math.Sqrt(5)) > 1e-9 {
		t.Fatalf("unexpected length %v", bag.length)
	}
	var nilBag *Bag
	if nilBag.Distinct() != 0 {
		t.Fatal("nil bag should have no tokens")
	}
}

func TestSimilarity(t *testing.T) {
	same := Similarity(NewBag("Morning Light"), NewBag("morning light"))
	if math.Abs(same-1) > 1e-9 {
		t.Fatalf("identical titles = %v, want 1", same)
	}
	if got := Similarity(NewBag("Morning Light"), NewBag("Evening Rain")); got != 0 {
		t.Fatalf("unrelated titles = %v, want 0", got)
	}
	live := Similarity(NewBag("Morning Light"), NewBag("Morning Light (Live Version)"))
	if live < 0.5 || live >= 1 {
		t.Fatalf("live version = %v, want in [0.5, 1)", live)
	}
	a, b := NewBag("city pop night"), NewBag("city pop nite")
	if Similarity(a, b) != Similarity(b, a) {
		t.Fatal("similarity should be symmetric")
	}
	if Similarity(nil, b) != 0 || Similarity(&Bag{}, b) != 0 {
		t.Fatal("empty bags score 0")
	}
}

func TestClosest(t *testing.T) {
	candidates := []string{"Evening Rain", "Morning Light", "Morning Coffee"}
	got, score, ok := Closest("morning light live", candidates, 0.5)
	if !ok || got != "Morning Light" || score <= 0.5 {
		t.Fatalf("Closest() = %q, %v, %v", got, score, ok)
	}
	if got, _, ok := Closest("Cafe Ole", []string{"Café Olé"}, 0.9); !ok || got != "Café Olé" {
		t.Fatalf("expected accent-insensitive match, got %q %v", got, ok)
	}
	if _, _, ok := Closest("Thunder Road", candidates, 0.5); ok {
		t.Fatal("expected no match for unrelated title")
	}
	if _, _, ok := Closest("", candidates, 0.5); ok {
		t.Fatal("expected no match for empty query")
	}
}
