package translate

import (
	"fmt"
	"testing"
)

func TestCacheExactHit(t *testing.T) {
	c := NewCache(10, 1.0)
	c.Put("こんにちは", "Hello")

	got, ok := c.Get("こんにちは")
	if !ok || got != "Hello" {
		t.Fatalf("Get = %q, %v; want Hello, true", got, ok)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(10, 1.0)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}
}

func TestCacheFuzzyHit(t *testing.T) {
	c := NewCache(10, 0.9)
	c.Put("The quick brown fox jumps", "translation")

	// One character of OCR jitter
	got, ok := c.Get("The quick brown fox jumps.")
	if !ok || got != "translation" {
		t.Fatalf("fuzzy Get = %q, %v; want hit", got, ok)
	}

	// Entirely different text must miss
	if _, ok := c.Get("Something else entirely here"); ok {
		t.Fatal("dissimilar text should miss")
	}
}

func TestCacheFuzzyDisabled(t *testing.T) {
	c := NewCache(10, 1.0)
	c.Put("The quick brown fox jumps", "translation")

	if _, ok := c.Get("The quick brown fox jumps."); ok {
		t.Fatal("similarity 1.0 should disable fuzzy matching")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(3, 1.0)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("entry-%d", i), "t")
	}

	// Touch entry-0 so entry-1 becomes the LRU
	c.Get("entry-0")
	c.Put("entry-3", "t")

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("entry-1"); ok {
		t.Error("entry-1 should have been evicted")
	}
	if _, ok := c.Get("entry-0"); !ok {
		t.Error("recently used entry-0 should survive")
	}
}

func TestCacheFuzzyPrefersMostRecent(t *testing.T) {
	c := NewCache(10, 0.8)
	c.Put("Hello world one", "old")
	c.Put("Hello world two", "new")

	// Both entries are within threshold; MRU order wins
	got, ok := c.Get("Hello world two")
	if !ok || got != "new" {
		t.Fatalf("Get = %q, %v; want the most recent candidate", got, ok)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"hello", "hello", 1.0, 1.0},
		{"hello", "hallo", 0.8, 0.8},
		{"", "hello", 0.0, 0.0},
		{"abc", "xyz", 0.0, 0.0},
		{"こんにちは", "こんにちわ", 0.8, 0.8},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min-0.001 || got > tt.max+0.001 {
			t.Errorf("Similarity(%q, %q) = %v, want %v..%v", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"こんにちは", "こんばんは", 2},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
