package tokenizer_test

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/tokenizer"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "basic text",
			input:    "Rust is great",
			expected: []string{"rust", "great"},
		},
		{
			name:     "punctuation stripped",
			input:    "Hello, world! (Really?)",
			expected: []string{"hello", "world", "really"},
		},
		{
			name:     "hyphenated words split",
			input:    "machine-learning and real-time",
			expected: []string{"machine", "learning", "real", "time"},
		},
		{
			name:     "stop-word part of hyphenated word dropped",
			input:    "the-end of-the-line",
			expected: []string{"end", "line"},
		},
		{
			name:     "stop-word with punctuation kept when it is the whole word",
			input:    "the. and, cat",
			expected: []string{"the", "and", "cat"},
		},
		{
			name:     "bare stop-words dropped",
			input:    "The Cat",
			expected: []string{"cat"},
		},
		{
			name:     "empty parts dropped",
			input:    "-- ... well--known",
			expected: []string{"well", "known"},
		},
		{
			name:     "digits and unicode letters kept",
			input:    "Go 1.22 naïve Straße",
			expected: []string{"go", "122", "naïve", "straße"},
		},
		{
			name:     "repeated terms kept",
			input:    "go go go",
			expected: []string{"go", "go", "go"},
		},
		{
			name:     "empty input",
			input:    "   ",
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenizer.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQueryTerms(t *testing.T) {
	got := tokenizer.QueryTerms("  The  GO\tsystems ")
	want := []string{"the", "go", "systems"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("QueryTerms = %q, want %q", got, want)
	}
}
