// Package tokenizer turns article text into index terms. Index-time
// tokenisation lower-cases, splits on whitespace, drops stop-words, splits
// hyphenated words and strips everything that is not a letter or digit.
// Query-time tokenisation only lower-cases and splits on whitespace.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"i": {}, "you": {}, "we": {}, "she": {}, "her": {}, "his": {},
	"them": {}, "than": {}, "then": {}, "there": {}, "these": {},
	"those": {}, "been": {}, "into": {}, "about": {}, "would": {},
}

// IsStopWord reports whether word is in the fixed stop-word set.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Tokenize breaks text into index terms.
//
// A hyphen-separated part that is a stop-word is dropped, unless the part is
// the whole original word: "the-end" yields only "end" while "the." yields
// "the".
func Tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) {
			continue
		}
		for _, part := range strings.Split(word, "-") {
			term := stripNonAlphanumeric(part)
			if term == "" {
				continue
			}
			if part != word && IsStopWord(term) {
				continue
			}
			terms = append(terms, term)
		}
	}
	return terms
}

// QueryTerms splits a search query into lower-cased whitespace-separated
// terms. Stop-words are kept so the literal query is searched.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func stripNonAlphanumeric(s string) string {
	clean := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
