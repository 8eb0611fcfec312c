// Package wordlist holds the fixed list of words the client accepts as
// guesses. Validating locally saves a network round-trip and a fee for
// words the program would reject anyway; the rollup's own check remains
// authoritative.
package wordlist

import (
	_ "embed"
	"strings"
)

// WordLength is the fixed guess length the program accepts.
const WordLength = 6

//go:embed words.txt
var rawWords string

var accepted = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Split(rawWords, "\n") {
		w = strings.TrimSpace(w)
		if len(w) == WordLength {
			set[w] = struct{}{}
		}
	}
	return set
}()

// Normalize upper-cases and trims a candidate guess.
func Normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// Valid reports whether word (after normalization) is an accepted guess.
func Valid(word string) bool {
	w := Normalize(word)
	if len(w) != WordLength {
		return false
	}
	_, ok := accepted[w]
	return ok
}

// Count returns the number of accepted words.
func Count() int { return len(accepted) }
