package tokenizer

import (
	"strings"
	"unicode"
)

// Heuristic approximates token counts without a vocabulary. It counts one
// token per word plus one per punctuation rune, with a floor of one token
// per four runes.
type Heuristic struct{}

// Count implements Counter.
func (Heuristic) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	words := 0
	inWord := false
	punct := 0
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				words++
				inWord = true
			}
		default:
			punct++
			inWord = false
		}
	}

	count := words + punct
	if floor := len([]rune(text)) / 4; count < floor {
		count = floor
	}
	if count < 1 {
		count = 1
	}
	return count
}

// Exact implements Counter.
func (Heuristic) Exact() bool { return false }
