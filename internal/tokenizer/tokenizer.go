// Package tokenizer provides prompt token counting. The primary counter
// loads the model's tokenizer.json from the hub cache; when that file is
// missing or malformed a heuristic counter stands in so generation never
// fails for lack of a tokenizer.
package tokenizer

// Counter reports how many tokens a text encodes to.
type Counter interface {
	Count(text string) int
	// Exact reports whether counts come from the model's real vocabulary
	// rather than the heuristic fallback.
	Exact() bool
}

// Load returns a BPE counter backed by tokenizer.json, or the heuristic
// fallback when path is empty or the file cannot be parsed.
func Load(path string) Counter {
	if path == "" {
		return Heuristic{}
	}
	bpe, err := LoadBPE(path)
	if err != nil {
		return Heuristic{}
	}
	return bpe
}
