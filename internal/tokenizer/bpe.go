package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// BPE is a byte-level BPE encoder loaded from an HF tokenizer.json. Only the
// encode direction is implemented; the server decodes its own output.
type BPE struct {
	encoder  map[string]int
	ranks    map[pair]int
	byteMap  [256]string
	pattern  *regexp.Regexp
	specials []string

	// merge cache, shared across concurrent Encode calls
	mu    sync.Mutex
	cache map[string][]string
}

type pair struct {
	a, b string
}

type tokenizerJSON struct {
	Model struct {
		Type   string         `json:"type"`
		Vocab  map[string]int `json:"vocab"`
		Merges []any          `json:"merges"`
	} `json:"model"`
	PreTokenizer struct {
		Type          string `json:"type"`
		Pretokenizers []struct {
			Type    string `json:"type"`
			Pattern struct {
				Regex string `json:"Regex"`
			} `json:"pattern"`
		} `json:"pretokenizers"`
	} `json:"pre_tokenizer"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// LoadBPE reads and parses a tokenizer.json file.
func LoadBPE(path string) (*BPE, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBPE(data)
}

// ParseBPE builds an encoder from tokenizer.json bytes.
func ParseBPE(data []byte) (*BPE, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, err
	}
	if !strings.EqualFold(tj.Model.Type, "BPE") {
		return nil, fmt.Errorf("unsupported tokenizer model: %s", tj.Model.Type)
	}

	encoder := make(map[string]int, len(tj.Model.Vocab)+len(tj.AddedTokens))
	for tok, id := range tj.Model.Vocab {
		encoder[tok] = id
	}
	var specials []string
	for _, at := range tj.AddedTokens {
		encoder[at.Content] = at.ID
		if at.Special {
			specials = append(specials, at.Content)
		}
	}
	// longest special first so prefixes never shadow longer tokens
	for i := 1; i < len(specials); i++ {
		for j := i; j > 0 && len(specials[j]) > len(specials[j-1]); j-- {
			specials[j], specials[j-1] = specials[j-1], specials[j]
		}
	}

	ranks := make(map[pair]int, len(tj.Model.Merges))
	for rank, raw := range tj.Model.Merges {
		a, b, ok := mergeEntry(raw)
		if !ok {
			continue
		}
		p := pair{a: a, b: b}
		if _, dup := ranks[p]; !dup {
			ranks[p] = rank
		}
	}

	t := &BPE{
		encoder:  encoder,
		ranks:    ranks,
		cache:    make(map[string][]string),
		pattern:  buildPattern(tj),
		specials: specials,
	}
	fillByteMap(&t.byteMap)
	return t, nil
}

func mergeEntry(raw any) (string, string, bool) {
	switch v := raw.(type) {
	case string:
		parts := strings.Split(strings.TrimSpace(v), " ")
		if len(parts) != 2 {
			return "", "", false
		}
		return parts[0], parts[1], true
	case []any:
		if len(v) != 2 {
			return "", "", false
		}
		a, aok := v[0].(string)
		b, bok := v[1].(string)
		return a, b, aok && bok
	default:
		return "", "", false
	}
}

// Count implements Counter.
func (t *BPE) Count(text string) int {
	return len(t.Encode(text))
}

// Exact implements Counter.
func (t *BPE) Exact() bool { return true }

// Encode splits text into token ids. Unknown byte sequences are skipped
// rather than erroring; counting must stay total.
func (t *BPE) Encode(text string) []int {
	var ids []int
	for _, part := range t.splitSpecials(text) {
		if slices.Contains(t.specials, part) {
			if id, ok := t.encoder[part]; ok {
				ids = append(ids, id)
			}
			continue
		}
		for _, chunk := range t.pattern.FindAllString(part, -1) {
			for _, tok := range t.bpe(t.byteEncode(chunk)) {
				if id, ok := t.encoder[tok]; ok {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

func (t *BPE) byteEncode(s string) string {
	var b strings.Builder
	for _, by := range []byte(s) {
		b.WriteString(t.byteMap[by])
	}
	return b.String()
}

func (t *BPE) bpe(token string) []string {
	t.mu.Lock()
	v, ok := t.cache[token]
	t.mu.Unlock()
	if ok {
		return v
	}
	word := make([]string, 0, len(token))
	for _, r := range token {
		word = append(word, string(r))
	}
	for len(word) > 1 {
		bestRank := -1
		bestAt := -1
		for i := 0; i < len(word)-1; i++ {
			rank, ok := t.ranks[pair{a: word[i], b: word[i+1]}]
			if ok && (bestRank < 0 || rank < bestRank) {
				bestRank = rank
				bestAt = i
			}
		}
		if bestAt < 0 {
			break
		}
		merged := make([]string, 0, len(word)-1)
		p := pair{a: word[bestAt], b: word[bestAt+1]}
		for i := 0; i < len(word); i++ {
			if i < len(word)-1 && word[i] == p.a && word[i+1] == p.b {
				merged = append(merged, word[i]+word[i+1])
				i++
				continue
			}
			merged = append(merged, word[i])
		}
		word = merged
	}
	t.mu.Lock()
	t.cache[token] = word
	t.mu.Unlock()
	return word
}

func (t *BPE) splitSpecials(text string) []string {
	if len(t.specials) == 0 {
		return []string{text}
	}
	var parts []string
	var buf strings.Builder
	for i := 0; i < len(text); {
		match := ""
		for _, sp := range t.specials {
			if i+len(sp) <= len(text) && text[i:i+len(sp)] == sp {
				match = sp
				break
			}
		}
		if match == "" {
			buf.WriteByte(text[i])
			i++
			continue
		}
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
		parts = append(parts, match)
		i += len(match)
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

func buildPattern(tj tokenizerJSON) *regexp.Regexp {
	// GPT-2 style default without the lookahead Go's regexp cannot express.
	pat := `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
	if tj.PreTokenizer.Type == "Sequence" {
		for _, p := range tj.PreTokenizer.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" {
				pat = p.Pattern.Regex
				break
			}
		}
	}
	if strings.Contains(pat, "(?!") || strings.Contains(pat, "(?i:") {
		pat = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+`
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return regexp.MustCompile(`\S+|\s+`)
	}
	return re
}

// fillByteMap builds the GPT-2 byte-to-unicode table that keeps BPE strings
// printable for every byte value.
func fillByteMap(m *[256]string) {
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	n := 0
	for b := 0; b < 256; b++ {
		if printable(b) {
			m[b] = string(rune(b))
			continue
		}
		m[b] = string(rune(256 + n))
		n++
	}
}
