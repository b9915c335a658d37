package tokenizer

import (
	"strings"
	"unicode"
)

// minSplitLen is the longest word kept whole; longer Latin words are bisected at the midpoint.
const minSplitLen = 3

// Tokenizer turns text into tokens and token ids. It is immutable and safe for concurrent use.
type Tokenizer struct {
	vocab map[string]int
	padID int
}

// New creates a Tokenizer from cfg. The vocabulary is copied.
func New(cfg *Config) *Tokenizer {
	vocab := make(map[string]int, len(cfg.Vocab))
	for k, v := range cfg.Vocab {
		vocab[k] = v
	}
	return &Tokenizer{vocab: vocab, padID: cfg.PadTokenID}
}

// PadTokenID returns the id used for padding and unknown tokens.
func (t *Tokenizer) PadTokenID() int {
	return t.padID
}

// VocabSize returns the number of vocabulary entries.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab)
}

// Tokenize detects the language of text and splits it into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	return TokenizeLanguage(text, DetectLanguage(text))
}

// TokenizeLanguage normalizes and splits text using the strategy for lang.
func TokenizeLanguage(text, lang string) []string {
	normalized := Normalize(text, lang)
	if scripts, ok := segmentScripts[lang]; ok {
		return segmentRuns(normalized, scripts)
	}
	return splitLatin(normalized)
}

// segmentRuns emits each contiguous run of script runes as one token. Letters and digits
// outside the script become single-rune tokens; anything else separates tokens.
func segmentRuns(text string, scripts []*unicode.RangeTable) []string {
	var (
		tokens []string
		run    []rune
	)
	flush := func() {
		if len(run) > 0 {
			tokens = append(tokens, string(run))
			run = run[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsOneOf(scripts, r):
			run = append(run, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// splitLatin splits on whitespace and bisects every word longer than minSplitLen runes
// at floor(len/2). This stands in for real subword segmentation and must stay deterministic.
func splitLatin(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		rs := []rune(word)
		if len(rs) <= minSplitLen {
			tokens = append(tokens, word)
			continue
		}
		mid := len(rs) / 2
		tokens = append(tokens, string(rs[:mid]), string(rs[mid:]))
	}
	return tokens
}

// TokenToID looks up token as-is, then lowercased, then lowercased without diacritics.
// Unknown tokens resolve to the pad id.
func (t *Tokenizer) TokenToID(token string) int {
	if id, ok := t.vocab[token]; ok {
		return id
	}
	lower := strings.ToLower(token)
	if id, ok := t.vocab[lower]; ok {
		return id
	}
	if id, ok := t.vocab[StripDiacritics(token)]; ok {
		return id
	}
	return t.padID
}

// Encode maps tokens to ids.
func (t *Tokenizer) Encode(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = t.TokenToID(tok)
	}
	return ids
}
