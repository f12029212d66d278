package bigram

import (
	"sort"
	"strings"
)

const (
	// DefaultStartToken marks the beginning of a processed word.
	DefaultStartToken = "<S>"
	// DefaultEndToken marks the end of a processed word.
	DefaultEndToken = "<E>"
)

// Tokens holds the two control symbols wrapped around every word. They are
// passed to each operation instead of being fixed package constants, so
// alternate alphabets can be used without code changes.
type Tokens struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultTokens returns the conventional <S>/<E> pair.
func DefaultTokens() Tokens {
	return Tokens{Start: DefaultStartToken, End: DefaultEndToken}
}

// Validate checks that both tokens are set and distinct.
func (t Tokens) Validate() error {
	if t.Start == "" || t.End == "" {
		return domainErrorf(ReasonInvalidArgument, "start and end tokens must be non-empty")
	}
	if t.Start == t.End {
		return domainErrorf(ReasonInvalidArgument, "start and end tokens must differ (both %q)", t.Start)
	}
	return nil
}

// Vocabulary is the bijection between symbols and dense, zero-based indices.
// It is read-only once built.
type Vocabulary struct {
	symbols []string       // index -> symbol
	index   map[string]int // symbol -> index
}

// NewVocabulary creates a Vocabulary whose index i maps to symbols[i]. It fails
// if a symbol is empty or appears twice.
func NewVocabulary(symbols []string) (*Vocabulary, error) {
	v := &Vocabulary{
		symbols: make([]string, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}
	for i, s := range symbols {
		if s == "" {
			return nil, domainErrorf(ReasonInvalidArgument, "empty symbol at index %d", i)
		}
		if prev, dup := v.index[s]; dup {
			return nil, domainErrorf(ReasonInvalidArgument, "symbol %q at index %d duplicates index %d", s, i, prev)
		}
		v.symbols[i] = s
		v.index[s] = i
	}
	return v, nil
}

// BuildVocabulary collects the distinct lower-cased characters of words and
// lays them out after the control tokens: Start is index 0, End is index 1
// and the ordinary characters follow in sorted order.
func BuildVocabulary(tokens Tokens, words []string) (*Vocabulary, error) {
	if err := tokens.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, w := range words {
		for _, s := range SplitWord(w) {
			seen[s] = struct{}{}
		}
	}
	delete(seen, tokens.Start)
	delete(seen, tokens.End)

	chars := make([]string, 0, len(seen))
	for s := range seen {
		chars = append(chars, s)
	}
	sort.Strings(chars)

	return NewVocabulary(append([]string{tokens.Start, tokens.End}, chars...))
}

// Len returns the alphabet size N, control tokens included.
func (v *Vocabulary) Len() int { return len(v.symbols) }

// Index returns the index of symbol s.
func (v *Vocabulary) Index(s string) (int, bool) {
	i, ok := v.index[s]
	return i, ok
}

// Symbol returns the symbol stored at index i.
func (v *Vocabulary) Symbol(i int) (string, bool) {
	if i < 0 || i >= len(v.symbols) {
		return "", false
	}
	return v.symbols[i], true
}

// Symbols returns a copy of the index -> symbol table.
func (v *Vocabulary) Symbols() []string {
	out := make([]string, len(v.symbols))
	copy(out, v.symbols)
	return out
}

// Contains reports whether every given symbol is in the vocabulary.
func (v *Vocabulary) Contains(symbols ...string) bool {
	for _, s := range symbols {
		if _, ok := v.index[s]; !ok {
			return false
		}
	}
	return true
}

// SplitWord lower-cases word and splits it into one symbol per rune.
func SplitWord(word string) []string {
	lower := strings.ToLower(word)
	out := make([]string, 0, len(lower))
	for _, r := range lower {
		out = append(out, string(r))
	}
	return out
}

// ProcessWord returns the processed form of word: the start token, the
// lower-cased characters, then the end token.
func ProcessWord(word string, tokens Tokens) []string {
	chars := SplitWord(word)
	out := make([]string, 0, len(chars)+2)
	out = append(out, tokens.Start)
	out = append(out, chars...)
	return append(out, tokens.End)
}

// indices maps a processed word onto vocabulary indices.
func (v *Vocabulary) indices(processed []string) ([]int, error) {
	out := make([]int, len(processed))
	for i, s := range processed {
		idx, ok := v.index[s]
		if !ok {
			return nil, domainErrorf(ReasonUnknownSymbol, "%q", s)
		}
		out[i] = idx
	}
	return out, nil
}
