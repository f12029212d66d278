package bigram

import (
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxLength is the number of sampling steps Generate allows when no
// WithMaxLength option is given.
const DefaultMaxLength = 15

// State is a step of the generation state machine.
type State int

const (
	// StateStart means the current symbol is the start token.
	StateStart State = iota
	// StateGenerating means the current symbol is the last ordinary symbol drawn.
	StateGenerating
	// StateDone means the end token was drawn or the step budget ran out.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Generation is the outcome of a single generation call.
type Generation struct {
	// Word holds the ordinary symbols drawn, never a control token.
	Word string
	// Terminated is true when the walk ended on the end token rather than
	// on the step budget.
	Terminated bool
	// Steps is the number of samples drawn.
	Steps int
}

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength   int
	src         rand.Source
	temperature float64
	topK        int
}

func defaultGenerateOptions() *generateOptions {
	return &generateOptions{
		maxLength:   DefaultMaxLength,
		temperature: 1.0,
	}
}

// GenerateOption configures Generate and Model.Generate.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of sampling steps, and therefore the
// maximum number of symbols in the generated word. Generation stops earlier
// when the end token is drawn.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithSource sets the random source used for every draw of the call. When no
// source is given, each call seeds a fresh PCG stream of its own.
func WithSource(src rand.Source) GenerateOption {
	return func(o *generateOptions) { o.src = src }
}

// WithSeed is shorthand for WithSource(rand.NewPCG(seed, seed)).
func WithSeed(seed uint64) GenerateOption {
	return WithSource(rand.NewPCG(seed, seed))
}

// WithTemperature adjusts the randomness of each draw.
// A value of 1.0 is the exact categorical draw.
// Values > 1.0 flatten the distribution, values < 1.0 sharpen it.
// A value of 0 or less always picks the most probable next symbol.
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts each draw to the k most probable next symbols.
// A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

// Generate produces a new word by walking the bigram chain from the start
// token. Each step draws the next symbol from the current symbol's row; the
// walk stops, without emitting it, when the end token is drawn, and is cut
// off after the maximum length. Running out of steps is not an error.
func Generate(tokens Tokens, vocab *Vocabulary, probs mat.Matrix, opts ...GenerateOption) (string, error) {
	g, err := GenerateResult(tokens, vocab, probs, opts...)
	if err != nil {
		return "", err
	}
	return g.Word, nil
}

// GenerateResult is Generate reporting how the walk ended.
func GenerateResult(tokens Tokens, vocab *Vocabulary, probs mat.Matrix, opts ...GenerateOption) (Generation, error) {
	o := defaultGenerateOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.maxLength < 0 {
		return Generation{}, domainErrorf(ReasonInvalidArgument, "max length must be >= 0, got %d", o.maxLength)
	}
	if math.IsNaN(o.temperature) || math.IsInf(o.temperature, 0) {
		return Generation{}, domainErrorf(ReasonInvalidArgument, "temperature must be finite, got %v", o.temperature)
	}
	if err := checkShape(probs, vocab); err != nil {
		return Generation{}, err
	}
	startIdx, ok := vocab.Index(tokens.Start)
	if !ok {
		return Generation{}, domainErrorf(ReasonUnknownSymbol, "start token %q", tokens.Start)
	}
	endIdx, hasEnd := vocab.Index(tokens.End)

	src := o.src
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	var (
		builder strings.Builder
		gen     Generation
		state   = StateStart
		current = startIdx
	)
	for state != StateDone {
		if gen.Steps >= o.maxLength {
			state = StateDone
			continue
		}
		next, err := sampleIndex(src, current, probs, o)
		if err != nil {
			return Generation{}, err
		}
		gen.Steps++

		// The start token only ever opens a word, so drawing it closes this one.
		if (hasEnd && next == endIdx) || next == startIdx {
			gen.Terminated = true
			state = StateDone
			continue
		}
		sym, ok := vocab.Symbol(next)
		if !ok {
			return Generation{}, domainErrorf(ReasonVocabularyMismatch, "sampled index %d has no symbol", next)
		}
		builder.WriteString(sym)
		current = next
		state = StateGenerating
	}

	gen.Word = builder.String()
	return gen, nil
}
