package bigram

import (
	"io"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Model is an immutable snapshot of a trained bigram model: the vocabulary,
// the raw counts it was built from, the smoothing constant and the derived
// probability matrix. A Model may be shared between goroutines; rebuilding
// with a different smoothing value returns a new Model.
type Model struct {
	tokens    Tokens
	vocab     *Vocabulary
	counts    *mat.Dense
	probs     *mat.Dense
	smoothing float64
	logger    *slog.Logger
}

// NewModel builds a Model from an aligned vocabulary and count matrix. Both
// tokens must be part of vocab. counts is copied.
func NewModel(vocab *Vocabulary, tokens Tokens, counts mat.Matrix, smoothing float64) (*Model, error) {
	if err := tokens.Validate(); err != nil {
		return nil, err
	}
	if vocab == nil {
		return nil, domainErrorf(ReasonInvalidArgument, "nil vocabulary")
	}
	if !vocab.Contains(tokens.Start, tokens.End) {
		return nil, domainErrorf(ReasonUnknownSymbol, "tokens %q/%q not in vocabulary", tokens.Start, tokens.End)
	}
	probs, err := BuildProbabilities(counts, smoothing)
	if err != nil {
		return nil, err
	}
	if err = checkShape(probs, vocab); err != nil {
		return nil, err
	}
	return &Model{
		tokens:    tokens,
		vocab:     vocab,
		counts:    mat.DenseCopyOf(counts),
		probs:     probs,
		smoothing: smoothing,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Train is a convenience that builds the vocabulary and counts of words in
// memory and returns the resulting Model.
func Train(words []string, tokens Tokens, smoothing float64) (*Model, error) {
	vocab, err := BuildVocabulary(tokens, words)
	if err != nil {
		return nil, err
	}
	counts, err := CountBigrams(words, vocab, tokens)
	if err != nil {
		return nil, err
	}
	return NewModel(vocab, tokens, counts, smoothing)
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// WithSmoothing rebuilds the probability matrix from the same counts with a
// new smoothing constant. m itself is left untouched.
func (m *Model) WithSmoothing(smoothing float64) (*Model, error) {
	probs, err := BuildProbabilities(m.counts, smoothing)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Model rebuilt",
		slog.Float64("old_smoothing", m.smoothing),
		slog.Float64("new_smoothing", smoothing),
	)
	return &Model{
		tokens:    m.tokens,
		vocab:     m.vocab,
		counts:    m.counts,
		probs:     probs,
		smoothing: smoothing,
		logger:    m.logger,
	}, nil
}

// Tokens returns the control tokens of the model.
func (m *Model) Tokens() Tokens { return m.tokens }

// Vocabulary returns the model's vocabulary.
func (m *Model) Vocabulary() *Vocabulary { return m.vocab }

// Smoothing returns the additive smoothing constant the matrix was built with.
func (m *Model) Smoothing() float64 { return m.smoothing }

// Probabilities returns a copy of the probability matrix.
func (m *Model) Probabilities() *mat.Dense { return mat.DenseCopyOf(m.probs) }

// Counts returns a copy of the count matrix.
func (m *Model) Counts() *mat.Dense { return mat.DenseCopyOf(m.counts) }

// ScoreWord is ScoreWord over the model's matrix.
func (m *Model) ScoreWord(word string) (float64, error) {
	return ScoreWord(word, m.probs, m.vocab, m.tokens)
}

// ScoreCorpus is ScoreCorpus over the model's matrix.
func (m *Model) ScoreCorpus(words []string) (float64, error) {
	_, nll, err := m.ScoreWords(words)
	return nll, err
}

// ScoreWords is ScoreWords over the model's matrix.
func (m *Model) ScoreWords(words []string) ([]float64, float64, error) {
	lls, nll, err := ScoreWords(words, m.probs, m.vocab, m.tokens)
	if err != nil {
		return nil, 0, err
	}
	m.logger.Debug("Corpus scored",
		slog.Int("words", len(words)),
		slog.Float64("neg_mean_log_likelihood", nll),
		slog.Float64("smoothing", m.smoothing),
	)
	return lls, nll, nil
}

// Generate draws one word from the model.
func (m *Model) Generate(opts ...GenerateOption) (Generation, error) {
	g, err := GenerateResult(m.tokens, m.vocab, m.probs, opts...)
	if err != nil {
		return Generation{}, err
	}
	if g.Terminated {
		m.logger.Debug("Generation terminated by end token",
			slog.String("word", g.Word),
			slog.Int("steps", g.Steps),
		)
	} else {
		m.logger.Debug("Generation terminated by reaching maxLength",
			slog.String("word", g.Word),
			slog.Int("steps", g.Steps),
		)
	}
	return g, nil
}
