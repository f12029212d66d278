package bigram

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewModel(t *testing.T) {
	v := toyVocab(t)
	counts := denseFromRows([][]float64{
		{0, 0, 3, 1},
		{0, 0, 0, 0},
		{0, 2, 1, 1},
		{0, 1, 1, 0},
	})

	m, err := NewModel(v, DefaultTokens(), counts, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Smoothing())
	assert.Equal(t, DefaultTokens(), m.Tokens())
	assert.Same(t, v, m.Vocabulary())
	assert.InDelta(t, 0.5, m.Probabilities().At(0, 2), 1e-12)

	// The model keeps its own copy of the counts.
	counts.Set(0, 2, 100)
	assert.Equal(t, 3.0, m.Counts().At(0, 2))

	// Returned matrices are copies too.
	p := m.Probabilities()
	p.Set(0, 0, 42)
	assert.NotEqual(t, 42.0, m.Probabilities().At(0, 0))
}

func TestNewModelErrors(t *testing.T) {
	v := toyVocab(t)
	counts := mat.NewDense(4, 4, nil)

	_, err := NewModel(nil, DefaultTokens(), counts, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewModel(v, Tokens{Start: "^", End: "$"}, counts, 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = NewModel(v, Tokens{Start: "<S>", End: "<S>"}, counts, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewModel(v, DefaultTokens(), mat.NewDense(3, 3, nil), 1)
	assert.ErrorIs(t, err, ErrVocabularyMismatch)

	_, err = NewModel(v, DefaultTokens(), counts, 0)
	assert.ErrorIs(t, err, ErrNoObservedContinuations)
}

func TestTrainWithoutSmoothing(t *testing.T) {
	// The end token never precedes anything, so its row is empty and an
	// unsmoothed model cannot be normalized.
	_, err := Train(testNames, DefaultTokens(), 0)
	require.ErrorIs(t, err, ErrNoObservedContinuations)
	assert.Contains(t, err.Error(), "row 1")
}

func TestModelWithSmoothing(t *testing.T) {
	m, err := Train(testNames, DefaultTokens(), 1)
	require.NoError(t, err)
	before := m.Probabilities()

	rebuilt, err := m.WithSmoothing(5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rebuilt.Smoothing())
	assert.Equal(t, 1.0, m.Smoothing())
	assert.True(t, mat.Equal(before, m.Probabilities()))
	assert.False(t, mat.Equal(before, rebuilt.Probabilities()))

	back, err := rebuilt.WithSmoothing(1)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, back.Probabilities()))

	_, err = m.WithSmoothing(-2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestModelLogging(t *testing.T) {
	m, err := Train(testNames, DefaultTokens(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	m.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	m.SetLogger(nil) // ignored

	_, err = m.ScoreCorpus(testNames)
	require.NoError(t, err)
	_, err = m.Generate(WithMaxLength(0))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Corpus scored")
	assert.Contains(t, out, "neg_mean_log_likelihood=")
	assert.Contains(t, out, "Generation terminated by reaching maxLength")
}
