package bigram

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGenerateDeterministicChains(t *testing.T) {
	v := toyVocab(t)

	testCases := []struct {
		name           string
		probs          *mat.Dense
		maxLength      int
		wantWord       string
		wantTerminated bool
		wantSteps      int
	}{
		{
			name: "Ends on end token",
			probs: denseFromRows([][]float64{
				{0, 0, 1, 0},
				{0.25, 0.25, 0.25, 0.25},
				{0, 0, 0, 1},
				{0, 1, 0, 0},
			}),
			maxLength:      10,
			wantWord:       "ab",
			wantTerminated: true,
			wantSteps:      3,
		},
		{
			name: "Stopped by maxLength",
			probs: denseFromRows([][]float64{
				{0, 0, 1, 0},
				{0.25, 0.25, 0.25, 0.25},
				{0, 0, 1, 0},
				{0, 1, 0, 0},
			}),
			maxLength: 5,
			wantWord:  "aaaaa",
			wantSteps: 5,
		},
		{
			name: "Zero maxLength",
			probs: denseFromRows([][]float64{
				{0, 0, 1, 0},
				{0.25, 0.25, 0.25, 0.25},
				{0, 0, 1, 0},
				{0, 1, 0, 0},
			}),
			maxLength: 0,
			wantWord:  "",
		},
		{
			name: "Immediate end",
			probs: denseFromRows([][]float64{
				{0, 1, 0, 0},
				{0.25, 0.25, 0.25, 0.25},
				{0, 0, 1, 0},
				{0, 1, 0, 0},
			}),
			maxLength:      10,
			wantWord:       "",
			wantTerminated: true,
			wantSteps:      1,
		},
		{
			name: "Start token closes the word",
			probs: denseFromRows([][]float64{
				{0, 0, 1, 0},
				{0.25, 0.25, 0.25, 0.25},
				{1, 0, 0, 0},
				{0, 1, 0, 0},
			}),
			maxLength:      10,
			wantWord:       "a",
			wantTerminated: true,
			wantSteps:      2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := GenerateResult(DefaultTokens(), v, tc.probs, WithMaxLength(tc.maxLength), WithSeed(1))
			require.NoError(t, err)
			assert.Equal(t, tc.wantWord, g.Word)
			assert.Equal(t, tc.wantTerminated, g.Terminated)
			assert.Equal(t, tc.wantSteps, g.Steps)

			word, err := Generate(DefaultTokens(), v, tc.probs, WithMaxLength(tc.maxLength))
			require.NoError(t, err)
			assert.Equal(t, tc.wantWord, word)
		})
	}
}

func TestGenerateTermination(t *testing.T) {
	model, err := Train(testNames, DefaultTokens(), 1)
	require.NoError(t, err)
	src := rand.NewPCG(42, 42)

	for _, maxLength := range []int{0, 1, 3, 15} {
		for i := 0; i < 200; i++ {
			g, err := model.Generate(WithMaxLength(maxLength), WithSource(src))
			require.NoError(t, err)
			assert.LessOrEqual(t, utf8.RuneCountInString(g.Word), maxLength)
			assert.LessOrEqual(t, g.Steps, maxLength)
			assert.NotContains(t, g.Word, DefaultStartToken)
			assert.NotContains(t, g.Word, DefaultEndToken)
			if g.Terminated {
				// The end token consumed one step without adding a symbol.
				assert.Equal(t, g.Steps-1, utf8.RuneCountInString(g.Word))
			} else {
				assert.Equal(t, maxLength, utf8.RuneCountInString(g.Word))
			}
		}
	}
}

func TestGenerateReproducible(t *testing.T) {
	model, err := Train(testNames, DefaultTokens(), 0.1)
	require.NoError(t, err)

	run := func(seed uint64) []string {
		src := rand.NewPCG(seed, 0)
		out := make([]string, 20)
		for i := range out {
			g, err := model.Generate(WithSource(src))
			require.NoError(t, err)
			out[i] = g.Word
		}
		return out
	}
	assert.Equal(t, run(99), run(99))
}

func TestGenerateGreedy(t *testing.T) {
	model, err := Train([]string{"ab", "ab", "ac"}, DefaultTokens(), 0.001)
	require.NoError(t, err)

	g, err := model.Generate(WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "ab", g.Word)
	assert.True(t, g.Terminated)

	g, err = model.Generate(WithTopK(1), WithSeed(5))
	require.NoError(t, err)
	assert.Equal(t, "ab", g.Word)
}

func TestGenerateCustomTokens(t *testing.T) {
	tokens := Tokens{Start: "^", End: "$"}
	model, err := Train([]string{"xy"}, tokens, 0.001)
	require.NoError(t, err)

	word, err := Generate(tokens, model.Vocabulary(), model.Probabilities(), WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "xy", word)
}

func TestGenerateErrors(t *testing.T) {
	v := toyVocab(t)
	probs := toyProbs()

	_, err := Generate(Tokens{Start: "^", End: "<E>"}, v, probs)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = Generate(DefaultTokens(), v, mat.NewDense(3, 3, nil))
	assert.ErrorIs(t, err, ErrVocabularyMismatch)

	_, err = Generate(DefaultTokens(), v, probs, WithMaxLength(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	for _, temp := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = Generate(DefaultTokens(), v, probs, WithTemperature(temp))
		assert.ErrorIs(t, err, ErrInvalidArgument, "temperature %v", temp)
	}

	bad := mat.DenseCopyOf(probs)
	bad.SetRow(0, []float64{0, 0, 2, 0})
	_, err = Generate(DefaultTokens(), v, bad)
	assert.ErrorIs(t, err, ErrMalformedDistribution)

	// A missing end token is allowed; the walk simply runs to maxLength.
	noEnd, err := NewVocabulary([]string{"<S>", "a"})
	require.NoError(t, err)
	loop := denseFromRows([][]float64{{0, 1}, {0, 1}})
	word, err := Generate(DefaultTokens(), noEnd, loop, WithMaxLength(4))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 4), word)
}
