package bigram

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSampleNextMatchesRow(t *testing.T) {
	v := toyVocab(t)
	probs := denseFromRows([][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{0.25, 0.25, 0.25, 0.25},
		{0, 0, 1, 0},
		{0, 0.5, 0.5, 0},
	})
	src := rand.NewPCG(1, 2)

	const draws = 20000
	seen := make(map[string]int)
	for i := 0; i < draws; i++ {
		s, err := SampleNext(src, 0, probs, v)
		require.NoError(t, err)
		seen[s]++
	}
	for j, want := range mat.Row(nil, 0, probs) {
		sym, _ := v.Symbol(j)
		assert.InDelta(t, want, float64(seen[sym])/draws, 0.02, sym)
	}

	// A degenerate row always yields the same symbol.
	for i := 0; i < 100; i++ {
		s, err := SampleNext(src, 2, probs, v)
		require.NoError(t, err)
		assert.Equal(t, "a", s)
	}

	// Zero-probability symbols are never drawn.
	for i := 0; i < 1000; i++ {
		s, err := SampleNext(src, 3, probs, v)
		require.NoError(t, err)
		assert.Contains(t, []string{"<E>", "a"}, s)
	}
}

func TestSampleNextReproducible(t *testing.T) {
	v := toyVocab(t)
	probs := toyProbs()

	draw := func(seed uint64) []string {
		src := rand.NewPCG(seed, seed)
		out := make([]string, 50)
		for i := range out {
			s, err := SampleNext(src, 1, probs, v)
			require.NoError(t, err)
			out[i] = s
		}
		return out
	}
	assert.Equal(t, draw(7), draw(7))
	assert.NotEqual(t, draw(7), draw(8))
}

func TestSampleNextErrors(t *testing.T) {
	v := toyVocab(t)
	probs := toyProbs()
	src := rand.NewPCG(1, 1)

	_, err := SampleNext(src, 4, probs, v)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = SampleNext(src, -1, probs, v)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = SampleNext(nil, 0, probs, v)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	unnormalized := denseFromRows([][]float64{
		{0, 1, 3, 1},
		{0.25, 0.25, 0.25, 0.25},
		{0.25, 0.25, 0.25, 0.25},
		{0.25, 0.25, 0.25, 0.25},
	})
	_, err = SampleNext(src, 0, unnormalized, v)
	assert.ErrorIs(t, err, ErrMalformedDistribution)
	// Other rows of the same matrix are still usable.
	_, err = SampleNext(src, 1, unnormalized, v)
	assert.NoError(t, err)

	negative := mat.DenseCopyOf(probs)
	negative.SetRow(0, []float64{-0.5, 0.5, 0.5, 0.5})
	_, err = SampleNext(src, 0, negative, v)
	assert.ErrorIs(t, err, ErrMalformedDistribution)

	_, err = SampleNext(src, 0, mat.NewDense(5, 5, nil), v)
	assert.ErrorIs(t, err, ErrVocabularyMismatch)
}

func TestChooseNextTemperatureAndTopK(t *testing.T) {
	src := rand.NewPCG(3, 4)
	row := func() []float64 { return []float64{0.1, 0.6, 0.3} }

	// Temperature 0 is argmax.
	o := &generateOptions{temperature: 0}
	assert.Equal(t, 1, chooseNext(src, row(), o))

	// Top-1 is argmax too, whatever the temperature.
	o = &generateOptions{temperature: 1, topK: 1}
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, chooseNext(src, row(), o))
	}

	// Top-2 never picks the least likely symbol.
	o = &generateOptions{temperature: 1, topK: 2}
	for i := 0; i < 500; i++ {
		assert.NotEqual(t, 0, chooseNext(src, row(), o))
	}

	// A very low temperature concentrates on the mode.
	o = &generateOptions{temperature: 0.05}
	hits := 0
	for i := 0; i < 500; i++ {
		if chooseNext(src, row(), o) == 1 {
			hits++
		}
	}
	assert.Greater(t, hits, 490)
}

func TestChooseNextTemperatureUnderflow(t *testing.T) {
	src := rand.NewPCG(5, 6)

	// Every log(p)/t overflows to -Inf, so the draw falls back to the mode.
	for _, temp := range []float64{1e-310, math.NaN()} {
		o := &generateOptions{temperature: temp}
		assert.Equal(t, 1, chooseNext(src, []float64{0.1, 0.6, 0.3}, o), "temperature %v", temp)
	}

	v := toyVocab(t)
	probs := denseFromRows([][]float64{
		{0, 0.2, 0.3, 0.5},
		{0.25, 0.25, 0.25, 0.25},
		{0, 0.5, 0.5, 0},
		{0, 0.5, 0.5, 0},
	})
	g, err := GenerateResult(DefaultTokens(), v, probs, WithTemperature(1e-310), WithSeed(1))
	require.NoError(t, err)
	assert.LessOrEqual(t, g.Steps, DefaultMaxLength)
}
