package bigram

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testNames is a small corpus shared by the end-to-end tests.
var testNames = []string{"emma", "olivia", "ava", "isabella", "sophia", "mia", "amelia", "harper", "evelyn", "abigail"}

// toyVocab returns the four-symbol alphabet {<S>, <E>, a, b}.
func toyVocab(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := NewVocabulary([]string{DefaultStartToken, DefaultEndToken, "a", "b"})
	require.NoError(t, err)
	return v
}

// toyProbs is a valid matrix over toyVocab with P(<S>→a) = P(a→<E>) = 0.5.
func toyProbs() *mat.Dense {
	return denseFromRows([][]float64{
		{0, 0.25, 0.5, 0.25},
		{0.25, 0.25, 0.25, 0.25},
		{0, 0.5, 0.25, 0.25},
		{0, 0.5, 0.5, 0},
	})
}

func denseFromRows(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}
