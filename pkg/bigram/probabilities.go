package bigram

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rowSumTolerance is how far a probability row may drift from 1.0.
const rowSumTolerance = 1e-6

// CountBigrams builds the N×N count matrix of words: entry (i, j) is the
// number of times symbol i is immediately followed by symbol j once every
// word has been wrapped with the start and end tokens.
func CountBigrams(words []string, vocab *Vocabulary, tokens Tokens) (*mat.Dense, error) {
	if vocab == nil || vocab.Len() == 0 {
		return nil, domainErrorf(ReasonInvalidArgument, "empty vocabulary")
	}
	n := vocab.Len()
	counts := mat.NewDense(n, n, nil)
	for _, w := range words {
		idx, err := vocab.indices(ProcessWord(w, tokens))
		if err != nil {
			return nil, err
		}
		for k := 1; k < len(idx); k++ {
			i, j := idx[k-1], idx[k]
			counts.Set(i, j, counts.At(i, j)+1)
		}
	}
	return counts, nil
}

// BuildProbabilities converts a count matrix into a probability matrix.
// smoothing is added to every cell (additive smoothing) and each row is then
// divided by its own sum, so every row of the result is a categorical
// distribution over the following symbol. A row that still sums to zero
// (possible only when smoothing is 0) fails with ErrNoObservedContinuations.
// counts is never modified.
func BuildProbabilities(counts mat.Matrix, smoothing float64) (*mat.Dense, error) {
	if counts == nil {
		return nil, domainErrorf(ReasonInvalidArgument, "nil count matrix")
	}
	if math.IsNaN(smoothing) || math.IsInf(smoothing, 0) || smoothing < 0 {
		return nil, domainErrorf(ReasonInvalidArgument, "smoothing must be a finite value >= 0, got %v", smoothing)
	}
	r, c := counts.Dims()
	if r == 0 || r != c {
		return nil, domainErrorf(ReasonInvalidArgument, "count matrix must be square and non-empty, got %dx%d", r, c)
	}

	probs := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, counts)
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domainErrorf(ReasonInvalidArgument, "count (%d,%d) = %v", i, j, v)
			}
			row[j] = v + smoothing
		}
		total := floats.Sum(row)
		if total == 0 {
			return nil, domainErrorf(ReasonNoObservedContinuations, "row %d", i)
		}
		for j := range row {
			row[j] /= total
		}
		probs.SetRow(i, row)
	}
	return probs, nil
}

// checkShape fails unless probs is an N×N matrix over vocab.
func checkShape(probs mat.Matrix, vocab *Vocabulary) error {
	if probs == nil {
		return domainErrorf(ReasonInvalidArgument, "nil probability matrix")
	}
	if vocab == nil {
		return domainErrorf(ReasonInvalidArgument, "nil vocabulary")
	}
	r, c := probs.Dims()
	if n := vocab.Len(); r != n || c != n {
		return domainErrorf(ReasonVocabularyMismatch, "matrix is %dx%d, vocabulary has %d symbols", r, c, n)
	}
	return nil
}

// checkRow fails unless row is a categorical distribution.
func checkRow(i int, row []float64) error {
	for j, p := range row {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return domainErrorf(ReasonMalformedDistribution, "row %d has entry %v at column %d", i, p, j)
		}
	}
	if sum := floats.Sum(row); math.Abs(sum-1) > rowSumTolerance {
		return domainErrorf(ReasonMalformedDistribution, "row %d sums to %v", i, sum)
	}
	return nil
}
