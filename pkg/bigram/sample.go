package bigram

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SampleNext draws the symbol that follows the symbol at index current. The
// draw is an exact categorical sample from row current of probs: index j is
// chosen with probability probs[current][j]. The row must sum to 1 within
// 1e-6, otherwise the call fails with ErrMalformedDistribution.
func SampleNext(src rand.Source, current int, probs mat.Matrix, vocab *Vocabulary) (string, error) {
	if src == nil {
		return "", domainErrorf(ReasonInvalidArgument, "nil random source")
	}
	if err := checkShape(probs, vocab); err != nil {
		return "", err
	}
	next, err := sampleIndex(src, current, probs, defaultGenerateOptions())
	if err != nil {
		return "", err
	}
	sym, ok := vocab.Symbol(next)
	if !ok {
		return "", domainErrorf(ReasonVocabularyMismatch, "sampled index %d has no symbol", next)
	}
	return sym, nil
}

// sampleIndex validates row current of probs and draws one column index
// from it, honouring the temperature and top-K settings of o.
func sampleIndex(src rand.Source, current int, probs mat.Matrix, o *generateOptions) (int, error) {
	r, _ := probs.Dims()
	if current < 0 || current >= r {
		return 0, domainErrorf(ReasonUnknownSymbol, "symbol index %d out of range [0,%d)", current, r)
	}
	row := mat.Row(nil, current, probs)
	if err := checkRow(current, row); err != nil {
		return 0, err
	}
	return chooseNext(src, row, o), nil
}

// chooseNext selects an index from a validated distribution. row may be
// rewritten.
func chooseNext(src rand.Source, row []float64, o *generateOptions) int {
	// topK filtering
	if o.topK > 0 && o.topK < len(row) {
		order := make([]int, len(row))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return row[order[a]] > row[order[b]]
		})
		for _, i := range order[o.topK:] {
			row[i] = 0
		}
	}

	switch {
	case o.temperature <= 0: // Deterministic
		return argmax(row)
	case o.temperature != 1:
		maxLog := math.Inf(-1)
		logs := make([]float64, len(row))
		for i, p := range row {
			logs[i] = math.Log(p) / o.temperature
			if logs[i] > maxLog {
				maxLog = logs[i]
			}
		}
		// Every scaled log underflowed, so only the mode is left.
		if math.IsInf(maxLog, 0) || math.IsNaN(maxLog) {
			return argmax(row)
		}
		for i, lp := range logs {
			if row[i] == 0 {
				continue
			}
			row[i] = math.Exp(lp - maxLog)
		}
	}

	return int(distuv.NewCategorical(row, src).Rand())
}

// argmax returns the first index holding the largest value of row.
func argmax(row []float64) int {
	best := 0
	for i, p := range row {
		if p > row[best] {
			best = i
		}
	}
	return best
}
