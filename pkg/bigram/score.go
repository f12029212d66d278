package bigram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ScoreWord returns the natural-log likelihood of word under probs: the word
// is lower-cased, wrapped with the start and end tokens, and the log
// probabilities of all adjacent pairs are summed. The result is always <= 0;
// a pair with probability zero yields -Inf. A symbol missing from vocab fails
// with ErrUnknownSymbol.
func ScoreWord(word string, probs mat.Matrix, vocab *Vocabulary, tokens Tokens) (float64, error) {
	if err := checkShape(probs, vocab); err != nil {
		return 0, err
	}
	idx, err := vocab.indices(ProcessWord(word, tokens))
	if err != nil {
		return 0, err
	}

	var ll float64
	for k := 1; k < len(idx); k++ {
		i, j := idx[k-1], idx[k]
		p := probs.At(i, j)
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, domainErrorf(ReasonMalformedDistribution, "P(%d,%d) = %v", i, j, p)
		}
		ll += math.Log(p)
	}
	return ll, nil
}

// ScoreCorpus returns the negative mean log-likelihood of words, the model's
// loss: lower is better. An empty list fails with ErrEmptyCorpus, and the
// first word that cannot be scored aborts the whole call.
func ScoreCorpus(words []string, probs mat.Matrix, vocab *Vocabulary, tokens Tokens) (float64, error) {
	_, nll, err := ScoreWords(words, probs, vocab, tokens)
	return nll, err
}

// ScoreWords is ScoreCorpus that also returns the log-likelihood of each
// word, in input order.
func ScoreWords(words []string, probs mat.Matrix, vocab *Vocabulary, tokens Tokens) ([]float64, float64, error) {
	if len(words) == 0 {
		return nil, 0, ErrEmptyCorpus
	}
	lls := make([]float64, len(words))
	for i, w := range words {
		ll, err := ScoreWord(w, probs, vocab, tokens)
		if err != nil {
			return nil, 0, fmt.Errorf("word %d (%q): %w", i, w, err)
		}
		lls[i] = ll
	}
	return lls, -floats.Sum(lls) / float64(len(words)), nil
}

// Perplexity converts a negative mean log-likelihood into a per-word perplexity.
func Perplexity(nll float64) float64 {
	return math.Exp(nll)
}
