package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// WordFrequencies returns every distinct word of a corpus with its frequency.
func (s *Store) WordFrequencies(ctx context.Context, corpus CorpusInfo) (map[string]int, error) {
	rows, err := s.stmtGetWords.QueryContext(ctx, corpus.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	freqs := make(map[string]int)
	for rows.Next() {
		var word string
		var freq int
		if err = rows.Scan(&word, &freq); err != nil {
			return nil, err
		}
		freqs[word] = freq
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return freqs, nil
}

// Words returns the ordered word list of a corpus: words in lexical order,
// each repeated as many times as it was trained.
func (s *Store) Words(ctx context.Context, corpus CorpusInfo) ([]string, error) {
	rows, err := s.stmtGetWords.QueryContext(ctx, corpus.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var words []string
	for rows.Next() {
		var word string
		var freq int
		if err = rows.Scan(&word, &freq); err != nil {
			return nil, err
		}
		for i := 0; i < freq; i++ {
			words = append(words, word)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Vocabulary returns the alphabet of a corpus: its start token at index 0,
// its end token at index 1 and the characters of its words in sorted order.
func (s *Store) Vocabulary(ctx context.Context, corpus CorpusInfo) (*bigram.Vocabulary, error) {
	freqs, err := s.WordFrequencies(ctx, corpus)
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(freqs))
	for w := range freqs {
		words = append(words, w)
	}
	return bigram.BuildVocabulary(corpus.Tokens, words)
}

// Counts loads the bigram counts of a corpus into an N×N matrix aligned with
// vocab. A stored symbol missing from vocab fails with
// bigram.ErrVocabularyMismatch.
func (s *Store) Counts(ctx context.Context, corpus CorpusInfo, vocab *bigram.Vocabulary) (*mat.Dense, error) {
	n := vocab.Len()
	if n == 0 {
		return nil, fmt.Errorf("corpus '%s': %w", corpus.Name, bigram.ErrInvalidArgument)
	}

	rows, err := s.stmtGetCounts.QueryContext(ctx, corpus.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	counts := mat.NewDense(n, n, nil)
	for rows.Next() {
		var prev, next string
		var freq int
		if err = rows.Scan(&prev, &next, &freq); err != nil {
			return nil, err
		}
		i, ok := vocab.Index(prev)
		if !ok {
			return nil, fmt.Errorf("count %q -> %q: %w", prev, next, bigram.ErrVocabularyMismatch)
		}
		j, ok := vocab.Index(next)
		if !ok {
			return nil, fmt.Errorf("count %q -> %q: %w", prev, next, bigram.ErrVocabularyMismatch)
		}
		counts.Set(i, j, float64(freq))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// LoadModel assembles a bigram.Model for a corpus with the given smoothing
// constant. The model shares the Store's logger.
func (s *Store) LoadModel(ctx context.Context, corpus CorpusInfo, smoothing float64) (*bigram.Model, error) {
	vocab, err := s.Vocabulary(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("could not build vocabulary: %w", err)
	}
	counts, err := s.Counts(ctx, corpus, vocab)
	if err != nil {
		return nil, fmt.Errorf("could not load counts: %w", err)
	}
	model, err := bigram.NewModel(vocab, corpus.Tokens, counts, smoothing)
	if err != nil {
		return nil, err
	}
	model.SetLogger(s.logger)

	s.logger.InfoContext(ctx, "Model loaded",
		slog.String("corpus_name", corpus.Name),
		slog.Int("corpus_id", corpus.Id),
		slog.Int("vocab_size", vocab.Len()),
		slog.Float64("smoothing", smoothing),
	)
	return model, nil
}
