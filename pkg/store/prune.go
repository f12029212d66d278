package store

import (
	"context"
	"fmt"
	"log/slog"
)

// PruneCorpus removes all bigram counts from a specific corpus that have a
// frequency less than or equal to `minFreq`. Words are kept, so the corpus
// vocabulary does not change; pruned cells simply read as zero, and rows left
// empty need a positive smoothing constant to be normalized.
func (s *Store) PruneCorpus(ctx context.Context, corpus CorpusInfo, minFreq int) (int64, error) {
	res, err := s.stmtPruneCounts.ExecContext(ctx, corpus.Id, minFreq)
	if err != nil {
		return 0, fmt.Errorf("could not prune corpus %d: %w", corpus.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Corpus pruned",
		slog.String("corpus_name", corpus.Name),
		slog.Int("corpus_id", corpus.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("bigrams_removed", rowsAffected),
	)
	return rowsAffected, nil
}
