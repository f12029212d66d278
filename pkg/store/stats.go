package store

import (
	"context"
	"sort"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all corpora and their individual stats.
type DBStats struct {
	Corpora []CorpusInfo        `json:"corpora"` // A list of corpora in the database, ordered by id
	Stats   map[int]CorpusStats `json:"stats"`   // A mapping of corpus ids to their stats
}

// CorpusStats holds aggregated statistics for a single corpus.
type CorpusStats struct {
	DistinctWords   int `json:"distinct_words"`   // The number of unique words.
	TotalWords      int `json:"total_words"`      // The sum of word frequencies.
	DistinctBigrams int `json:"distinct_bigrams"` // The number of non-zero count matrix cells.
	TotalBigrams    int `json:"total_bigrams"`    // The sum of all counts; the total number of trained transitions.
	StartingSymbols int `json:"starting_symbols"` // The number of unique symbols that can follow the start token.
}

// GetCorpusStats returns the statistics of a single corpus.
func (s *Store) GetCorpusStats(ctx context.Context, corpus CorpusInfo) (CorpusStats, error) {
	var st CorpusStats
	if err := s.stmtCorpusWords.QueryRowContext(ctx, corpus.Id).Scan(&st.DistinctWords, &st.TotalWords); err != nil {
		return CorpusStats{}, err
	}
	if err := s.stmtCorpusCounts.QueryRowContext(ctx, corpus.Id).Scan(&st.DistinctBigrams, &st.TotalBigrams); err != nil {
		return CorpusStats{}, err
	}
	if err := s.stmtCorpusStarters.QueryRowContext(ctx, corpus.Id, corpus.Tokens.Start).Scan(&st.StartingSymbols); err != nil {
		return CorpusStats{}, err
	}
	return st, nil
}

// GetStats returns a snapshot of statistics for every corpus in the database.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	infos, err := s.GetCorpusInfos(ctx)
	if err != nil {
		return nil, err
	}

	corpora := make([]CorpusInfo, 0, len(infos))
	stats := make(map[int]CorpusStats, len(infos))
	for _, c := range infos {
		corpora = append(corpora, c)
		st, err := s.GetCorpusStats(ctx, c)
		if err != nil {
			return nil, err
		}
		stats[c.Id] = st
	}
	sort.Slice(corpora, func(i, j int) bool { return corpora[i].Id < corpora[j].Id })

	return &DBStats{
		Corpora: corpora,
		Stats:   stats,
	}, nil
}
