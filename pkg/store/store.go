package store

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS bigram_corpora (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    start_token TEXT NOT NULL,
    end_token TEXT NOT NULL
);
`
		schemaWords = `
CREATE TABLE IF NOT EXISTS bigram_words (
    corpus_id INTEGER NOT NULL,
    word TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (corpus_id, word)
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS bigram_counts (
    corpus_id INTEGER NOT NULL,
    prev_symbol TEXT NOT NULL,
    next_symbol TEXT NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (corpus_id, prev_symbol, next_symbol)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaCorpora); err != nil {
		return fmt.Errorf("could not create corpora schema: %w", err)
	}

	if _, err = tx.Exec(schemaWords); err != nil {
		return fmt.Errorf("could not create words schema: %w", err)
	}

	if _, err = tx.Exec(schemaCounts); err != nil {
		return fmt.Errorf("could not create counts schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is the database-backed provider of corpora, vocabularies and bigram
// count matrices. It holds the database connection and prepared SQL
// statements for efficient database interaction.
type Store struct {
	db                 *sql.DB
	stmtGetCorpusInfo  *sql.Stmt
	stmtGetCorpora     *sql.Stmt
	stmtAddCorpus      *sql.Stmt
	stmtPruneCounts    *sql.Stmt
	stmtCorpusWords    *sql.Stmt
	stmtCorpusCounts   *sql.Stmt
	stmtCorpusStarters *sql.Stmt
	stmtGetWords       *sql.Stmt
	stmtGetCounts      *sql.Stmt
	stmtInsertWord     *sql.Stmt
	stmtInsertCount    *sql.Stmt
	logger             *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetCorpusInfo, err := db.Prepare(`SELECT corpus_id, start_token, end_token FROM bigram_corpora WHERE corpus_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetCorpora, err := db.Prepare(`SELECT corpus_id, corpus_name, start_token, end_token FROM bigram_corpora ORDER BY corpus_id;`)
	if err != nil {
		return nil, err
	}

	stmtAddCorpus, err := db.Prepare(`INSERT INTO bigram_corpora (corpus_name, start_token, end_token) VALUES (?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtPruneCounts, err := db.Prepare(`DELETE FROM bigram_counts WHERE corpus_id = ? AND frequency <= ?;`)
	if err != nil {
		return nil, err
	}

	stmtCorpusWords, err := db.Prepare(`SELECT COUNT(*), coalesce(SUM(frequency), 0) FROM bigram_words WHERE corpus_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtCorpusCounts, err := db.Prepare(`SELECT COUNT(*), coalesce(SUM(frequency), 0) FROM bigram_counts WHERE corpus_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtCorpusStarters, err := db.Prepare(`SELECT COUNT(*) FROM bigram_counts WHERE corpus_id = ? AND prev_symbol = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetWords, err := db.Prepare(`SELECT word, frequency FROM bigram_words WHERE corpus_id = ? ORDER BY word;`)
	if err != nil {
		return nil, err
	}

	stmtGetCounts, err := db.Prepare(`SELECT prev_symbol, next_symbol, frequency FROM bigram_counts WHERE corpus_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsertWord, err := db.Prepare(`INSERT INTO bigram_words (corpus_id, word, frequency) VALUES (?, ?, ?) ON CONFLICT(corpus_id, word) DO UPDATE SET frequency = frequency + excluded.frequency;`)
	if err != nil {
		return nil, err
	}

	stmtInsertCount, err := db.Prepare(`INSERT INTO bigram_counts (corpus_id, prev_symbol, next_symbol, frequency) VALUES (?, ?, ?, ?) ON CONFLICT(corpus_id, prev_symbol, next_symbol) DO UPDATE SET frequency = frequency + excluded.frequency;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                 db,
		stmtGetCorpusInfo:  stmtGetCorpusInfo,
		stmtGetCorpora:     stmtGetCorpora,
		stmtAddCorpus:      stmtAddCorpus,
		stmtPruneCounts:    stmtPruneCounts,
		stmtCorpusWords:    stmtCorpusWords,
		stmtCorpusCounts:   stmtCorpusCounts,
		stmtCorpusStarters: stmtCorpusStarters,
		stmtGetWords:       stmtGetWords,
		stmtGetCounts:      stmtGetCounts,
		stmtInsertWord:     stmtInsertWord,
		stmtInsertCount:    stmtInsertCount,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should be
// called when the Store is no longer needed to free up database resources.
func (s *Store) Close() {
	_ = s.stmtGetCorpusInfo.Close()
	_ = s.stmtGetCorpora.Close()
	_ = s.stmtAddCorpus.Close()
	_ = s.stmtPruneCounts.Close()
	_ = s.stmtCorpusWords.Close()
	_ = s.stmtCorpusCounts.Close()
	_ = s.stmtCorpusStarters.Close()
	_ = s.stmtGetWords.Close()
	_ = s.stmtGetCounts.Close()
	_ = s.stmtInsertWord.Close()
	_ = s.stmtInsertCount.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
// Providing a `log/slog.Logger` will enable logging for training, pruning,
// import/export and model loading.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
