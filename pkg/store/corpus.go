package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// CorpusInfo holds the essential metadata for a corpus: its unique ID, its
// name and the control tokens its words are wrapped with before counting.
type CorpusInfo struct {
	Id     int           `json:"id"`
	Name   string        `json:"name"`
	Tokens bigram.Tokens `json:"tokens"`
}

// ExportedCorpus is the serializable representation of a corpus, used for
// JSON-based import and export. Only the word list is transferred; counts are
// recomputed on import.
type ExportedCorpus struct {
	Name   string         `json:"name"`
	Tokens bigram.Tokens  `json:"tokens"`
	Words  map[string]int `json:"words"` // word -> frequency
}

// GetCorpusInfos retrieves metadata for all corpora currently in the database,
// returning them in a map keyed by corpus name.
func (s *Store) GetCorpusInfos(ctx context.Context) (map[string]CorpusInfo, error) {
	rows, err := s.stmtGetCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make(map[string]CorpusInfo)
	for rows.Next() {
		var c CorpusInfo
		if err = rows.Scan(&c.Id, &c.Name, &c.Tokens.Start, &c.Tokens.End); err != nil {
			return nil, err
		}
		corpora[c.Name] = c
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return corpora, nil
}

// GetCorpusInfo retrieves the metadata for a single corpus specified by name.
// It returns sql.ErrNoRows if no such corpus exists.
func (s *Store) GetCorpusInfo(ctx context.Context, name string) (CorpusInfo, error) {
	c := CorpusInfo{Name: name}
	err := s.stmtGetCorpusInfo.QueryRowContext(ctx, name).Scan(&c.Id, &c.Tokens.Start, &c.Tokens.End)
	if err != nil {
		return CorpusInfo{}, err
	}
	return c, nil
}

// InsertCorpus creates a new, empty corpus entry in the database.
func (s *Store) InsertCorpus(ctx context.Context, corpus CorpusInfo) error {
	if corpus.Name == "" {
		return errors.New("corpus name must not be empty")
	}
	if err := corpus.Tokens.Validate(); err != nil {
		return err
	}
	_, err := s.stmtAddCorpus.ExecContext(ctx, corpus.Name, corpus.Tokens.Start, corpus.Tokens.End)
	return err
}

// RemoveCorpus deletes a corpus and all of its words and counts from the
// database. The operation is performed within a transaction.
func (s *Store) RemoveCorpus(ctx context.Context, corpus CorpusInfo) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM bigram_counts WHERE corpus_id = ?", corpus.Id); err != nil {
		return fmt.Errorf("failed to remove counts for corpus %d: %w", corpus.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM bigram_words WHERE corpus_id = ?", corpus.Id); err != nil {
		return fmt.Errorf("failed to remove words for corpus %d: %w", corpus.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM bigram_corpora WHERE corpus_id = ?", corpus.Id); err != nil {
		return fmt.Errorf("failed to remove corpus %d: %w", corpus.Id, err)
	}

	s.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", corpus.Name),
		slog.Int("corpus_id", corpus.Id),
	)

	return tx.Commit()
}

// ExportCorpus serializes a corpus word list into JSON and writes it to the
// provided io.Writer. This is useful for backups or for moving a corpus
// between databases.
func (s *Store) ExportCorpus(ctx context.Context, corpus CorpusInfo, w io.Writer) error {
	freqs, err := s.WordFrequencies(ctx, corpus)
	if err != nil {
		return fmt.Errorf("could not query words for export: %w", err)
	}

	exported := ExportedCorpus{
		Name:   corpus.Name,
		Tokens: corpus.Tokens,
		Words:  freqs,
	}

	s.logger.InfoContext(ctx, "Corpus exported",
		slog.String("corpus_name", corpus.Name),
		slog.Int("corpus_id", corpus.Id),
		slog.Int("words_exported", len(freqs)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportCorpus reads a JSON representation of a corpus from an io.Reader and
// merges it into the database. If the corpus name already exists, word
// frequencies and bigram counts are added to the existing ones, provided the
// tokens agree. If it does not exist, it is created. Words Train would skip
// for length are skipped here too. The entire operation is transactional.
func (s *Store) ImportCorpus(ctx context.Context, r io.Reader) (CorpusInfo, error) {
	var imported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to decode json corpus: %w", err)
	}
	if imported.Name == "" {
		return CorpusInfo{}, errors.New("imported corpus has no name")
	}
	if err := imported.Tokens.Validate(); err != nil {
		return CorpusInfo{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	corpus := CorpusInfo{Name: imported.Name}
	err = tx.QueryRowContext(ctx, "SELECT corpus_id, start_token, end_token FROM bigram_corpora WHERE corpus_name = ?", imported.Name).
		Scan(&corpus.Id, &corpus.Tokens.Start, &corpus.Tokens.End)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO bigram_corpora (corpus_name, start_token, end_token) VALUES (?, ?, ?)",
			imported.Name, imported.Tokens.Start, imported.Tokens.End)
		if err != nil {
			return CorpusInfo{}, fmt.Errorf("failed to insert new corpus '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		corpus.Id = int(newID)
		corpus.Tokens = imported.Tokens
	} else if err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to query for corpus '%s': %w", imported.Name, err)
	} else if corpus.Tokens != imported.Tokens {
		return CorpusInfo{}, fmt.Errorf("corpus '%s' uses tokens %q/%q, import uses %q/%q",
			imported.Name, corpus.Tokens.Start, corpus.Tokens.End, imported.Tokens.Start, imported.Tokens.End)
	}

	batch := newTrainBatch()
	var skipped int
	for word, freq := range imported.Words {
		if freq <= 0 {
			return CorpusInfo{}, fmt.Errorf("import consistency error: word '%s' has frequency %d", word, freq)
		}
		word = normalizeWord(word)
		if utf8.RuneCountInString(word) > maxWordLength {
			skipped++
			continue
		}
		batch.add(word, freq, corpus.Tokens)
	}
	if err = s.commitBatch(ctx, tx, corpus, batch); err != nil {
		return CorpusInfo{}, err
	}

	s.logger.InfoContext(ctx, "Corpus imported successfully",
		slog.String("corpus_name", corpus.Name),
		slog.Int("target_corpus_id", corpus.Id),
		slog.Int("words_merged", len(imported.Words)-skipped),
		slog.Int("words_skipped", skipped),
	)

	return corpus, tx.Commit()
}
