package store

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// bigramKey identifies one count matrix cell by its symbols.
type bigramKey struct {
	prev, next string
}

// trainBatch Is a struct used for batching word and count inserts.
type trainBatch struct {
	words  map[string]int
	counts map[bigramKey]int
}

func newTrainBatch() *trainBatch {
	return &trainBatch{
		words:  make(map[string]int),
		counts: make(map[bigramKey]int),
	}
}

// add records freq occurrences of word and of every bigram of its processed form.
func (b *trainBatch) add(word string, freq int, tokens bigram.Tokens) {
	if word == "" {
		return
	}
	b.words[word] += freq
	processed := bigram.ProcessWord(word, tokens)
	for i := 1; i < len(processed); i++ {
		b.counts[bigramKey{prev: processed[i-1], next: processed[i]}] += freq
	}
}

func (b *trainBatch) len() int { return len(b.words) }

func (b *trainBatch) reset() {
	clear(b.words)
	clear(b.counts)
}

const (
	// maxWordLength keeps pathological words out of the corpus, in runes.
	maxWordLength = 256
	// maxLineBytes bounds a raw input line; longer lines are dropped unread.
	maxLineBytes = 4096
)

// scanWordLines is bufio.ScanLines that discards lines longer than
// maxLineBytes instead of failing the scan, calling onSkip once per line.
func scanWordLines(onSkip func()) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if discarding {
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				discarding = false
				return i + 1, nil, nil
			}
			return len(data), nil, nil
		}
		if len(data) > maxLineBytes && bytes.IndexByte(data[:maxLineBytes+1], '\n') < 0 {
			discarding = true
			onSkip()
			return len(data), nil, nil
		}
		return bufio.ScanLines(data, atEOF)
	}
}

// normalizeWord trims and lower-cases one line of a word list.
func normalizeWord(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// Train reads a word list from an io.Reader, one word per line, and adds the
// words and their bigram counts to the specified corpus. Lines are trimmed
// and lower-cased, blank lines are skipped, and words longer than 256 runes
// are skipped along with raw lines over 4 KiB. Writes are batched in memory and
// the entire operation runs within a single database transaction.
func (s *Store) Train(ctx context.Context, corpus CorpusInfo, data io.Reader) error {
	// wordBatchSize determines how many distinct words are buffered in memory before being written to the database in a single batch.
	const wordBatchSize = 1000

	if err := corpus.Tokens.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	batch := newTrainBatch()
	var wordCount, skipped int64

	scanner := bufio.NewScanner(data)
	scanner.Split(scanWordLines(func() { skipped++ }))
	for scanner.Scan() {
		word := normalizeWord(scanner.Text())
		if word == "" {
			continue
		}
		if utf8.RuneCountInString(word) > maxWordLength {
			skipped++
			continue
		}
		batch.add(word, 1, corpus.Tokens)
		wordCount++

		if batch.len() >= wordBatchSize {
			if err = s.commitBatch(ctx, tx, corpus, batch); err != nil {
				return err
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return fmt.Errorf("word list read error: %w", err)
	}

	if err = s.commitBatch(ctx, tx, corpus, batch); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Training completed",
		slog.String("corpus_name", corpus.Name),
		slog.Int("corpus_id", corpus.Id),
		slog.Int64("words_processed", wordCount),
		slog.Int64("words_skipped", skipped),
	)

	return tx.Commit()
}

// commitBatch writes the buffered words and counts through tx and empties the batch.
func (s *Store) commitBatch(ctx context.Context, tx *sql.Tx, corpus CorpusInfo, batch *trainBatch) error {
	if batch.len() == 0 {
		return nil
	}
	stmtInsertWord := tx.StmtContext(ctx, s.stmtInsertWord)
	stmtInsertCount := tx.StmtContext(ctx, s.stmtInsertCount)

	for word, freq := range batch.words {
		if _, err := stmtInsertWord.ExecContext(ctx, corpus.Id, word, freq); err != nil {
			return fmt.Errorf("failed during batch insert of word '%s': %w", word, err)
		}
	}
	for key, freq := range batch.counts {
		if _, err := stmtInsertCount.ExecContext(ctx, corpus.Id, key.prev, key.next, freq); err != nil {
			return fmt.Errorf("failed during batch insert of bigram (%s -> %s): %w", key.prev, key.next, err)
		}
	}
	batch.reset()
	return nil
}
