package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// testWordList is a small names corpus, one word per line as Train reads it.
const testWordList = "Emma\nolivia\n\n  Ava \nisabella\nsophia\nmia\nemma\n"

// setupTestDB creates a new SQLite database in a temp dir and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestDBWithTraining is a convenience helper that also trains a default corpus.
func setupTestDBWithTraining(t *testing.T) (context.Context, *Store, CorpusInfo) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	corpus := CorpusInfo{Name: "names", Tokens: bigram.DefaultTokens()}

	if err := s.InsertCorpus(ctx, corpus); err != nil {
		t.Fatalf("setup: InsertCorpus() failed: %v", err)
	}
	corpus, err := s.GetCorpusInfo(ctx, corpus.Name)
	if err != nil {
		t.Fatalf("setup: GetCorpusInfo() failed: %v", err)
	}
	if err := s.Train(ctx, corpus, strings.NewReader(testWordList)); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, s, corpus
}

// syntheticWords returns n distinct lower-case words.
func syntheticWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		var sb strings.Builder
		for v := i + 1; v > 0; v /= 26 {
			sb.WriteByte(byte('a' + v%26))
		}
		words[i] = fmt.Sprintf("%sx", sb.String())
	}
	return words
}

// newBenchStore creates a schema-initialized Store for benchmarks.
func newBenchStore(b *testing.B) *Store {
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		b.Fatalf("failed to open database: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		b.Fatalf("failed to set up schema: %v", err)
	}
	s, err := NewStore(db)
	if err != nil {
		b.Fatalf("NewStore() error = %v", err)
	}
	b.Cleanup(s.Close)
	return s
}
