package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateCommand(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), nil)
	ctx := context.Background()

	var first, second bytes.Buffer
	if err := runCommand(ctx, path, "generate", []string{"-n", "4", "-seed", "7"}, &first); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := runCommand(ctx, path, "generate", []string{"-n", "4", "-seed", "7"}, &second); err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	if lines := strings.Count(first.String(), "\n"); lines != 4 {
		t.Errorf("expected 4 lines, got %d: %q", lines, first.String())
	}
	if first.String() != second.String() {
		t.Errorf("seeded output differs:\n%s\nvs\n%s", first.String(), second.String())
	}

	if err := runCommand(ctx, path, "generate", []string{"-n", "0"}, &first); err == nil {
		t.Error("expected an error for -n 0")
	}
}

func TestScoreAndImportCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, nil)
	ctx := context.Background()

	scoreFile := filepath.Join(dir, "score.txt")
	if err := os.WriteFile(scoreFile, []byte("emma\n\nava\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := runCommand(ctx, path, "score", []string{scoreFile}, &out); err != nil {
		t.Fatalf("score failed: %v", err)
	}
	for _, want := range []string{"emma\t", "ava\t", "neg_mean_log_likelihood\t", "perplexity\t"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected score output to contain %q, got %q", want, out.String())
		}
	}

	// "q" is not in the seeded corpus until it is imported.
	if err := os.WriteFile(scoreFile, []byte("quinn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCommand(ctx, path, "score", []string{scoreFile}, &out); err == nil {
		t.Fatal("expected scoring an unknown symbol to fail")
	}
	out.Reset()
	if err := runCommand(ctx, path, "import", []string{scoreFile}, &out); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out.String(), "7 words") {
		t.Errorf("expected 7 words after import, got %q", out.String())
	}
	if err := runCommand(ctx, path, "score", []string{scoreFile}, &out); err != nil {
		t.Errorf("expected scoring to succeed after import, got %v", err)
	}

	if err := runCommand(ctx, path, "score", nil, &out); err == nil {
		t.Error("expected an error without a file argument")
	}
}
