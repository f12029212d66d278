package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// runCommand executes one of the offline commands against the configured
// corpus and writes its results to out. Logs go to stderr.
func runCommand(ctx context.Context, configPath, command string, args []string, out io.Writer) error {
	cm, err := NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(os.Stderr, cm.Get())
	cm.SetLogger(logger)

	app, err := NewApp(ctx, cm, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	switch command {
	case "import":
		return importCommand(ctx, app, args, out)
	case "score":
		return scoreCommand(ctx, app, args, out)
	case "generate":
		return generateCommand(ctx, app, args, out)
	}
	return fmt.Errorf("unknown command %q", command)
}

// currentModel returns the served snapshot. When there is none it retries the
// build so the caller sees why it fails.
func currentModel(ctx context.Context, app *App) (*bigram.Model, error) {
	if m, err := app.Model(); err == nil {
		return m, nil
	}
	if err := app.Reload(ctx); err != nil {
		return nil, fmt.Errorf("could not build model: %w", err)
	}
	return app.Model()
}

func importCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("import expects exactly one word list file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	corpus, err := app.ActiveCorpus(ctx)
	if err != nil {
		return err
	}
	if err = app.store.Train(ctx, corpus, f); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	st, err := app.store.GetCorpusStats(ctx, corpus)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "corpus %s: %d words (%d distinct), %d bigrams (%d distinct)\n",
		corpus.Name, st.TotalWords, st.DistinctWords, st.TotalBigrams, st.DistinctBigrams)
	return err
}

// readWords reads a word list, one word per line, skipping blank lines.
func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}

func scoreCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("score expects exactly one word list file")
	}
	model, err := currentModel(ctx, app)
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	words, err := readWords(f)
	if err != nil {
		return err
	}
	lls, nll, err := model.ScoreWords(words)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	for i, word := range words {
		_, _ = fmt.Fprintf(w, "%s\t%.6f\n", word, lls[i])
	}
	_, _ = fmt.Fprintf(w, "neg_mean_log_likelihood\t%.6f\nperplexity\t%.6f\n", nll, bigram.Perplexity(nll))
	return w.Flush()
}

func generateCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	n := fs.Int("n", 10, "number of words to generate")
	seed := fs.Uint64("seed", 0, "seed for reproducible output")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if *n < 1 {
		return fmt.Errorf("generate: -n must be positive, got %d", *n)
	}

	model, err := currentModel(ctx, app)
	if err != nil {
		return err
	}
	mc := app.cm.Get().Model
	opts := []bigram.GenerateOption{
		bigram.WithMaxLength(mc.MaxLength),
		bigram.WithTemperature(mc.Temperature),
		bigram.WithTopK(mc.TopK),
	}
	seeded := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seeded = true
		}
	})
	if seeded {
		opts = append(opts, bigram.WithSeed(*seed))
	}

	w := bufio.NewWriter(out)
	for i := 0; i < *n; i++ {
		g, err := model.Generate(opts...)
		if err != nil {
			return err
		}
		if !g.Terminated {
			app.logger.Debug("Word cut off at max length", slog.String("word", g.Word), slog.Int("steps", g.Steps))
		}
		_, _ = fmt.Fprintln(w, g.Word)
	}
	return w.Flush()
}
