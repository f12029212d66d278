package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/CTAG07/bigram/pkg/bigram"
	"github.com/CTAG07/bigram/pkg/store"
)

// errNoModel is returned while the active corpus cannot be turned into a model.
var errNoModel = errors.New("no model loaded")

// App ties the corpus store to the model snapshot that is currently served.
// Readers take the snapshot with Model; every change to the active corpus
// rebuilds it and swaps the pointer.
type App struct {
	cm     *ConfigManager
	db     *sql.DB
	store  *store.Store
	logger *slog.Logger

	model    atomic.Pointer[bigram.Model]
	reloadMu sync.Mutex
}

// openDB opens the SQLite database at path with the build's driver and makes
// sure the corpus schema exists.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, path+sqliteOptions)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	return db, nil
}

// NewApp opens the database, makes sure the configured corpus exists (seeding
// it from the configured word list when it is empty) and loads the model.
// A corpus that cannot be turned into a model is logged and leaves the app
// running without one.
func NewApp(ctx context.Context, cm *ConfigManager, logger *slog.Logger) (*App, error) {
	cfg := cm.Get()

	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := openDB(cfg.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st, err := store.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare corpus store: %w", err)
	}
	st.SetLogger(logger)

	app := &App{
		cm:     cm,
		db:     db,
		store:  st,
		logger: logger,
	}

	corpus, err := app.ensureCorpus(ctx, cfg.Model)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err = app.seedCorpus(ctx, corpus, cfg.Model.WordsPath); err != nil {
		app.Close()
		return nil, err
	}
	if err = app.Reload(ctx); err != nil {
		logger.Warn("Starting without a model", slog.String("corpus_name", corpus.Name), slog.Any("error", err))
	}
	return app, nil
}

// ensureCorpus returns the configured corpus, creating it if needed.
func (a *App) ensureCorpus(ctx context.Context, mc *ModelConfig) (store.CorpusInfo, error) {
	corpus, err := a.store.GetCorpusInfo(ctx, mc.CorpusName)
	if err == nil {
		if corpus.Tokens != mc.Tokens() {
			a.logger.Warn("Stored corpus tokens differ from config, using stored tokens",
				slog.String("corpus_name", corpus.Name),
				slog.String("start_token", corpus.Tokens.Start),
				slog.String("end_token", corpus.Tokens.End),
			)
		}
		return corpus, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.CorpusInfo{}, fmt.Errorf("failed to look up corpus '%s': %w", mc.CorpusName, err)
	}

	if err = a.store.InsertCorpus(ctx, store.CorpusInfo{Name: mc.CorpusName, Tokens: mc.Tokens()}); err != nil {
		return store.CorpusInfo{}, fmt.Errorf("failed to create corpus '%s': %w", mc.CorpusName, err)
	}
	a.logger.Info("Created corpus", slog.String("corpus_name", mc.CorpusName))
	return a.store.GetCorpusInfo(ctx, mc.CorpusName)
}

// seedCorpus trains an empty corpus from the word list at path. A missing
// file is not an error.
func (a *App) seedCorpus(ctx context.Context, corpus store.CorpusInfo, path string) error {
	if path == "" {
		return nil
	}
	st, err := a.store.GetCorpusStats(ctx, corpus)
	if err != nil {
		return err
	}
	if st.TotalWords > 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.Info("No word list to seed corpus from", slog.String("path", path))
			return nil
		}
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	a.logger.Info("Seeding corpus from word list", slog.String("corpus_name", corpus.Name), slog.String("path", path))
	return a.store.Train(ctx, corpus, f)
}

// ActiveCorpus returns the corpus the served model is built from.
func (a *App) ActiveCorpus(ctx context.Context) (store.CorpusInfo, error) {
	return a.store.GetCorpusInfo(ctx, a.cm.Get().Model.CorpusName)
}

// Model returns the current snapshot or errNoModel.
func (a *App) Model() (*bigram.Model, error) {
	m := a.model.Load()
	if m == nil {
		return nil, errNoModel
	}
	return m, nil
}

// Reload rebuilds the model from the active corpus with the configured
// smoothing and swaps it in. On failure the previous snapshot is kept.
func (a *App) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	corpus, err := a.ActiveCorpus(ctx)
	if err != nil {
		return err
	}
	m, err := a.store.LoadModel(ctx, corpus, a.cm.Get().Model.Smoothing)
	if err != nil {
		return err
	}
	a.model.Store(m)
	return nil
}

// SetSmoothing rebuilds the current snapshot with a new smoothing constant and
// persists it to the config. Without a snapshot the model is built from the
// active corpus.
func (a *App) SetSmoothing(ctx context.Context, smoothing float64) (*bigram.Model, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	var m *bigram.Model
	if current := a.model.Load(); current != nil {
		var err error
		if m, err = current.WithSmoothing(smoothing); err != nil {
			return nil, err
		}
	} else {
		corpus, err := a.ActiveCorpus(ctx)
		if err != nil {
			return nil, err
		}
		if m, err = a.store.LoadModel(ctx, corpus, smoothing); err != nil {
			return nil, err
		}
	}

	cfg := a.cm.Get()
	cfg.Model.Smoothing = smoothing
	if err := a.cm.Update(cfg); err != nil {
		return nil, err
	}
	a.model.Store(m)
	return m, nil
}

// Close releases the store and the database connection.
func (a *App) Close() {
	a.store.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", slog.Any("error", err))
	}
}
