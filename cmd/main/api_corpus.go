package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/bigram/pkg/bigram"
	"github.com/CTAG07/bigram/pkg/store"
)

// CorpusAPI holds the dependencies for the corpus API handlers.
type CorpusAPI struct {
	app    *App
	logger *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(app *App, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		app:    app,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/corpora and /api/stats endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpora", c.handleListAndCreateCorpora)
	mux.HandleFunc("/api/corpora/import", c.handleImport)
	mux.HandleFunc("/api/corpora/", c.handleCorpusByName)
	mux.HandleFunc("/api/stats", c.handleStats)
}

type CreateCorpusRequest struct {
	Name   string         `json:"name"`
	Tokens *bigram.Tokens `json:"tokens,omitempty"`
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

type PruneResponse struct {
	Removed int64 `json:"removed"`
}

// reloadIfActive rebuilds the served model after the active corpus changed.
func (c *CorpusAPI) reloadIfActive(r *http.Request, corpus store.CorpusInfo) {
	if corpus.Name != c.app.cm.Get().Model.CorpusName {
		return
	}
	if err := c.app.Reload(r.Context()); err != nil {
		c.logger.Warn("Failed to rebuild model after corpus change", "corpus_name", corpus.Name, "error", err)
	}
}

// handleListAndCreateCorpora handles GET for listing and POST for creating corpora.
func (c *CorpusAPI) handleListAndCreateCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stats, err := c.app.store.GetStats(r.Context())
		if err != nil {
			respondWithDomainError(w, c.logger, "Failed to retrieve corpora", err)
			return
		}
		respondWithJSON(w, http.StatusOK, stats.Corpora)

	case http.MethodPost:
		var req CreateCorpusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		tokens := bigram.DefaultTokens()
		if req.Tokens != nil {
			tokens = *req.Tokens
		}
		if req.Name == "" {
			respondWithError(w, http.StatusBadRequest, "Corpus name is required")
			return
		}

		corpus := store.CorpusInfo{Name: req.Name, Tokens: tokens}
		if err := c.app.store.InsertCorpus(r.Context(), corpus); err != nil {
			if bigram.ReasonOf(err) == bigram.ReasonInvalidArgument {
				respondWithDomainError(w, c.logger, "Invalid corpus", err)
				return
			}
			c.logger.Error("Failed to insert new corpus", "name", req.Name, "error", err)
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Failed to create corpus: %v", err))
			return
		}
		newCorpus, err := c.app.store.GetCorpusInfo(r.Context(), req.Name)
		if err != nil {
			respondWithDomainError(w, c.logger, "Failed to verify corpus creation", err)
			return
		}
		respondWithJSON(w, http.StatusCreated, newCorpus)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCorpusByName routes actions for a specific corpus, e.g., train, prune, export, delete.
func (c *CorpusAPI) handleCorpusByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/corpora/")
	parts := strings.Split(path, "/")
	corpusName := parts[0]

	if corpusName == "" {
		respondWithError(w, http.StatusBadRequest, "Corpus name not specified")
		return
	}

	corpus, err := c.app.store.GetCorpusInfo(r.Context(), corpusName)
	if err != nil {
		respondWithDomainError(w, c.logger, "Corpus not found", err)
		return
	}

	if len(parts) == 1 { // Path is just /api/corpora/{name}
		switch r.Method {
		case http.MethodGet:
			st, err := c.app.store.GetCorpusStats(r.Context(), corpus)
			if err != nil {
				respondWithDomainError(w, c.logger, "Failed to get corpus stats", err)
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]any{"corpus": corpus, "stats": st})
		case http.MethodDelete:
			if corpus.Name == c.app.cm.Get().Model.CorpusName {
				respondWithError(w, http.StatusConflict, "The active corpus cannot be removed")
				return
			}
			if err = c.app.store.RemoveCorpus(r.Context(), corpus); err != nil {
				respondWithDomainError(w, c.logger, "Failed to remove corpus", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if err = c.app.store.Train(r.Context(), corpus, r.Body); err != nil {
			respondWithDomainError(w, c.logger, "Training failed", err)
			return
		}
		c.reloadIfActive(r, corpus)
		w.WriteHeader(http.StatusAccepted)

	case "prune":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req PruneRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		removed, err := c.app.store.PruneCorpus(r.Context(), corpus, req.MinFreq)
		if err != nil {
			respondWithDomainError(w, c.logger, "Pruning failed", err)
			return
		}
		c.reloadIfActive(r, corpus)
		respondWithJSON(w, http.StatusOK, PruneResponse{Removed: removed})

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", corpusName))
		if err = c.app.store.ExportCorpus(r.Context(), corpus, w); err != nil {
			c.logger.Error("Failed to export corpus", "name", corpusName, "error", err)
		}

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleImport imports or merges a corpus from an uploaded JSON file.
func (c *CorpusAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	corpus, err := c.app.store.ImportCorpus(r.Context(), r.Body)
	if err != nil {
		c.logger.Warn("Failed to import corpus", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}

	c.reloadIfActive(r, corpus)
	respondWithJSON(w, http.StatusAccepted, corpus)
}

// handleStats returns word and bigram totals for every corpus.
func (c *CorpusAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := c.app.store.GetStats(r.Context())
	if err != nil {
		respondWithDomainError(w, c.logger, "Failed to retrieve stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
