package main

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// maxGenerateCount bounds the number of words one generate request returns.
const maxGenerateCount = 100

// ModelAPI holds the dependencies for the model API handlers.
type ModelAPI struct {
	app    *App
	logger *slog.Logger
}

// NewModelAPI creates a new instance of the ModelAPI.
func NewModelAPI(app *App, logger *slog.Logger) *ModelAPI {
	return &ModelAPI{
		app:    app,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/model endpoints.
func (m *ModelAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/model", m.handleModel)
	mux.HandleFunc("/api/model/smoothing", m.handleSmoothing)
	mux.HandleFunc("/api/model/score", m.handleScore)
	mux.HandleFunc("/api/model/generate", m.handleGenerate)
}

// jsonFloat encodes infinities and NaN as strings, which encoding/json
// otherwise refuses.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return json.Marshal(v)
}

type ModelInfo struct {
	Corpus     string        `json:"corpus"`
	Tokens     bigram.Tokens `json:"tokens"`
	Vocabulary []string      `json:"vocabulary"`
	Smoothing  float64       `json:"smoothing"`
}

type SmoothingRequest struct {
	Smoothing *float64 `json:"smoothing"`
}

type ScoreRequest struct {
	Words []string `json:"words"`
}

type WordScore struct {
	Word          string    `json:"word"`
	LogLikelihood jsonFloat `json:"log_likelihood"`
}

type ScoreResponse struct {
	Words                []WordScore `json:"words"`
	NegMeanLogLikelihood jsonFloat   `json:"neg_mean_log_likelihood"`
	Perplexity           jsonFloat   `json:"perplexity"`
}

type GeneratedWord struct {
	Word       string `json:"word"`
	Terminated bool   `json:"terminated"`
	Steps      int    `json:"steps"`
}

type GenerateResponse struct {
	Seed  *uint64         `json:"seed,omitempty"`
	Words []GeneratedWord `json:"words"`
}

func (m *ModelAPI) modelInfo(r *http.Request, model *bigram.Model) ModelInfo {
	info := ModelInfo{
		Tokens:     model.Tokens(),
		Vocabulary: model.Vocabulary().Symbols(),
		Smoothing:  model.Smoothing(),
	}
	if corpus, err := m.app.ActiveCorpus(r.Context()); err == nil {
		info.Corpus = corpus.Name
	}
	return info
}

// handleModel describes the model currently served.
func (m *ModelAPI) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	model, err := m.app.Model()
	if err != nil {
		respondWithDomainError(w, m.logger, "Model unavailable", err)
		return
	}
	respondWithJSON(w, http.StatusOK, m.modelInfo(r, model))
}

// handleSmoothing rebuilds the model with a new smoothing constant.
func (m *ModelAPI) handleSmoothing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req SmoothingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Smoothing == nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body, expected {\"smoothing\": <number>}")
		return
	}

	model, err := m.app.SetSmoothing(r.Context(), *req.Smoothing)
	if err != nil {
		respondWithDomainError(w, m.logger, "Failed to rebuild model", err)
		return
	}
	m.logger.Info("Model smoothing updated via API", slog.Float64("smoothing", model.Smoothing()))
	respondWithJSON(w, http.StatusOK, m.modelInfo(r, model))
}

// handleScore scores a list of words under the current model.
func (m *ModelAPI) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	model, err := m.app.Model()
	if err != nil {
		respondWithDomainError(w, m.logger, "Model unavailable", err)
		return
	}

	lls, nll, err := model.ScoreWords(req.Words)
	if err != nil {
		respondWithDomainError(w, m.logger, "Scoring failed", err)
		return
	}
	resp := ScoreResponse{
		Words:                make([]WordScore, 0, len(req.Words)),
		NegMeanLogLikelihood: jsonFloat(nll),
		Perplexity:           jsonFloat(bigram.Perplexity(nll)),
	}
	for i, word := range req.Words {
		resp.Words = append(resp.Words, WordScore{Word: word, LogLikelihood: jsonFloat(lls[i])})
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// generateParams reads the generate query parameters, using the model config
// for anything not given.
func generateParams(q url.Values, mc *ModelConfig) (count int, seed *uint64, opts []bigram.GenerateOption, err error) {
	count = 1
	maxLength, temperature, topK := mc.MaxLength, mc.Temperature, mc.TopK

	if v := q.Get("count"); v != "" {
		if count, err = strconv.Atoi(v); err != nil || count < 1 || count > maxGenerateCount {
			return 0, nil, nil, bigram.ErrInvalidArgument
		}
	}
	if v := q.Get("max_length"); v != "" {
		if maxLength, err = strconv.Atoi(v); err != nil {
			return 0, nil, nil, bigram.ErrInvalidArgument
		}
	}
	if v := q.Get("temperature"); v != "" {
		temperature, err = strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
			return 0, nil, nil, bigram.ErrInvalidArgument
		}
	}
	if v := q.Get("top_k"); v != "" {
		if topK, err = strconv.Atoi(v); err != nil || topK < 0 {
			return 0, nil, nil, bigram.ErrInvalidArgument
		}
	}
	if v := q.Get("seed"); v != "" {
		s, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			return 0, nil, nil, bigram.ErrInvalidArgument
		}
		seed = &s
	}

	opts = []bigram.GenerateOption{
		bigram.WithMaxLength(maxLength),
		bigram.WithTemperature(temperature),
		bigram.WithTopK(topK),
	}
	if seed != nil {
		// One stream for the whole request keeps the words of a seeded batch distinct.
		opts = append(opts, bigram.WithSeed(*seed))
	}
	return count, seed, opts, nil
}

// handleGenerate samples new words from the current model.
func (m *ModelAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	count, seed, opts, err := generateParams(r.URL.Query(), m.app.cm.Get().Model)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	model, err := m.app.Model()
	if err != nil {
		respondWithDomainError(w, m.logger, "Model unavailable", err)
		return
	}

	resp := GenerateResponse{Seed: seed, Words: make([]GeneratedWord, 0, count)}
	for i := 0; i < count; i++ {
		g, err := model.Generate(opts...)
		if err != nil {
			respondWithDomainError(w, m.logger, "Generation failed", err)
			return
		}
		resp.Words = append(resp.Words, GeneratedWord{Word: g.Word, Terminated: g.Terminated, Steps: g.Steps})
	}
	respondWithJSON(w, http.StatusOK, resp)
}
