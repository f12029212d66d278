package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// authHeader carries the API key on every /api request.
const authHeader = "bigram-auth"

// AuthAPI guards the API with the key from the server config.
type AuthAPI struct {
	cm     *ConfigManager
	logger *slog.Logger
}

func NewAuthAPI(cm *ConfigManager, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		cm:     cm,
		logger: logger,
	}
}

// Authenticate checks the "bigram-auth" header against the configured key.
// When no key is configured the API is open.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := a.cm.Get().Server.ApiKey
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(authHeader)
		if provided == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		want := hashAPIKey(key)
		got := hashAPIKey(provided)
		if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
			a.logger.Warn("Rejected request with invalid API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hashAPIKey creates a SHA256 hash of the key, so comparisons run over
// equal-length values.
func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// statusForError maps model and store errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, errNoModel):
		return http.StatusServiceUnavailable
	}
	switch bigram.ReasonOf(err) {
	case bigram.ReasonInvalidArgument, bigram.ReasonUnknownSymbol, bigram.ReasonEmptyCorpus:
		return http.StatusBadRequest
	case bigram.ReasonNoObservedContinuations, bigram.ReasonMalformedDistribution, bigram.ReasonVocabularyMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondWithDomainError writes err with the status statusForError picks.
// Server-side failures are logged.
func respondWithDomainError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	}
	respondWithError(w, code, fmt.Sprintf("%s: %v", msg, err))
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
