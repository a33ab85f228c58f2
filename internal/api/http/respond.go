package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/catalog"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps domain sentinels to statuses; anything unrecognized
// is logged and becomes a generic 500 so internals never leak to the client.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		writeError(w, http.StatusNotFound, "quiz not found")
	case errors.Is(err, attempt.ErrNotFound):
		writeError(w, http.StatusNotFound, "attempt not found")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index out of range")
	case errors.Is(err, session.ErrNotRunning):
		writeError(w, http.StatusConflict, "session is not running")
	case errors.Is(err, quiz.ErrNoQuestions):
		writeError(w, http.StatusUnprocessableEntity, "quiz has no questions")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
