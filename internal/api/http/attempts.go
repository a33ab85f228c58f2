package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/scoring"
	"github.com/examprep/examprep/internal/telemetry"
)

// POST /attempts
// Upserts the caller's attempt for a quiz. Score may be zero or negative
// (negative marking), so it is validated for presence, not for sign.
func SaveAttemptHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		var req struct {
			QuizID         string         `json:"quizId"`
			QuizTitle      string         `json:"quizTitle"`
			QuizType       string         `json:"quizType"`
			Score          *float64       `json:"score"`
			TotalQuestions int            `json:"totalQuestions"`
			Percentage     float64        `json:"percentage"`
			Responses      map[string]int `json:"responses"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.QuizID == "" || req.Score == nil || req.TotalQuestions == 0 {
			writeError(w, http.StatusBadRequest, "missing required fields")
			return
		}
		if req.QuizType == "" {
			req.QuizType = "Unknown"
		}

		saved, err := store.Upsert(r.Context(), attempt.Attempt{
			UserID:         claims.Sub,
			QuizID:         req.QuizID,
			QuizTitle:      req.QuizTitle,
			QuizType:       req.QuizType,
			Score:          *req.Score,
			TotalQuestions: req.TotalQuestions,
			Percentage:     req.Percentage,
			Responses:      req.Responses,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		telemetry.AttemptsSaved.Inc()
		writeJSON(w, http.StatusOK, saved)
	}
}

// GET /attempts
// Up to 50 attempts for the caller updated within the last 24 hours, most
// recent first.
func ListAttemptsHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		list, err := store.ListRecent(r.Context(), claims.Sub)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DELETE /attempts?id=<attemptId>
// Deletes only attempts the caller owns; someone else's attempt looks
// exactly like a missing one.
func DeleteAttemptHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "attempt id required")
			return
		}
		if err := store.Delete(r.Context(), id, claims.Sub); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "attempt deleted"})
	}
}

// GET /attempts/{attemptID}/review
// Replays the stored attempt against the quiz's answer key: the server
// record is the source of truth for the result view, not a client-side slot.
func ReviewAttemptHandler(attempts attempt.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		id := chi.URLParam(r, "attemptID")

		a, err := attempts.Get(r.Context(), id, claims.Sub)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		q, err := quizzes.GetQuiz(r.Context(), a.QuizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		flat, _ := quiz.Flatten(q)

		answers := make(map[int]int, len(a.Responses))
		for k, v := range a.Responses {
			if idx, err := strconv.Atoi(k); err == nil {
				answers[idx] = v
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"attempt": a,
			"result":  scoring.Score(flat, answers),
			"review":  scoring.Review(flat, answers),
		})
	}
}
