package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/session"
	"github.com/examprep/examprep/internal/telemetry"
)

// Sessions hosts the server-side test-taking engine behind HTTP. The quiz's
// answer key stays on the server; clients only ever see sanitized questions
// and, after submission, the scored review.
type Sessions struct {
	Quizzes  quiz.Store
	Attempts attempt.Store
	Store    *session.Store
}

type sessionSnapshot struct {
	ID               string                 `json:"id"`
	QuizID           string                 `json:"quizId"`
	QuizTitle        string                 `json:"quizTitle"`
	Status           session.Status         `json:"status"`
	CurrentIndex     int                    `json:"currentIndex"`
	Counts           session.Counts         `json:"counts"`
	Sections         []quiz.SectionMeta     `json:"sections"`
	Answers          map[int]int            `json:"answers"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	RemainingDisplay string                 `json:"remainingDisplay"`
	Questions        []sanitizedQuestion    `json:"questions,omitempty"`
	Result           *session.Result        `json:"result,omitempty"`
}

type sanitizedQuestion struct {
	GlobalIndex   int           `json:"globalIndex"`
	SectionName   string        `json:"sectionName"`
	Text          string        `json:"text"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	Marks         float64       `json:"marks"`
	NegativeMarks float64       `json:"negativeMarks"`
	Options       []quiz.Option `json:"options"`
	Marked        bool          `json:"marked"`
	Visited       bool          `json:"visited"`
}

// POST /sessions  { "quizId": "..." }
// Creates (or re-enters) the caller's session for a quiz. The clock does not
// start until an explicit /start.
func (h *Sessions) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	var req struct {
		QuizID string `json:"quizId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "quizId required")
		return
	}

	q, err := h.Quizzes.GetQuiz(r.Context(), req.QuizID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if q.Premium && claims.Subscription != auth.TierPaid {
		writeError(w, http.StatusForbidden, "this is a premium quiz; please upgrade to access")
		return
	}

	s, err := session.New(session.Config{
		UserID:   claims.Sub,
		Quiz:     q,
		OnSubmit: h.persistAttempt,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s = h.Store.Put(s) // re-entering returns the existing live session

	writeJSON(w, http.StatusOK, h.snapshot(s, true))
}

// POST /sessions/{sessionID}/start
func (h *Sessions) Start(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := s.Start(); err != nil {
		writeStoreError(w, err)
		return
	}
	telemetry.SessionsStarted.Inc()
	writeJSON(w, http.StatusOK, h.snapshot(s, false))
}

// GET /sessions/{sessionID}
func (h *Sessions) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot(s, true))
}

// POST /sessions/{sessionID}/answer  { "index": 3, "option": 1 }
func (h *Sessions) Answer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req struct {
		Index  int `json:"index"`
		Option int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.SelectOption(req.Index, req.Option); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Counts())
}

// DELETE /sessions/{sessionID}/answer?index=3
func (h *Sessions) ClearAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index required")
		return
	}
	if err := s.ClearResponse(idx); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Counts())
}

// POST /sessions/{sessionID}/mark  { "index": 3 }
func (h *Sessions) ToggleMark(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.ToggleMark(req.Index); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marked": s.IsMarked(req.Index),
		"counts": s.Counts(),
	})
}

// POST /sessions/{sessionID}/nav
// { "op": "next" | "prev" | "jump" | "section", "index": 3, "sectionId": "A" }
// "next" at the last question does not move; it answers submitPrompt=true.
func (h *Sessions) Navigate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req struct {
		Op        string `json:"op"`
		Index     int    `json:"index"`
		SectionID string `json:"sectionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	prompt := false
	var err error
	switch req.Op {
	case "next":
		prompt, err = s.Next()
	case "prev":
		err = s.Previous()
	case "jump":
		err = s.JumpTo(req.Index)
	case "section":
		err = s.JumpToSection(req.SectionID)
	default:
		writeError(w, http.StatusBadRequest, "unknown nav op")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currentIndex": s.Current(),
		"submitPrompt": prompt,
		"counts":       s.Counts(),
	})
}

// POST /sessions/{sessionID}/submit
// Scores the session. Idempotent: submitting after timer expiry (or twice)
// returns the already-computed result.
func (h *Sessions) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	res := s.Submit()
	writeJSON(w, http.StatusOK, res)
}

// persistAttempt is the session's OnSubmit hook. The locally computed score
// always reaches the user; a failed write here is logged and counted, never
// surfaced.
func (h *Sessions) persistAttempt(s *session.Session, res session.Result) {
	trigger := "manual"
	if s.Expired() {
		trigger = "expiry"
	}
	telemetry.SessionsSubmitted.WithLabelValues(trigger).Inc()

	responses := map[string]int{}
	for idx, opt := range s.Answers() {
		responses[strconv.Itoa(idx)] = opt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := h.Attempts.Upsert(ctx, attempt.Attempt{
		UserID:         s.UserID,
		QuizID:         s.Quiz.ID,
		QuizTitle:      s.Quiz.Title,
		QuizType:       s.Quiz.TestType,
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		Percentage:     res.Percentage,
		Responses:      responses,
	})
	if err != nil {
		telemetry.AttemptSaveFailures.Inc()
		slog.Error("attempt save failed after submit",
			"user", s.UserID, "quiz", s.Quiz.ID, "trigger", trigger, "error", err)
		return
	}
	telemetry.AttemptsSaved.Inc()
}

// owned resolves the session and enforces ownership; a foreign session is
// indistinguishable from a missing one.
func (h *Sessions) owned(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")
	s, err := h.Store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if s.UserID != claims.Sub {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (h *Sessions) snapshot(s *session.Session, includeQuestions bool) sessionSnapshot {
	remaining := s.Remaining()
	snap := sessionSnapshot{
		ID:               s.ID,
		QuizID:           s.Quiz.ID,
		QuizTitle:        s.Quiz.Title,
		Status:           s.Status(),
		CurrentIndex:     s.Current(),
		Counts:           s.Counts(),
		Sections:         s.Sections,
		Answers:          s.Answers(),
		RemainingSeconds: remaining,
		RemainingDisplay: session.FormatSeconds(remaining),
	}
	if includeQuestions {
		snap.Questions = make([]sanitizedQuestion, 0, len(s.Flat))
		for i, fq := range s.Flat {
			opts := make([]quiz.Option, len(fq.Options))
			for j, o := range fq.Options {
				o.Correct = false
				opts[j] = o
			}
			snap.Questions = append(snap.Questions, sanitizedQuestion{
				GlobalIndex:   i,
				SectionName:   fq.SectionName,
				Text:          fq.Text,
				ImageURL:      fq.ImageURL,
				Marks:         fq.Marks,
				NegativeMarks: fq.NegativeMarks,
				Options:       opts,
				Marked:        s.IsMarked(i),
				Visited:       s.IsVisited(i),
			})
		}
	}
	if res, ok := s.Result(); ok {
		snap.Result = &res
	}
	return snap
}
