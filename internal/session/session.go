// Package session hosts one user's live run through a quiz: the flattened
// question sequence, per-question answer/marked/visited state, the navigation
// pointer, and the countdown clock. All state lives behind one mutex; the
// timer tick and request-driven mutations touch disjoint fields, and
// submission is terminal.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/scoring"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrNotRunning is returned for mutations before Start or after submit.
	ErrNotRunning = errors.New("session is not running")
	// ErrIndexOutOfRange is returned for a question index outside [0,total).
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrAlreadySubmitted is returned when starting a submitted session.
	ErrAlreadySubmitted = errors.New("session already submitted")
)

type Status string

const (
	StatusReady     Status = "ready"     // created, clock not started
	StatusRunning   Status = "running"   // clock started
	StatusSubmitted Status = "submitted" // scored, terminal
)

// Counts are the palette aggregates, recomputed from the underlying sets on
// every call rather than maintained incrementally — no drift by construction.
// NotAnswered and NotVisited have different denominators of exclusion: a
// visited-but-unanswered question counts toward NotAnswered only.
type Counts struct {
	Total       int `json:"total"`
	Answered    int `json:"answered"`
	NotAnswered int `json:"notAnswered"`
	Marked      int `json:"marked"`
	NotVisited  int `json:"notVisited"`
}

// Result pairs the aggregate score with the per-question replay.
// ElapsedSeconds runs from Start to submission; zero if the session was
// submitted without ever starting the clock.
type Result struct {
	scoring.Result
	Review         []scoring.QuestionReview `json:"review"`
	ElapsedSeconds int                      `json:"elapsedSeconds"`
}

// Session is one test-taking run. Create with New, drive with the
// operations below, finish with Submit (or let the clock expire).
type Session struct {
	ID       string
	UserID   string
	Quiz     quiz.Quiz
	Flat     []quiz.FlattenedQuestion
	Sections []quiz.SectionMeta

	mu         sync.Mutex
	status     Status
	answers    map[int]int
	marked     map[int]struct{}
	visited    map[int]struct{}
	current    int
	clock      *Countdown
	result     *Result
	onSubmit   func(*Session, Result)
	now        func() time.Time
	startedAt  time.Time
	finishedAt time.Time
	expired    bool
}

// Config wires a new session. OnSubmit fires once, after scoring, for both
// manual submits and timer expiry; persistence failures inside it must not
// propagate back into the session.
type Config struct {
	UserID   string
	Quiz     quiz.Quiz
	OnSubmit func(*Session, Result)

	// test seams; zero values use the real clock
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

func New(cfg Config) (*Session, error) {
	flat, meta := quiz.Flatten(cfg.Quiz)
	if len(flat) == 0 {
		return nil, quiz.ErrNoQuestions
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	after := cfg.After
	if after == nil {
		after = time.After
	}
	s := &Session{
		ID:       uuid.NewString(),
		UserID:   cfg.UserID,
		Quiz:     cfg.Quiz,
		Flat:     flat,
		Sections: meta,
		status:   StatusReady,
		answers:  make(map[int]int),
		marked:   make(map[int]struct{}),
		visited:  map[int]struct{}{0: {}}, // index 0 is visited at session start
		onSubmit: cfg.OnSubmit,
		now:      now,
	}
	s.clock = newCountdownWithClock(cfg.Quiz.TimerMinutes, s.expire, now, after)
	return s, nil
}

// Start begins the countdown. The clock deliberately does not run from
// creation: load latency must not eat into the budget.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusSubmitted:
		return ErrAlreadySubmitted
	case StatusRunning:
		return nil
	}
	s.status = StatusRunning
	s.startedAt = s.now()
	s.clock.Start()
	return nil
}

// SelectOption records or overwrites the answer at index. Re-selecting
// replaces the prior choice; option range is whatever the option list allows.
func (s *Session) SelectOption(index, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(index); err != nil {
		return err
	}
	if option < 0 || option >= len(s.Flat[index].Options) {
		return ErrIndexOutOfRange
	}
	s.answers[index] = option
	return nil
}

// ClearResponse reverts index to unanswered. Marked and visited are
// untouched.
func (s *Session) ClearResponse(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(index); err != nil {
		return err
	}
	delete(s.answers, index)
	return nil
}

// ToggleMark flips marked-for-review at index. Marking and answering are
// orthogonal.
func (s *Session) ToggleMark(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(index); err != nil {
		return err
	}
	if _, ok := s.marked[index]; ok {
		delete(s.marked, index)
	} else {
		s.marked[index] = struct{}{}
	}
	return nil
}

// Next advances the pointer. At the last index it does not wrap; it reports
// prompt=true, the signal to open the submit confirmation.
func (s *Session) Next() (prompt bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return false, ErrNotRunning
	}
	if s.current >= len(s.Flat)-1 {
		return true, nil
	}
	s.current++
	s.visited[s.current] = struct{}{}
	return false, nil
}

// Previous moves back one question; a no-op at index 0.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return ErrNotRunning
	}
	if s.current > 0 {
		s.current--
		s.visited[s.current] = struct{}{}
	}
	return nil
}

// JumpTo moves the pointer to an explicit index (palette click).
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return ErrNotRunning
	}
	if index < 0 || index >= len(s.Flat) {
		return ErrIndexOutOfRange
	}
	s.current = index
	s.visited[index] = struct{}{}
	return nil
}

// JumpToSection moves to the first question of the section owning meta.
func (s *Session) JumpToSection(sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return ErrNotRunning
	}
	for _, m := range s.Sections {
		if m.ID == sectionID {
			if m.Count == 0 {
				return nil
			}
			s.current = m.StartIndex
			s.visited[s.current] = struct{}{}
			return nil
		}
	}
	return ErrIndexOutOfRange
}

// Current returns the navigation pointer.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Status returns the lifecycle phase.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Remaining returns whole seconds left on the clock.
func (s *Session) Remaining() int {
	return s.clock.Remaining()
}

// Counts recomputes the palette aggregates from the sets.
func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.Flat)
	return Counts{
		Total:       total,
		Answered:    len(s.answers),
		NotAnswered: total - len(s.answers),
		Marked:      len(s.marked),
		NotVisited:  total - len(s.visited),
	}
}

// Answers returns a copy of the sparse answer map.
func (s *Session) Answers() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// MarkedIndices reports whether index is marked for review.
func (s *Session) IsMarked(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marked[index]
	return ok
}

// IsVisited reports whether index has been visited.
func (s *Session) IsVisited(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[index]
	return ok
}

// Submit scores the session and stops the clock. It is idempotent: a submit
// after expiry (or a second manual submit) returns the already-computed
// result — late submissions are never rejected.
func (s *Session) Submit() Result {
	s.mu.Lock()
	if s.result != nil {
		r := *s.result
		s.mu.Unlock()
		return r
	}
	s.finishedAt = s.now()
	res := Result{
		Result: scoring.Score(s.Flat, s.answers),
		Review: scoring.Review(s.Flat, s.answers),
	}
	if !s.startedAt.IsZero() {
		res.ElapsedSeconds = int(s.finishedAt.Sub(s.startedAt) / time.Second)
	}
	s.result = &res
	s.status = StatusSubmitted
	cb := s.onSubmit
	s.mu.Unlock()

	s.clock.Stop()
	if cb != nil {
		cb(s, res)
	}
	return res
}

// Result returns the scored outcome, or false before submission.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Expired reports whether the clock, not the user, ended the session.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// expire is the clock's one-shot trigger: forced auto-submission.
func (s *Session) expire() {
	s.mu.Lock()
	if s.result == nil {
		s.expired = true
	}
	s.mu.Unlock()
	s.Submit()
}

func (s *Session) mutableLocked(index int) error {
	if s.status != StatusRunning {
		return ErrNotRunning
	}
	if index < 0 || index >= len(s.Flat) {
		return ErrIndexOutOfRange
	}
	return nil
}
