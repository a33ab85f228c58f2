package session

import (
	"errors"
	"testing"
	"time"

	"github.com/examprep/examprep/internal/quiz"
)

func testQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:           "quiz-1",
		Title:        "Mock 1",
		TimerMinutes: 30,
		Sections: []quiz.Section{
			{ID: "phy", Name: "Physics", Questions: []quiz.Question{
				{ID: "q1", Text: "P1", Marks: 1, Options: []quiz.Option{{Text: "a"}, {Text: "b", Correct: true}}},
				{ID: "q2", Text: "P2", Marks: 2, NegativeMarks: 0.25, Options: []quiz.Option{{Text: "a", Correct: true}, {Text: "b"}}},
			}},
			{ID: "chem", Name: "Chemistry", Questions: []quiz.Question{
				{ID: "q3", Text: "C1", Marks: 1, Options: []quiz.Option{{Text: "a"}, {Text: "b", Correct: true}}},
			}},
		},
	}
}

func newRunning(t *testing.T) *Session {
	t.Helper()
	s, err := New(Config{UserID: "u1", Quiz: testQuiz()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestNewRejectsEmptyQuiz(t *testing.T) {
	_, err := New(Config{UserID: "u1", Quiz: quiz.Quiz{ID: "empty", TimerMinutes: 10}})
	if !errors.Is(err, quiz.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestMutationsRequireRunning(t *testing.T) {
	s, err := New(Config{UserID: "u1", Quiz: testQuiz()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.SelectOption(0, 1); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("select before start: %v", err)
	}
	if _, err := s.Next(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("next before start: %v", err)
	}
}

func TestSelectClearRoundTrip(t *testing.T) {
	s := newRunning(t)

	if err := s.SelectOption(0, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SelectOption(0, 0); err != nil {
		t.Fatalf("re-select: %v", err)
	}
	if got := s.Answers()[0]; got != 0 {
		t.Fatalf("re-select should overwrite, got %d", got)
	}

	if err := s.ClearResponse(0); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.Answers()[0]; ok {
		t.Fatal("clear should remove the answer")
	}

	if err := s.SelectOption(0, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("out-of-range option: %v", err)
	}
	if err := s.SelectOption(9, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("out-of-range index: %v", err)
	}
}

func TestToggleMarkIsOrthogonal(t *testing.T) {
	s := newRunning(t)

	if err := s.ToggleMark(1); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !s.IsMarked(1) {
		t.Fatal("expected marked")
	}
	if err := s.SelectOption(1, 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !s.IsMarked(1) {
		t.Fatal("answering must not clear the mark")
	}
	if err := s.ToggleMark(1); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if s.IsMarked(1) {
		t.Fatal("expected unmarked")
	}
	if _, ok := s.Answers()[1]; !ok {
		t.Fatal("unmarking must not clear the answer")
	}
}

func TestNavigation(t *testing.T) {
	s := newRunning(t)

	if s.Current() != 0 || !s.IsVisited(0) {
		t.Fatal("session must open on a visited index 0")
	}

	prompt, err := s.Next()
	if err != nil || prompt {
		t.Fatalf("next: prompt=%v err=%v", prompt, err)
	}
	if s.Current() != 1 || !s.IsVisited(1) {
		t.Fatalf("next should advance and visit, at %d", s.Current())
	}

	if err := s.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if s.Current() != 0 {
		t.Fatalf("previous should back up, at %d", s.Current())
	}
	if err := s.Previous(); err != nil {
		t.Fatalf("previous at 0: %v", err)
	}
	if s.Current() != 0 {
		t.Fatal("previous at index 0 must be a no-op")
	}

	if err := s.JumpTo(2); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if s.Current() != 2 || !s.IsVisited(2) {
		t.Fatalf("jump should move and visit, at %d", s.Current())
	}
	if err := s.JumpTo(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("jump past end: %v", err)
	}

	prompt, err = s.Next()
	if err != nil {
		t.Fatalf("next at last: %v", err)
	}
	if !prompt {
		t.Fatal("next at the last index must prompt for submit, not wrap")
	}
	if s.Current() != 2 {
		t.Fatal("prompting must not move the pointer")
	}
}

func TestJumpToSection(t *testing.T) {
	s := newRunning(t)

	if err := s.JumpToSection("chem"); err != nil {
		t.Fatalf("jump to section: %v", err)
	}
	if s.Current() != 2 {
		t.Fatalf("expected first chemistry question (2), at %d", s.Current())
	}
	if err := s.JumpToSection("bio"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("unknown section: %v", err)
	}
}

func TestVisitedIsMonotonic(t *testing.T) {
	s := newRunning(t)

	if _, err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := s.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if !s.IsVisited(1) {
		t.Fatal("leaving a question must not unvisit it")
	}
}

func TestCounts(t *testing.T) {
	s := newRunning(t)

	if err := s.SelectOption(0, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.ToggleMark(0); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	got := s.Counts()
	want := Counts{Total: 3, Answered: 1, NotAnswered: 2, Marked: 1, NotVisited: 1}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
}

func TestSubmitScoresAndTerminates(t *testing.T) {
	var cbResult *Result
	s, err := New(Config{
		UserID:   "u1",
		Quiz:     testQuiz(),
		OnSubmit: func(_ *Session, r Result) { cbResult = &r },
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SelectOption(0, 1); err != nil { // correct
		t.Fatalf("select: %v", err)
	}
	if err := s.SelectOption(1, 1); err != nil { // wrong, -0.25
		t.Fatalf("select: %v", err)
	}

	res := s.Submit()
	if res.Score != 0.75 || res.MaxScore != 4 {
		t.Fatalf("score %v/%v", res.Score, res.MaxScore)
	}
	if len(res.Review) != 3 {
		t.Fatalf("review length %d", len(res.Review))
	}
	if cbResult == nil || cbResult.Score != 0.75 {
		t.Fatalf("OnSubmit got %+v", cbResult)
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("status %s", s.Status())
	}

	if err := s.SelectOption(2, 0); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("mutation after submit: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("restart after submit: %v", err)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	calls := 0
	s, err := New(Config{
		UserID:   "u1",
		Quiz:     testQuiz(),
		OnSubmit: func(*Session, Result) { calls++ },
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SelectOption(0, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	first := s.Submit()
	second := s.Submit()
	if first.Score != second.Score || calls != 1 {
		t.Fatalf("late submit must return the stored result once: calls=%d", calls)
	}
}

func TestSubmitReportsElapsedTime(t *testing.T) {
	clk := newFakeClock()
	s, err := New(Config{UserID: "u1", Quiz: testQuiz(), Now: clk.now, After: clk.after})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.advance(17 * time.Minute)

	res := s.Submit()
	if res.ElapsedSeconds != 17*60 {
		t.Fatalf("elapsed %d, want %d", res.ElapsedSeconds, 17*60)
	}
	// The stored result keeps the same elapsed value.
	if second := s.Submit(); second.ElapsedSeconds != res.ElapsedSeconds {
		t.Fatalf("late submit changed elapsed: %d", second.ElapsedSeconds)
	}
}

func TestExpiryAutoSubmits(t *testing.T) {
	clk := newFakeClock()
	done := make(chan Result, 1)
	s, err := New(Config{
		UserID:   "u1",
		Quiz:     testQuiz(),
		OnSubmit: func(_ *Session, r Result) { done <- r },
		Now:      clk.now,
		After:    clk.after,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SelectOption(0, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	clk.fireExpiry()

	select {
	case r := <-done:
		if r.Score != 1 {
			t.Fatalf("expiry result score %v", r.Score)
		}
	case <-time.After(time.Second):
		t.Fatal("expiry never submitted")
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("status %s", s.Status())
	}
	if !s.Expired() {
		t.Fatal("expiry flag not set")
	}

	// User submitting after the deadline gets the stored result back.
	res := s.Submit()
	if res.Score != 1 {
		t.Fatalf("late submit score %v", res.Score)
	}
}

func TestManualSubmitIsNotExpired(t *testing.T) {
	s := newRunning(t)
	s.Submit()
	if s.Expired() {
		t.Fatal("manual submit must not set the expiry flag")
	}
}
