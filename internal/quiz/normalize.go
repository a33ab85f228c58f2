package quiz

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// rawQuiz mirrors the loose document shapes seen in imported data: quizzes
// arrive with either title or name, and either timerMinutes or timeMinutes.
// Normalization happens once at the boundary so the rest of the code only
// ever sees the canonical Quiz.
type rawQuiz struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Name               string          `json:"name"`
	TestType           string          `json:"testType"`
	TimerMinutes       json.RawMessage `json:"timerMinutes"`
	TimeMinutes        json.RawMessage `json:"timeMinutes"`
	Premium            bool            `json:"premium"`
	AssociatedExamID   string          `json:"associatedExamId"`
	AssociatedExamName string          `json:"associatedExamName"`
	Description        string          `json:"description"`
	Status             string          `json:"status"`
	Sections           []Section       `json:"sections"`
}

const defaultTimerMinutes = 60

// Normalize decodes a raw quiz document into the canonical shape, resolving
// duck-typed field aliases and applying per-question defaults (marks 1,
// negative marks 0).
func Normalize(data []byte) (Quiz, error) {
	var raw rawQuiz
	if err := json.Unmarshal(data, &raw); err != nil {
		return Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}

	q := Quiz{
		ID:                 raw.ID,
		Title:              raw.Title,
		TestType:           raw.TestType,
		Premium:            raw.Premium,
		AssociatedExamID:   raw.AssociatedExamID,
		AssociatedExamName: raw.AssociatedExamName,
		Description:        raw.Description,
		Status:             raw.Status,
		Sections:           raw.Sections,
	}
	if q.Title == "" {
		q.Title = raw.Name
	}
	q.TimerMinutes = minutesFrom(raw.TimerMinutes)
	if q.TimerMinutes <= 0 {
		q.TimerMinutes = minutesFrom(raw.TimeMinutes)
	}
	if q.TimerMinutes <= 0 {
		q.TimerMinutes = defaultTimerMinutes
	}

	ApplyDefaults(&q)
	return q, nil
}

// ApplyDefaults fills in per-question defaults and synthesizes missing
// section/question IDs from position so flattening stays addressable.
func ApplyDefaults(q *Quiz) {
	for si := range q.Sections {
		s := &q.Sections[si]
		if s.ID == "" {
			if s.Name != "" {
				s.ID = s.Name
			} else {
				s.ID = "section-" + strconv.Itoa(si)
			}
		}
		for qi := range s.Questions {
			qq := &s.Questions[qi]
			if qq.Marks == 0 {
				qq.Marks = 1
			}
			if qq.ID == "" {
				qq.ID = s.ID + "-q" + strconv.Itoa(qi)
			}
		}
	}
}

// minutesFrom accepts a JSON number or numeric string; anything else is 0.
func minutesFrom(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return 0
}
