package quiz

import "errors"

var (
	// ErrNotFound is returned when a quiz does not exist in the store.
	ErrNotFound = errors.New("quiz not found")
	// ErrNoQuestions is returned when a quiz has no questions at all.
	ErrNoQuestions = errors.New("quiz has no questions")
)

// Option is one selectable answer. Correct is the answer-key flag and must
// never reach a student-facing payload (see Sanitize).
type Option struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Correct  bool   `json:"isCorrect,omitempty"`
}

// Question is a single-select MCQ. Marks defaults to 1 and NegativeMarks to 0
// when the source document omits them.
type Question struct {
	ID            string   `json:"id,omitempty"`
	Text          string   `json:"text"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Marks         float64  `json:"marks"`
	NegativeMarks float64  `json:"negativeMarks"`
	Explanation   string   `json:"explanation,omitempty"`
	Options       []Option `json:"options"`
}

// Section groups questions. Order is significant: it defines navigation and
// palette grouping, and section bounds are derived once per session.
type Section struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Quiz is the canonical internal shape. Raw documents may use looser field
// names (title/name, timerMinutes/timeMinutes); Normalize folds those in.
type Quiz struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	TestType           string    `json:"testType,omitempty"`
	TimerMinutes       int       `json:"timerMinutes"`
	Premium            bool      `json:"premium,omitempty"`
	AssociatedExamID   string    `json:"associatedExamId,omitempty"`
	AssociatedExamName string    `json:"associatedExamName,omitempty"`
	Description        string    `json:"description,omitempty"`
	Status             string    `json:"status,omitempty"`
	Sections           []Section `json:"sections"`
}

// TotalQuestions counts questions across all sections.
func (q Quiz) TotalQuestions() int {
	n := 0
	for _, s := range q.Sections {
		n += len(s.Questions)
	}
	return n
}

// AnswerKeyIndex returns the index of the first option flagged correct, or -1
// if none is. Single-select semantics: extra flags beyond the first are
// ignored.
func (q Question) AnswerKeyIndex() int {
	for i, o := range q.Options {
		if o.Correct {
			return i
		}
	}
	return -1
}

// Sanitize returns a copy of the quiz safe to serve to students: correctness
// flags and explanations stripped, everything else intact.
func Sanitize(q Quiz) Quiz {
	out := q
	out.Sections = make([]Section, len(q.Sections))
	for i, s := range q.Sections {
		cs := s
		cs.Questions = make([]Question, len(s.Questions))
		for j, qq := range s.Questions {
			cq := qq
			cq.Explanation = ""
			cq.Options = make([]Option, len(qq.Options))
			for k, o := range qq.Options {
				co := o
				co.Correct = false
				cq.Options[k] = co
			}
			cs.Questions[j] = cq
		}
		out.Sections[i] = cs
	}
	return out
}
