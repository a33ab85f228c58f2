// Package scoring computes a finished session's result against the answer
// key. Marks are decimals: negative-marking schemes use fractional deductions
// (0.25, 0.5) and summing them as binary floats drifts.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/examprep/examprep/internal/quiz"
)

// Verdict classifies one question in a scored attempt.
type Verdict string

const (
	VerdictCorrect     Verdict = "correct"
	VerdictIncorrect   Verdict = "incorrect"
	VerdictUnattempted Verdict = "unattempted"
)

// QuestionReview replays one question for the result view.
type QuestionReview struct {
	GlobalIndex    int     `json:"globalIndex"`
	SectionName    string  `json:"sectionName,omitempty"`
	Text           string  `json:"text"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	Explanation    string  `json:"explanation,omitempty"`
	Verdict        Verdict `json:"verdict"`
	SelectedOption int     `json:"selectedOption"` // -1 when unattempted
	CorrectOption  int     `json:"correctOption"`  // -1 when no option is flagged
	MarksAwarded   string  `json:"marksAwarded"`   // decimal string, negative for deductions
}

// Result is the aggregate outcome of scoring one attempt.
type Result struct {
	CorrectCount     int     `json:"correctCount"`
	IncorrectCount   int     `json:"incorrectCount"`
	UnattemptedCount int     `json:"unattemptedCount"`
	TotalQuestions   int     `json:"totalQuestions"`
	Score            float64 `json:"score"`
	MaxScore         float64 `json:"maxScore"`
	// Percentage is score/maxScore*100, deliberately unclamped: heavy
	// negative marking can drive it below zero.
	Percentage float64 `json:"percentage"`
	// Accuracy is correct/(correct+incorrect)*100, 0 with no attempts.
	Accuracy float64 `json:"accuracy"`
}

// Score grades the flattened question sequence against the sparse answer map
// (global index -> selected option index). Unattempted questions contribute
// nothing; incorrect ones deduct the question's negative marks. A question
// with no options or no correct flag can only score as incorrect.
func Score(questions []quiz.FlattenedQuestion, answers map[int]int) Result {
	var (
		score    = decimal.Zero
		maxScore = decimal.Zero
		res      Result
	)
	res.TotalQuestions = len(questions)

	for i, q := range questions {
		marks := decimal.NewFromFloat(q.Marks)
		maxScore = maxScore.Add(marks)

		sel, attempted := answers[i]
		if !attempted {
			res.UnattemptedCount++
			continue
		}
		if isCorrect(q.Question, sel) {
			res.CorrectCount++
			score = score.Add(marks)
		} else {
			res.IncorrectCount++
			score = score.Sub(decimal.NewFromFloat(q.NegativeMarks))
		}
	}

	res.Score, _ = score.Float64()
	res.MaxScore, _ = maxScore.Float64()
	if maxScore.IsPositive() {
		pct, _ := score.Div(maxScore).Mul(decimal.NewFromInt(100)).Float64()
		res.Percentage = pct
	}
	if attempted := res.CorrectCount + res.IncorrectCount; attempted > 0 {
		res.Accuracy = float64(res.CorrectCount) / float64(attempted) * 100
	}
	return res
}

// Review produces the per-question replay for the result renderer.
func Review(questions []quiz.FlattenedQuestion, answers map[int]int) []QuestionReview {
	out := make([]QuestionReview, 0, len(questions))
	for i, q := range questions {
		r := QuestionReview{
			GlobalIndex:    i,
			SectionName:    q.SectionName,
			Text:           q.Text,
			ImageURL:       q.ImageURL,
			Explanation:    q.Explanation,
			SelectedOption: -1,
			CorrectOption:  q.AnswerKeyIndex(),
			Verdict:        VerdictUnattempted,
			MarksAwarded:   "0",
		}
		if sel, ok := answers[i]; ok {
			r.SelectedOption = sel
			if isCorrect(q.Question, sel) {
				r.Verdict = VerdictCorrect
				r.MarksAwarded = decimal.NewFromFloat(q.Marks).String()
			} else {
				r.Verdict = VerdictIncorrect
				r.MarksAwarded = decimal.NewFromFloat(q.NegativeMarks).Neg().String()
			}
		}
		out = append(out, r)
	}
	return out
}

// isCorrect reports whether the selected option index hits the answer key.
// Out-of-range selections and keyless questions are simply incorrect.
func isCorrect(q quiz.Question, selected int) bool {
	if selected < 0 || selected >= len(q.Options) {
		return false
	}
	key := q.AnswerKeyIndex()
	return key >= 0 && selected == key
}
