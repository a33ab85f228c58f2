package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store loads and persists quizzes. GetQuiz returns the full document
// including answer keys; callers serving students must Sanitize first.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error)
}

// ListOpts filters quiz listings. Zero values mean "no filter".
type ListOpts struct {
	TestType string
	ExamID   string
	Status   string
	Limit    int
	Offset   int
}

// Summary is the listing row: enough for browse pages, no question content.
type Summary struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	TestType           string `json:"testType,omitempty"`
	TimerMinutes       int    `json:"timerMinutes"`
	Premium            bool   `json:"premium,omitempty"`
	AssociatedExamID   string `json:"associatedExamId,omitempty"`
	AssociatedExamName string `json:"associatedExamName,omitempty"`
	QuestionCount      int    `json:"questionCount"`
}

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	ApplyDefaults(&q)
	sj, err := json.Marshal(q.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,title,test_type,timer_minutes,premium,exam_id,exam_name,description,status,sections_json,question_count,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, test_type=EXCLUDED.test_type, timer_minutes=EXCLUDED.timer_minutes,
			premium=EXCLUDED.premium, exam_id=EXCLUDED.exam_id, exam_name=EXCLUDED.exam_name,
			description=EXCLUDED.description, status=EXCLUDED.status,
			sections_json=EXCLUDED.sections_json, question_count=EXCLUDED.question_count,
			updated_at=EXCLUDED.updated_at`,
		q.ID, q.Title, q.TestType, q.TimerMinutes, q.Premium, q.AssociatedExamID,
		q.AssociatedExamName, q.Description, q.Status, string(sj), q.TotalQuestions(),
		time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,test_type,timer_minutes,premium,exam_id,exam_name,description,status,sections_json
		FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var sj string
	err := row.Scan(&q.ID, &q.Title, &q.TestType, &q.TimerMinutes, &q.Premium,
		&q.AssociatedExamID, &q.AssociatedExamName, &q.Description, &q.Status, &sj)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(sj), &q.Sections); err != nil {
		return Quiz{}, fmt.Errorf("decode sections: %w", err)
	}
	ApplyDefaults(&q)
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error) {
	query := `SELECT id,title,test_type,timer_minutes,premium,exam_id,exam_name,question_count FROM quizzes`
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.TestType != "" {
		add("test_type=$%d", opts.TestType)
	}
	if opts.ExamID != "" {
		add("exam_id=$%d", opts.ExamID)
	}
	if opts.Status != "" {
		add("status=$%d", opts.Status)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY updated_at DESC"
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.TestType, &sm.TimerMinutes,
			&sm.Premium, &sm.AssociatedExamID, &sm.AssociatedExamName, &sm.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
