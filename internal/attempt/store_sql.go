// Package attempt persists quiz outcomes. An attempt row is a rolling
// recent-activity record, not history: one row per (user, quiz), overwritten
// on retake and purged 24 hours after its last update.
package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an attempt is absent or owned by someone
	// else; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("attempt not found")
)

// retention is how long an attempt survives after its last update.
const retention = 24 * time.Hour

// Attempt is one user's recorded outcome for one quiz. Title and type are
// denormalized for display so the dashboard never joins back into quizzes.
type Attempt struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	QuizID         string         `json:"quizId"`
	QuizTitle      string         `json:"quizTitle"`
	QuizType       string         `json:"quizType"`
	Score          float64        `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     float64        `json:"percentage"`
	Responses      map[string]int `json:"responses"` // global index -> option index
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Store is the attempt repository.
type Store interface {
	Upsert(ctx context.Context, a Attempt) (Attempt, error)
	ListRecent(ctx context.Context, userID string) ([]Attempt, error)
	Get(ctx context.Context, id, userID string) (Attempt, error)
	Delete(ctx context.Context, id, userID string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

// Upsert writes the attempt keyed on (user, quiz): the row is created on the
// first submission and overwritten in place on every retake. Only the most
// recent attempt per pair is retained, by design.
func (s *SQLStore) Upsert(ctx context.Context, a Attempt) (Attempt, error) {
	if a.Responses == nil {
		a.Responses = map[string]int{}
	}
	rj, err := json.Marshal(a.Responses)
	if err != nil {
		return Attempt{}, fmt.Errorf("encode responses: %w", err)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.UpdatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,user_id,quiz_id,quiz_title,quiz_type,score,total_questions,percentage,responses_json,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (user_id,quiz_id) DO UPDATE SET
			quiz_title=EXCLUDED.quiz_title, quiz_type=EXCLUDED.quiz_type,
			score=EXCLUDED.score, total_questions=EXCLUDED.total_questions,
			percentage=EXCLUDED.percentage, responses_json=EXCLUDED.responses_json,
			updated_at=EXCLUDED.updated_at`,
		a.ID, a.UserID, a.QuizID, a.QuizTitle, a.QuizType, a.Score,
		a.TotalQuestions, a.Percentage, string(rj), a.UpdatedAt.Unix())
	if err != nil {
		return Attempt{}, err
	}
	// Re-read: on the update path the stored row keeps its original ID.
	return s.getByPair(ctx, a.UserID, a.QuizID)
}

// ListRecent returns up to 50 attempts updated within the last 24 hours for
// the user, most recently updated first.
func (s *SQLStore) ListRecent(ctx context.Context, userID string) ([]Attempt, error) {
	cutoff := s.now().Add(-retention).Unix()
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE user_id=$1 AND updated_at > $2
		ORDER BY updated_at DESC LIMIT 50`, userID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get fetches an attempt only if the caller owns it.
func (s *SQLStore) Get(ctx context.Context, id, userID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE id=$1 AND user_id=$2`, id, userID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

// Delete removes an attempt only if the caller owns it; a non-owner gets the
// same ErrNotFound as a missing row.
func (s *SQLStore) Delete(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired drops rows past the 24-hour retention window. The serve loop
// runs this periodically, standing in for the document store's TTL index.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE updated_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) getByPair(ctx context.Context, userID, quizID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

const attemptCols = `id,user_id,quiz_id,quiz_title,quiz_type,score,total_questions,percentage,responses_json,updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanAttempt(r rowScanner) (Attempt, error) {
	var (
		a  Attempt
		rj string
		ts int64
	)
	if err := r.Scan(&a.ID, &a.UserID, &a.QuizID, &a.QuizTitle, &a.QuizType,
		&a.Score, &a.TotalQuestions, &a.Percentage, &rj, &ts); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(rj), &a.Responses); err != nil {
		return Attempt{}, fmt.Errorf("decode responses: %w", err)
	}
	a.UpdatedAt = time.Unix(ts, 0).UTC()
	return a, nil
}
