// Package catalog serves the browse hierarchy: classes hold subjects,
// subjects hold chapters, chapters and exams reference quizzes. These are
// plain reads with no side effects; the session engine consumes whatever
// quiz documents they point at, unmodified.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SubjectIDs []string  `json:"subjectIds"`
	Subjects   []Subject `json:"subjects,omitempty"`
}

type Subject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ChapterIDs []string  `json:"chapterIds"`
	Chapters   []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	QuizIDs []string `json:"quizIds"`
}

type Exam struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Category    string   `json:"category,omitempty"`
	QuizIDs     []string `json:"quizIds"`
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// ListClasses returns all classes with their subjects populated one level
// deep, the shape the dashboard's class browser expects.
func (s *SQLStore) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,subject_ids_json FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Class{}
	for rows.Next() {
		var (
			c  Class
			ij string
		)
		if err := rows.Scan(&c.ID, &c.Name, &ij); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ij), &c.SubjectIDs); err != nil {
			return nil, fmt.Errorf("class %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		subs, err := s.subjectsByIDs(ctx, out[i].SubjectIDs)
		if err != nil {
			return nil, err
		}
		out[i].Subjects = subs
	}
	return out, nil
}

// GetSubject returns a subject with its chapters populated.
func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,chapter_ids_json FROM subjects WHERE id=$1`, id)
	var (
		sub Subject
		ij  string
	)
	if err := row.Scan(&sub.ID, &sub.Name, &ij); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	if err := json.Unmarshal([]byte(ij), &sub.ChapterIDs); err != nil {
		return Subject{}, err
	}
	chs, err := s.chaptersByIDs(ctx, sub.ChapterIDs)
	if err != nil {
		return Subject{}, err
	}
	sub.Chapters = chs
	return sub, nil
}

// GetChapter returns one chapter and its quiz references.
func (s *SQLStore) GetChapter(ctx context.Context, id string) (Chapter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,quiz_ids_json FROM chapters WHERE id=$1`, id)
	ch, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chapter{}, ErrNotFound
	}
	return ch, err
}

// ListExams returns the exam directory.
func (s *SQLStore) ListExams(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,title,description,image,category,quiz_ids_json FROM exams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetExam returns one exam with its quiz references.
func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,title,description,image,category,quiz_ids_json FROM exams WHERE id=$1`, id)
	e, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrNotFound
	}
	return e, err
}

// PutClass / PutSubject / PutChapter / PutExam upsert catalog rows; the seed
// command is their only writer.

func (s *SQLStore) PutClass(ctx context.Context, c Class) error {
	ij, _ := json.Marshal(emptyIfNil(c.SubjectIDs))
	_, err := s.db.ExecContext(ctx, `INSERT INTO classes (id,name,subject_ids_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, subject_ids_json=EXCLUDED.subject_ids_json`,
		c.ID, c.Name, string(ij), time.Now().Unix())
	return err
}

func (s *SQLStore) PutSubject(ctx context.Context, sub Subject) error {
	ij, _ := json.Marshal(emptyIfNil(sub.ChapterIDs))
	_, err := s.db.ExecContext(ctx, `INSERT INTO subjects (id,name,chapter_ids_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, chapter_ids_json=EXCLUDED.chapter_ids_json`,
		sub.ID, sub.Name, string(ij), time.Now().Unix())
	return err
}

func (s *SQLStore) PutChapter(ctx context.Context, ch Chapter) error {
	ij, _ := json.Marshal(emptyIfNil(ch.QuizIDs))
	_, err := s.db.ExecContext(ctx, `INSERT INTO chapters (id,name,quiz_ids_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, quiz_ids_json=EXCLUDED.quiz_ids_json`,
		ch.ID, ch.Name, string(ij), time.Now().Unix())
	return err
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	ij, _ := json.Marshal(emptyIfNil(e.QuizIDs))
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams (id,name,title,description,image,category,quiz_ids_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, title=EXCLUDED.title,
			description=EXCLUDED.description, image=EXCLUDED.image,
			category=EXCLUDED.category, quiz_ids_json=EXCLUDED.quiz_ids_json`,
		e.ID, e.Name, e.Title, e.Description, e.Image, e.Category, string(ij), time.Now().Unix())
	return err
}

func (s *SQLStore) subjectsByIDs(ctx context.Context, ids []string) ([]Subject, error) {
	out := make([]Subject, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `SELECT id,name,chapter_ids_json FROM subjects WHERE id=$1`, id)
		var (
			sub Subject
			ij  string
		)
		err := row.Scan(&sub.ID, &sub.Name, &ij)
		if errors.Is(err, sql.ErrNoRows) {
			continue // dangling reference; skip rather than fail the page
		}
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ij), &sub.ChapterIDs); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *SQLStore) chaptersByIDs(ctx context.Context, ids []string) ([]Chapter, error) {
	out := make([]Chapter, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `SELECT id,name,quiz_ids_json FROM chapters WHERE id=$1`, id)
		ch, err := scanChapter(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanChapter(r rowScanner) (Chapter, error) {
	var (
		ch Chapter
		ij string
	)
	if err := r.Scan(&ch.ID, &ch.Name, &ij); err != nil {
		return Chapter{}, err
	}
	if err := json.Unmarshal([]byte(ij), &ch.QuizIDs); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func scanExam(r rowScanner) (Exam, error) {
	var (
		e  Exam
		ij string
	)
	if err := r.Scan(&e.ID, &e.Name, &e.Title, &e.Description, &e.Image, &e.Category, &ij); err != nil {
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(ij), &e.QuizIDs); err != nil {
		return Exam{}, err
	}
	return e, nil
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
