package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/examprep/examprep/internal/catalog"
	"github.com/examprep/examprep/internal/config"
	"github.com/examprep/examprep/internal/db"
	"github.com/examprep/examprep/internal/quiz"
)

// catalogSeed mirrors the browse fixture layout: one file carrying the whole
// hierarchy plus the exam index.
type catalogSeed struct {
	Classes  []catalog.Class   `json:"classes"`
	Subjects []catalog.Subject `json:"subjects"`
	Chapters []catalog.Chapter `json:"chapters"`
	Exams    []catalog.Exam    `json:"exams"`
}

func newSeedCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz and catalog fixtures into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seed", "directory of fixture JSON files")
	return cmd
}

func runSeed(ctx context.Context, configPath, dir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sqlDB, err := db.Open(dbCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	quizzes := quiz.NewSQLStore(sqlDB, cfg.DBDriver)
	cat := catalog.NewSQLStore(sqlDB)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read seed dir %s: %w", dir, err)
	}

	var loaded int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		if e.Name() == "catalog.json" {
			if err := seedCatalog(ctx, cat, data); err != nil {
				return fmt.Errorf("seed %s: %w", path, err)
			}
			continue
		}

		q, err := quiz.Normalize(data)
		if err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		if err := quizzes.PutQuiz(ctx, q); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		loaded++
		slog.Info("seeded quiz", "id", q.ID, "title", q.Title, "questions", q.TotalQuestions())
	}

	slog.Info("seed complete", "quizzes", loaded)
	return nil
}

func seedCatalog(ctx context.Context, cat *catalog.SQLStore, data []byte) error {
	var seed catalogSeed
	if err := json.Unmarshal(data, &seed); err != nil {
		return err
	}
	for _, c := range seed.Classes {
		if err := cat.PutClass(ctx, c); err != nil {
			return err
		}
	}
	for _, s := range seed.Subjects {
		if err := cat.PutSubject(ctx, s); err != nil {
			return err
		}
	}
	for _, ch := range seed.Chapters {
		if err := cat.PutChapter(ctx, ch); err != nil {
			return err
		}
	}
	for _, e := range seed.Exams {
		if err := cat.PutExam(ctx, e); err != nil {
			return err
		}
	}
	slog.Info("seeded catalog",
		"classes", len(seed.Classes), "subjects", len(seed.Subjects),
		"chapters", len(seed.Chapters), "exams", len(seed.Exams))
	return nil
}
