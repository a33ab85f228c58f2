package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	api "github.com/examprep/examprep/internal/api/http"
	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/catalog"
	"github.com/examprep/examprep/internal/config"
	"github.com/examprep/examprep/internal/db"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/session"
	"github.com/examprep/examprep/internal/storage"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sqlDB, err := db.Open(dbCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var quizzes quiz.Store = quiz.NewSQLStore(sqlDB, cfg.DBDriver)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ttl := config.TTLDuration(cfg.QuizCacheTTL, 10*time.Minute)
		quizzes = quiz.NewCachedStore(quizzes, rdb, ttl)
		defer rdb.Close()
	}

	attempts := attempt.NewSQLStore(sqlDB, cfg.DBDriver)
	authSvc := auth.NewService(cfg.AuthHMACSecret, config.TTLDuration(cfg.TokenTTL, 8*time.Hour))

	assets, err := storage.NewFSStore(cfg.AssetDir)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		DB:          sqlDB,
		Auth:        authSvc,
		Quizzes:     quizzes,
		Attempts:    attempts,
		Catalog:     catalog.NewSQLStore(sqlDB),
		Sessions:    session.NewStore(),
		Assets:      assets,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("gateway listening", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Expired attempts are swept in the background so the history listing
	// never has to filter at read time.
	g.Go(func() error {
		every := config.TTLDuration(cfg.AttemptPurgeEvery, 15*time.Minute)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := attempts.PurgeExpired(ctx)
				if err != nil {
					slog.Error("attempt purge failed", "err", err)
					continue
				}
				if n > 0 {
					slog.Info("purged expired attempts", "count", n)
				}
			}
		}
	})

	return g.Wait()
}
