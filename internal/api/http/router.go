package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/catalog"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/session"
	"github.com/examprep/examprep/internal/storage"
)

type RouterConfig struct {
	DB          *sql.DB
	Auth        *auth.Service
	Quizzes     quiz.Store
	Attempts    attempt.Store
	Catalog     *catalog.SQLStore
	Sessions    *session.Store
	Assets      storage.AssetStore
	CORSOrigins []string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Auth
	r.Post("/auth/register", auth.RegisterHandler(cfg.DB, cfg.Auth))
	r.Post("/auth/login", auth.LoginHandler(cfg.DB, cfg.Auth))

	// Quizzes: public routes, but premium quizzes gate on attached claims.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.AttachAuth(cfg.Auth))
		pr.Get("/quizzes", ListQuizzesHandler(cfg.Quizzes))
		pr.Get("/quizzes/{quizID}", GetQuizHandler(cfg.Quizzes))
	})

	// Catalog browse reads (public).
	r.Get("/classes", ListClassesHandler(cfg.Catalog))
	r.Get("/subjects/{subjectID}", GetSubjectHandler(cfg.Catalog))
	r.Get("/chapters/{chapterID}", GetChapterHandler(cfg.Catalog))
	r.Get("/exams", ListExamsHandler(cfg.Catalog))
	r.Get("/exams/{examID}", GetExamHandler(cfg.Catalog))
	r.Get("/mock-tests/exams", ListExamsHandler(cfg.Catalog))
	r.Get("/mock-tests/{examID}", TestsByExamHandler(cfg.Catalog, cfg.Quizzes, "Mock"))
	r.Get("/pyq", ListExamsHandler(cfg.Catalog))
	r.Get("/pyq/{examID}", TestsByExamHandler(cfg.Catalog, cfg.Quizzes, "Previous Year"))

	// Attempts and live sessions require an authenticated session.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(cfg.Auth))

		pr.Get("/users/me", auth.ProfileHandler(cfg.DB))
		pr.Patch("/users/me", auth.UpdateProfileHandler(cfg.DB))

		pr.Post("/attempts", SaveAttemptHandler(cfg.Attempts))
		pr.Get("/attempts", ListAttemptsHandler(cfg.Attempts))
		pr.Delete("/attempts", DeleteAttemptHandler(cfg.Attempts))
		pr.Get("/attempts/{attemptID}/review", ReviewAttemptHandler(cfg.Attempts, cfg.Quizzes))

		sh := &Sessions{Quizzes: cfg.Quizzes, Attempts: cfg.Attempts, Store: cfg.Sessions}
		pr.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", sh.Create)
			sr.Get("/{sessionID}", sh.Get)
			sr.Post("/{sessionID}/start", sh.Start)
			sr.Post("/{sessionID}/answer", sh.Answer)
			sr.Delete("/{sessionID}/answer", sh.ClearAnswer)
			sr.Post("/{sessionID}/mark", sh.ToggleMark)
			sr.Post("/{sessionID}/nav", sh.Navigate)
			sr.Post("/{sessionID}/submit", sh.Submit)
		})

		if cfg.Assets != nil {
			pr.Put("/assets/*", UploadAssetHandler(cfg.Assets))
		}
	})

	if cfg.Assets != nil {
		r.Get("/assets/*", AssetHandler(cfg.Assets))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// TestsByExamHandler returns an exam with its quizzes of one test type, the
// payload behind the mock-test and previous-year-paper listings.
func TestsByExamHandler(cat *catalog.SQLStore, quizzes quiz.Store, testType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		e, err := cat.GetExam(r.Context(), examID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		list, err := quizzes.ListQuizzes(r.Context(), quiz.ListOpts{
			ExamID:   examID,
			TestType: testType,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"exam":    e,
			"quizzes": list,
		})
	}
}
