package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/examprep/examprep/internal/attempt"
	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/catalog"
	"github.com/examprep/examprep/internal/db"
	"github.com/examprep/examprep/internal/quiz"
	"github.com/examprep/examprep/internal/session"
	"github.com/examprep/examprep/internal/storage"
)

type fixture struct {
	srv      *httptest.Server
	auth     *auth.Service
	quizzes  quiz.Store
	attempts attempt.Store
	dbHandle *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?cache=shared&mode=rwc"
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{
		auth:     auth.NewService("test-secret", time.Hour),
		quizzes:  quiz.NewSQLStore(sqlDB, "sqlite"),
		attempts: attempt.NewSQLStore(sqlDB, "sqlite"),
		dbHandle: sqlDB,
	}
	router := NewRouter(RouterConfig{
		DB:       sqlDB,
		Auth:     f.auth,
		Quizzes:  f.quizzes,
		Attempts: f.attempts,
		Catalog:  catalog.NewSQLStore(sqlDB),
		Sessions: session.NewStore(),
	})
	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) seedQuiz(t *testing.T, q quiz.Quiz) {
	t.Helper()
	require.NoError(t, f.quizzes.PutQuiz(context.Background(), q))
}

func (f *fixture) token(t *testing.T, sub, tier string) string {
	t.Helper()
	tok, err := f.auth.IssueJWT(sub, sub+"@example.com", "Test User", tier)
	require.NoError(t, err)
	return tok
}

// do issues a request; a non-empty token goes into the Authorization header,
// and a non-nil out receives the decoded JSON body.
func (f *fixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func sampleSeedQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:           "quiz-1",
		Title:        "Mock 1",
		TestType:     "Mock",
		TimerMinutes: 30,
		Sections: []quiz.Section{
			{ID: "phy", Name: "Physics", Questions: []quiz.Question{
				{ID: "q1", Text: "P1", Marks: 1, Options: []quiz.Option{
					{Text: "a"}, {Text: "b", Correct: true},
				}},
				{ID: "q2", Text: "P2", Marks: 2, NegativeMarks: 0.25, Options: []quiz.Option{
					{Text: "a", Correct: true}, {Text: "b"},
				}},
			}},
			{ID: "chem", Name: "Chemistry", Questions: []quiz.Question{
				{ID: "q3", Text: "C1", Marks: 1, Options: []quiz.Option{
					{Text: "a"}, {Text: "b", Correct: true},
				}},
			}},
		},
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 200, f.do(t, "GET", "/healthz", "", nil, nil))
	require.Equal(t, 200, f.do(t, "GET", "/readyz", "", nil, nil))
	require.Equal(t, 200, f.do(t, "GET", "/metrics", "", nil, nil))
}

func TestAssetRoute(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFSStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("exams/jee.png", bytes.NewReader([]byte("png-bytes"))))

	dsn := "file:" + filepath.Join(t.TempDir(), "assets.db") + "?cache=shared&mode=rwc"
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	authSvc := auth.NewService("test-secret", time.Hour)
	router := NewRouter(RouterConfig{
		DB:       sqlDB,
		Auth:     authSvc,
		Quizzes:  quiz.NewSQLStore(sqlDB, "sqlite"),
		Attempts: attempt.NewSQLStore(sqlDB, "sqlite"),
		Catalog:  catalog.NewSQLStore(sqlDB),
		Sessions: session.NewStore(),
		Assets:   store,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/assets/exams/jee.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(body))

	resp, err = srv.Client().Get(srv.URL + "/assets/nope.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)

	// Uploads require authentication.
	req, err := http.NewRequest("PUT", srv.URL+"/assets/exams/neet.png", bytes.NewReader([]byte("neet-bytes")))
	require.NoError(t, err)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 401, resp.StatusCode)

	tok, err := authSvc.IssueJWT("admin-1", "admin@example.com", "Admin", auth.TierPaid)
	require.NoError(t, err)
	req, err = http.NewRequest("PUT", srv.URL+"/assets/exams/neet.png", bytes.NewReader([]byte("neet-bytes")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 204, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/assets/exams/neet.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "neet-bytes", string(body))
}

func TestProfileRoute(t *testing.T) {
	f := newFixture(t)

	var reg struct {
		AccessToken string    `json:"access_token"`
		User        auth.User `json:"user"`
	}
	code := f.do(t, "POST", "/auth/register", "", map[string]string{
		"email": "carol@example.com", "password": "hunter2hunter2", "name": "Carol",
	}, &reg)
	require.Equal(t, 200, code)

	require.Equal(t, 401, f.do(t, "GET", "/users/me", "", nil, nil))

	var u auth.User
	require.Equal(t, 200, f.do(t, "GET", "/users/me", reg.AccessToken, nil, &u))
	require.Equal(t, "carol@example.com", u.Email)
	require.Equal(t, "Carol", u.Name)

	require.Equal(t, 200, f.do(t, "PATCH", "/users/me", reg.AccessToken,
		map[string]string{"phone": "5551234567"}, &u))
	require.Equal(t, "5551234567", u.Phone)
	require.Equal(t, "Carol", u.Name)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 401, f.do(t, "GET", "/attempts", "", nil, nil))
	require.Equal(t, 401, f.do(t, "POST", "/sessions", "", map[string]string{"quizId": "x"}, nil))
	require.Equal(t, 401, f.do(t, "GET", "/attempts", "not-a-jwt", nil, nil))
}
