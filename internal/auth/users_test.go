package auth

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/examprep/examprep/internal/db"
)

func newUserFixture(t *testing.T) (http.HandlerFunc, http.HandlerFunc, *sql.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "users.db") + "?cache=shared&mode=rwc"
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	svc := NewService("secret", time.Hour)
	return RegisterHandler(sqlDB, svc), LoginHandler(sqlDB, svc), sqlDB
}

func post(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	register, login, _ := newUserFixture(t)

	rec := post(register, map[string]string{
		"email": "Alice@Example.com", "password": "hunter2hunter2", "name": "Alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		User        User   `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatal("register must return a token")
	}
	if out.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", out.User.Email)
	}
	if out.User.Subscription != TierFree {
		t.Fatalf("new accounts start free, got %q", out.User.Subscription)
	}

	// Login is case-insensitive on email.
	rec = post(login, map[string]string{"email": "ALICE@example.com", "password": "hunter2hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}

	rec = post(login, map[string]string{"email": "alice@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	rec = post(login, map[string]string{"email": "nobody@example.com", "password": "hunter2hunter2"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	register, _, _ := newUserFixture(t)

	if rec := post(register, map[string]string{"email": "", "password": "hunter2hunter2"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty email: %d", rec.Code)
	}
	if rec := post(register, map[string]string{"email": "a@b.c", "password": "short"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("short password: %d", rec.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	register, _, _ := newUserFixture(t)

	body := map[string]string{"email": "dup@example.com", "password": "hunter2hunter2"}
	if rec := post(register, body); rec.Code != http.StatusOK {
		t.Fatalf("first register: %d", rec.Code)
	}
	if rec := post(register, body); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", rec.Code)
	}
}

func TestRegisterDatabaseFailureIsNotConflict(t *testing.T) {
	register, _, sqlDB := newUserFixture(t)
	sqlDB.Close()

	body := map[string]string{"email": "new@example.com", "password": "hunter2hunter2"}
	if rec := post(register, body); rec.Code != http.StatusInternalServerError {
		t.Fatalf("db failure must be a 500, got %d", rec.Code)
	}
}
