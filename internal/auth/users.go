package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("invalid credentials")

// User is the stored account row.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Subscription string `json:"subscription"`
}

// POST /auth/register  { "email": "...", "password": "...", "name": "..." }
func RegisterHandler(db *sql.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || len(req.Password) < 8 {
			http.Error(w, "email and password (min 8 chars) required", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		var exists int
		switch err := db.QueryRowContext(r.Context(), `SELECT 1 FROM users WHERE email=$1`, req.Email).Scan(&exists); {
		case err == nil:
			http.Error(w, "email already registered", http.StatusConflict)
			return
		case !errors.Is(err, sql.ErrNoRows):
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		u := User{ID: uuid.NewString(), Email: req.Email, Name: req.Name, Subscription: TierFree}
		_, err = db.ExecContext(r.Context(), `INSERT INTO users (id,email,name,password_hash,subscription,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Email, u.Name, string(hash), u.Subscription, time.Now().Unix())
		if err != nil {
			// the unique index still guards a racing duplicate register
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		tok, err := svc.IssueJWT(u.ID, u.Email, u.Name, u.Subscription)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "user": u})
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(db *sql.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := verifyUser(r.Context(), db, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := svc.IssueJWT(u.ID, u.Email, u.Name, u.Subscription)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "user": u})
	}
}

func verifyUser(ctx context.Context, db *sql.DB, email, password string) (User, error) {
	var (
		u    User
		hash string
	)
	row := db.QueryRowContext(ctx, `SELECT id,email,name,subscription,password_hash FROM users WHERE email=$1`, email)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Subscription, &hash); err != nil {
		return User{}, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, errBadCredentials
	}
	return u, nil
}
