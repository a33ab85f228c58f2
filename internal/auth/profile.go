package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const maxPhoneLen = 15

// GET /users/me
func ProfileHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		u, err := loadProfile(r.Context(), db, claims.Sub)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	}
}

// PATCH /users/me  { "name": "...", "phone": "..." } — absent fields are kept.
func UpdateProfileHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Name  *string `json:"name"`
			Phone *string `json:"phone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Phone != nil && len(*req.Phone) > maxPhoneLen {
			http.Error(w, "invalid phone number", http.StatusBadRequest)
			return
		}
		u, err := loadProfile(r.Context(), db, claims.Sub)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			u.Phone = strings.TrimSpace(*req.Phone)
		}
		if _, err := db.ExecContext(r.Context(), `UPDATE users SET name=$1, phone=$2 WHERE id=$3`,
			u.Name, u.Phone, u.ID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	}
}

func loadProfile(ctx context.Context, db *sql.DB, id string) (User, error) {
	var u User
	row := db.QueryRowContext(ctx, `SELECT id,email,name,phone,subscription FROM users WHERE id=$1`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Subscription); err != nil {
		return User{}, err
	}
	return u, nil
}
