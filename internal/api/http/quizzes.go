package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/examprep/examprep/internal/auth"
	"github.com/examprep/examprep/internal/quiz"
)

// GET /quizzes/{quizID}
// Serves the sanitized quiz document: correctness flags and explanations are
// stripped, so the answer key never leaves the server before submission.
//
// Premium gating happens here, at quiz load: an anonymous caller gets a 401
// carrying a login URL with a callback back to this quiz's test page; an
// authenticated free-tier caller gets an explicit 403 upgrade prompt.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		if q.Premium {
			claims := auth.ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":     "sign in required",
					"login_url": "/login?callbackUrl=" + url.QueryEscape("/test/"+id),
				})
				return
			}
			if claims.Subscription != auth.TierPaid {
				writeError(w, http.StatusForbidden, "this is a premium quiz; please upgrade to access")
				return
			}
		}

		writeJSON(w, http.StatusOK, quiz.Sanitize(q))
	}
}

// GET /quizzes?testType=&examId=&status=
// Listing for the browse pages; summaries only, no question content.
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			TestType: r.URL.Query().Get("testType"),
			ExamID:   r.URL.Query().Get("examId"),
			Status:   r.URL.Query().Get("status"),
			Limit:    parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:   parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
