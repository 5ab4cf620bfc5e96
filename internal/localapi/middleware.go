package localapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// authMiddleware validates the bearer token on every API request. An
// empty configured token accepts any non-empty bearer value.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, prefix) {
				unauthorized(w)
				return
			}
			bearer := authHeader[len(prefix):]
			if bearer == "" || (token != "" && bearer != token) {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accountIDMiddleware extracts the account_id URL parameter into the
// request context.
func accountIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "account_id")
		if accountID == "" {
			badRequest(w, "account_id is required")
			return
		}
		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountID(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}
