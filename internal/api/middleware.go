// Package api implements the HTTP JSON API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/xaenox/remy-notes/internal/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware validates the Bearer session token on every request and
// stores the caller's user id in the request context.
func AuthMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
				return
			}
			userID, err := verifier.UserID(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// callerID returns the authenticated user id placed by AuthMiddleware.
func callerID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
