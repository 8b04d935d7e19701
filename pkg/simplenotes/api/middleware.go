package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
)

type contextKey string

// UserIDKey holds the authenticated user ID in the request context
const UserIDKey contextKey = "user_id"

// NewTokenAuth creates an HS256 verifier for bearer tokens
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Authenticator rejects requests without a valid token carrying a subject
// and stores the subject as the user ID. It must run after jwtauth.Verifier.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			fail(w, r, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			fail(w, r, http.StatusUnauthorized, CodeUnauthorized, "token has no subject")
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUserID returns a context carrying userID, as Authenticator would
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserID returns the authenticated user ID from the request context
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

// requireUser writes 401 when no user is bound to the request
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := UserID(r)
	if id == "" {
		fail(w, r, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}
