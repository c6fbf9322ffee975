// Package auth is the HTTP middleware guarding protected routes. It
// extracts the bearer token, verifies it, and attaches the resolved
// identity to the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

// userIDKey is the context key for the authenticated user id.
const userIDKey contextKey = "user_id"

// Verifier checks a session token and returns the embedded user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// Rejecter writes the 401 response. The server supplies its JSON error
// writer so the middleware stays encoding-agnostic.
type Rejecter func(w http.ResponseWriter, message string)

// UserID returns the authenticated user id stored by Middleware, or
// "" when the request did not pass through it.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying the given user id. Exposed for
// handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware rejects requests without a valid bearer token. A missing
// header reads "unauthenticated", a failed verification "invalid
// token"; verifier internals never reach the response.
func Middleware(verifier Verifier, reject Rejecter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				reject(w, "unauthenticated")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				slog.WarnContext(r.Context(), "Token verification failed", "error", err)
				reject(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
