// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/airbearhq/airbear/internal/auth"
)

// writeAuthError writes a minimal JSON error response for auth failures.
// The api package's richer envelope is not used here to avoid an import cycle.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, `{"error":{"code":"`+code+`","message":"`+message+`"}}`)
}

// Auth returns middleware that validates a Bearer access token and stores the
// user ID and role in the request context. Requests without a valid token are
// rejected with 401.
func Auth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				ctx := SetErrorCode(r.Context(), "auth_failed")
				UpdateResponseContext(w, ctx)
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "missing bearer token")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				slog.WarnContext(r.Context(), "token validation failed", "error", err)
				ctx := SetErrorCode(r.Context(), "auth_failed")
				UpdateResponseContext(w, ctx)
				writeAuthError(w, http.StatusUnauthorized, "auth_failed", "invalid or expired token")
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			ctx = SetRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that rejects requests whose authenticated
// role does not match. It must be placed after Auth in the chain.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetRole(r.Context()) != role {
				ctx := SetErrorCode(r.Context(), "forbidden")
				UpdateResponseContext(w, ctx)
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
