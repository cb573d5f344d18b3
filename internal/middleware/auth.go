package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ancsystem/anc-notifier/internal/auth"
)

// CallerAuth requires a valid caller bearer token. When tokenSvc has no secret
// configured, requests pass through unauthenticated.
func (m *Middleware) CallerAuth(tokenSvc *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokenSvc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			var tokenString string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = strings.TrimSpace(parts[1])
				}
			}

			if tokenString == "" {
				writeErrorBody(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
				return
			}

			claims, err := tokenSvc.Validate(tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("caller token validation failed")
				writeErrorBody(w, http.StatusUnauthorized, "unauthenticated", "The caller token is invalid or expired")
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
