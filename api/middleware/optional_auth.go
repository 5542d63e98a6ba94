package middleware

import (
	"context"
	"net/http"
	"strings"

	pkgauth "github.com/ohyerin/magpress-backend/pkg/auth"
	"github.com/ohyerin/magpress-backend/pkg/config"
	"github.com/ohyerin/magpress-backend/pkg/logger"
)

// OptionalAuth seeds the context with claims when a valid bearer token is
// presented, and lets the request through anonymously otherwise. Routes that
// serve both free and gated content use this instead of Auth.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
