package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/notebook/notebook/internal/auth"
)

// SessionResolver resolves request credentials to a session.
type SessionResolver interface {
	Resolve(ctx context.Context, c auth.Credentials) auth.Resolution
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Sessions SessionResolver
}

// APIAuth returns a middleware that authenticates API requests by bearer
// token or session cookie. Unauthenticated requests get 401 before the
// handler runs, so no store access happens for them. Cookie rotations from
// the resolver are applied to the response either way.
func APIAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := auth.CredentialsFromRequest(r)
			if creds.Empty() {
				logAuthFailure(cfg.Logger, r, "missing_credentials")
				writeAuthError(w)
				return
			}

			res := cfg.Sessions.Resolve(r.Context(), creds)
			auth.ApplyCookies(w, res.Cookies)

			if res.Session == nil {
				logAuthFailure(cfg.Logger, r, "invalid_session")
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithSession(r.Context(), res.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
}
