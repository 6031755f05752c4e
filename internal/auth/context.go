package auth

import "context"

type contextKey string

const sessionContextKey contextKey = "session"

// ContextWithSession stores the resolved session in ctx.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session stored by ContextWithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return s
}

// UserIDFromContext returns the session's user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	s := SessionFromContext(ctx)
	if s == nil {
		return ""
	}
	return s.UserID
}
