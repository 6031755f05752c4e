// Package auth resolves the caller's session from request credentials and
// owns the session cookie policy.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Cookie names for the provider token pair.
const (
	AccessTokenCookie  = "nb-access-token"
	RefreshTokenCookie = "nb-refresh-token"
)

// ErrUnauthenticated is returned when a protected operation runs without a session.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session is an authenticated caller.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Credentials is the snapshot of request state the resolver looks at.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// BearerToken comes from an Authorization header and wins over cookies.
	BearerToken string
}

// Empty reports whether no credential is present at all.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.BearerToken == ""
}

// CredentialsFromRequest reads the session cookies and bearer header.
func CredentialsFromRequest(r *http.Request) Credentials {
	var c Credentials
	if ck, err := r.Cookie(AccessTokenCookie); err == nil {
		c.AccessToken = ck.Value
	}
	if ck, err := r.Cookie(RefreshTokenCookie); err == nil {
		c.RefreshToken = ck.Value
	}
	c.BearerToken = bearerToken(r)
	return c
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
