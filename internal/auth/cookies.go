package auth

import (
	"net/http"
	"time"

	"github.com/notebook/notebook/internal/identity"
)

// DefaultCookieMaxAge is how long the token cookies live in the browser.
// Access-token freshness is checked on every request, so this only bounds
// how long a refresh token can be replayed from the jar.
const DefaultCookieMaxAge = 30 * 24 * time.Hour

// CookiePolicy builds the session cookies. Cookies are always HttpOnly and
// SameSite=Lax; Secure is set in production.
type CookiePolicy struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// NewCookiePolicy returns the policy for the given environment.
func NewCookiePolicy(production bool) CookiePolicy {
	return CookiePolicy{Secure: production, MaxAge: DefaultCookieMaxAge}
}

// SessionCookies returns the cookies that persist a provider session.
func (p CookiePolicy) SessionCookies(s *identity.Session) []*http.Cookie {
	maxAge := p.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return []*http.Cookie{
		p.cookie(AccessTokenCookie, s.AccessToken, int(maxAge.Seconds())),
		p.cookie(RefreshTokenCookie, s.RefreshToken, int(maxAge.Seconds())),
	}
}

// ClearCookies returns deletions for both session cookies.
func (p CookiePolicy) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		p.cookie(AccessTokenCookie, "", -1),
		p.cookie(RefreshTokenCookie, "", -1),
	}
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ApplyCookies writes cookie mutations to the response headers.
func ApplyCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
