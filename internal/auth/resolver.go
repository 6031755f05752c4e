package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notebook/notebook/internal/identity"
)

// DefaultRefreshLeeway refreshes access tokens this close to expiry.
const DefaultRefreshLeeway = 30 * time.Second

// Resolution is the outcome of resolving a request's credentials.
// Cookies must be applied to whatever response the request produces.
type Resolution struct {
	Session *Session
	Cookies []*http.Cookie
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Provider      identity.Provider
	Cookies       CookiePolicy
	Logger        *slog.Logger
	RefreshLeeway time.Duration
}

// Resolver turns request credentials into a Session via the identity provider.
// It never writes to the store.
type Resolver struct {
	provider identity.Provider
	cookies  CookiePolicy
	logger   *slog.Logger
	leeway   time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	leeway := cfg.RefreshLeeway
	if leeway <= 0 {
		leeway = DefaultRefreshLeeway
	}
	return &Resolver{
		provider: cfg.Provider,
		cookies:  cfg.Cookies,
		logger:   logger,
		leeway:   leeway,
		now:      time.Now,
		parser:   jwt.NewParser(),
	}
}

// Resolve returns the caller's session. Provider failures resolve to a nil
// session; they are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, c Credentials) Resolution {
	if c.BearerToken != "" {
		return Resolution{Session: r.lookup(ctx, c.BearerToken)}
	}
	if c.AccessToken == "" && c.RefreshToken == "" {
		return Resolution{}
	}

	// Without a refresh token, a near-expiry access token is used until it
	// actually expires.
	usable := !r.expiringSoon(c.AccessToken) || (c.RefreshToken == "" && !r.expired(c.AccessToken))
	if c.AccessToken != "" && usable {
		user, err := r.provider.GetUser(ctx, c.AccessToken)
		if err == nil {
			return Resolution{Session: r.session(user, c.AccessToken)}
		}
		if !errors.Is(err, identity.ErrInvalidToken) {
			r.logger.Warn("session lookup failed", slog.String("error", err.Error()))
			return Resolution{}
		}
	}

	if c.RefreshToken == "" {
		return Resolution{Cookies: r.cookies.ClearCookies()}
	}

	refreshed, err := r.provider.RefreshSession(ctx, c.RefreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return Resolution{Cookies: r.cookies.ClearCookies()}
		}
		r.logger.Warn("session refresh failed", slog.String("error", err.Error()))
		return Resolution{}
	}

	return Resolution{
		Session: &Session{
			UserID:      refreshed.User.ID,
			Email:       refreshed.User.Email,
			AccessToken: refreshed.AccessToken,
			ExpiresAt:   refreshed.ExpiresAt,
		},
		Cookies: r.cookies.SessionCookies(refreshed),
	}
}

func (r *Resolver) lookup(ctx context.Context, token string) *Session {
	user, err := r.provider.GetUser(ctx, token)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidToken) {
			r.logger.Warn("session lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return r.session(user, token)
}

func (r *Resolver) session(user *identity.User, token string) *Session {
	return &Session{
		UserID:      user.ID,
		Email:       user.Email,
		AccessToken: token,
		ExpiresAt:   r.expiry(token),
	}
}

// expiry decodes the token's exp claim without verifying the signature. The
// provider remains the authority on validity.
func (r *Resolver) expiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := r.parser.ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// expiringSoon reports whether a token is known to expire within the leeway.
// Opaque tokens are never considered expiring.
func (r *Resolver) expiringSoon(token string) bool {
	exp := r.expiry(token)
	if exp.IsZero() {
		return false
	}
	return !r.now().Add(r.leeway).Before(exp)
}

// expired reports whether a token is known to be past its exp claim.
func (r *Resolver) expired(token string) bool {
	exp := r.expiry(token)
	if exp.IsZero() {
		return false
	}
	return !r.now().Before(exp)
}
