package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notebook/notebook/internal/identity"
)

// mockProvider is a scripted identity.Provider.
type mockProvider struct {
	users        map[string]*identity.User
	getUserErr   error
	refreshes    map[string]*identity.Session
	refreshErr   error
	getUserCalls int
	refreshCalls int
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	return nil, identity.ErrInvalidCredentials
}

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*identity.SignUpResult, error) {
	return nil, identity.ErrProvider
}

func (m *mockProvider) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	m.getUserCalls++
	if m.getUserErr != nil {
		return nil, m.getUserErr
	}
	if u, ok := m.users[accessToken]; ok {
		return u, nil
	}
	return nil, identity.ErrInvalidToken
}

func (m *mockProvider) RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error) {
	m.refreshCalls++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	if s, ok := m.refreshes[refreshToken]; ok {
		return s, nil
	}
	return nil, identity.ErrInvalidToken
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newTestResolver(p identity.Provider, production bool) *Resolver {
	return NewResolver(ResolverConfig{
		Provider: p,
		Cookies:  NewCookiePolicy(production),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestResolver_NoCredentials(t *testing.T) {
	p := &mockProvider{}
	res := newTestResolver(p, false).Resolve(context.Background(), Credentials{})
	if res.Session != nil || len(res.Cookies) != 0 {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
	if p.getUserCalls != 0 || p.refreshCalls != 0 {
		t.Error("provider must not be called without credentials")
	}
}

func TestResolver_ValidAccessToken(t *testing.T) {
	access := signedToken(t, "user-1", time.Now().Add(time.Hour))
	p := &mockProvider{users: map[string]*identity.User{access: {ID: "user-1", Email: "a@x.com"}}}

	res := newTestResolver(p, false).Resolve(context.Background(), Credentials{AccessToken: access, RefreshToken: "r1"})
	if res.Session == nil {
		t.Fatal("expected session")
	}
	if res.Session.UserID != "user-1" || res.Session.Email != "a@x.com" {
		t.Errorf("unexpected session %+v", res.Session)
	}
	if res.Session.ExpiresAt.IsZero() {
		t.Error("expected expiry decoded from token")
	}
	if len(res.Cookies) != 0 {
		t.Errorf("expected no cookie mutations, got %d", len(res.Cookies))
	}
	if p.refreshCalls != 0 {
		t.Error("valid token must not be refreshed")
	}
}

func TestResolver_ExpiredTokenRefreshes(t *testing.T) {
	access := signedToken(t, "user-1", time.Now().Add(-time.Minute))
	p := &mockProvider{refreshes: map[string]*identity.Session{
		"r1": {
			AccessToken:  "a2",
			RefreshToken: "r2",
			ExpiresAt:    time.Now().Add(time.Hour),
			User:         identity.User{ID: "user-1", Email: "a@x.com"},
		},
	}}

	res := newTestResolver(p, true).Resolve(context.Background(), Credentials{AccessToken: access, RefreshToken: "r1"})
	if res.Session == nil || res.Session.AccessToken != "a2" {
		t.Fatalf("expected refreshed session, got %+v", res.Session)
	}
	if p.getUserCalls != 0 {
		t.Error("locally expired token should skip the user lookup")
	}

	a := cookieByName(res.Cookies, AccessTokenCookie)
	r := cookieByName(res.Cookies, RefreshTokenCookie)
	if a == nil || a.Value != "a2" || r == nil || r.Value != "r2" {
		t.Fatalf("expected rotated cookies, got %+v", res.Cookies)
	}
	if !a.Secure || !a.HttpOnly || a.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", a)
	}
}

func TestResolver_RejectedAccessTokenRefreshes(t *testing.T) {
	p := &mockProvider{refreshes: map[string]*identity.Session{
		"r1": {AccessToken: "a2", RefreshToken: "r2", User: identity.User{ID: "user-1"}},
	}}

	res := newTestResolver(p, false).Resolve(context.Background(), Credentials{AccessToken: "opaque", RefreshToken: "r1"})
	if res.Session == nil || res.Session.UserID != "user-1" {
		t.Fatalf("expected refreshed session, got %+v", res.Session)
	}
	if p.getUserCalls != 1 || p.refreshCalls != 1 {
		t.Errorf("expected one lookup and one refresh, got %d/%d", p.getUserCalls, p.refreshCalls)
	}
}

func TestResolver_NearExpiryWithoutRefreshToken(t *testing.T) {
	tests := []struct {
		name        string
		exp         time.Duration
		wantSession bool
		wantCookies int
		wantLookups int
	}{
		{"still valid inside leeway", 10 * time.Second, true, 0, 1},
		{"expired", -time.Second, false, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := signedToken(t, "user-1", time.Now().Add(tt.exp))
			p := &mockProvider{users: map[string]*identity.User{access: {ID: "user-1", Email: "a@x.com"}}}

			res := newTestResolver(p, false).Resolve(context.Background(), Credentials{AccessToken: access})
			if (res.Session != nil) != tt.wantSession {
				t.Fatalf("session = %+v, want present=%v", res.Session, tt.wantSession)
			}
			if len(res.Cookies) != tt.wantCookies {
				t.Errorf("cookies = %d, want %d", len(res.Cookies), tt.wantCookies)
			}
			if p.getUserCalls != tt.wantLookups {
				t.Errorf("GetUser calls = %d, want %d", p.getUserCalls, tt.wantLookups)
			}
			if p.refreshCalls != 0 {
				t.Error("refresh must not be attempted without a refresh token")
			}
		})
	}
}

func TestResolver_RejectedRefreshClearsCookies(t *testing.T) {
	p := &mockProvider{}

	res := newTestResolver(p, false).Resolve(context.Background(), Credentials{AccessToken: "stale", RefreshToken: "stale"})
	if res.Session != nil {
		t.Fatal("expected no session")
	}
	if len(res.Cookies) != 2 {
		t.Fatalf("expected 2 cookie deletions, got %d", len(res.Cookies))
	}
	for _, c := range res.Cookies {
		if c.MaxAge >= 0 || c.Value != "" {
			t.Errorf("expected deletion cookie, got %+v", c)
		}
	}
}

func TestResolver_ProviderOutageKeepsCookies(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		p     *mockProvider
	}{
		{
			name:  "user lookup fails",
			creds: Credentials{AccessToken: "a1", RefreshToken: "r1"},
			p:     &mockProvider{getUserErr: identity.ErrProvider},
		},
		{
			name:  "refresh fails",
			creds: Credentials{RefreshToken: "r1"},
			p:     &mockProvider{refreshErr: identity.ErrProvider},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestResolver(tt.p, false).Resolve(context.Background(), tt.creds)
			if res.Session != nil {
				t.Error("expected nil session on provider error")
			}
			if len(res.Cookies) != 0 {
				t.Errorf("transient failures must not clear cookies, got %d", len(res.Cookies))
			}
			if tt.p.refreshCalls > 0 && tt.p.getUserErr != nil {
				t.Error("lookup outage must not fall through to refresh")
			}
		})
	}
}

func TestResolver_BearerToken(t *testing.T) {
	p := &mockProvider{users: map[string]*identity.User{"b1": {ID: "user-9"}}}
	r := newTestResolver(p, false)

	res := r.Resolve(context.Background(), Credentials{BearerToken: "b1", AccessToken: "ignored"})
	if res.Session == nil || res.Session.UserID != "user-9" {
		t.Fatalf("expected bearer session, got %+v", res.Session)
	}

	res = r.Resolve(context.Background(), Credentials{BearerToken: "bad", RefreshToken: "r1"})
	if res.Session != nil || len(res.Cookies) != 0 {
		t.Fatalf("bad bearer should resolve to nothing, got %+v", res)
	}
	if p.refreshCalls != 0 {
		t.Error("bearer callers are never refreshed")
	}
}

func TestResolver_ProviderErrorNeverSurfaces(t *testing.T) {
	p := &mockProvider{getUserErr: errors.New("boom")}
	res := newTestResolver(p, false).Resolve(context.Background(), Credentials{BearerToken: "x"})
	if res.Session != nil {
		t.Fatal("expected nil session")
	}
}

func TestCredentialsFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a1"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "r1"})
	req.Header.Set("Authorization", "bearer b1")

	c := CredentialsFromRequest(req)
	if c.AccessToken != "a1" || c.RefreshToken != "r1" || c.BearerToken != "b1" {
		t.Errorf("unexpected credentials %+v", c)
	}

	empty := CredentialsFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	if !empty.Empty() {
		t.Errorf("expected empty credentials, got %+v", empty)
	}
}

func TestCookiePolicy(t *testing.T) {
	tests := []struct {
		name       string
		production bool
	}{
		{"development", false},
		{"production", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewCookiePolicy(tt.production)
			cookies := p.SessionCookies(&identity.Session{AccessToken: "a", RefreshToken: "r"})
			cookies = append(cookies, p.ClearCookies()...)

			for _, c := range cookies {
				if c.Secure != tt.production {
					t.Errorf("%s: Secure = %v, want %v", c.Name, c.Secure, tt.production)
				}
				if !c.HttpOnly {
					t.Errorf("%s: expected HttpOnly", c.Name)
				}
				if c.SameSite != http.SameSiteLaxMode {
					t.Errorf("%s: expected SameSite=Lax", c.Name)
				}
				if c.Path != "/" {
					t.Errorf("%s: expected Path=/", c.Name)
				}
			}
		})
	}
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	if SessionFromContext(ctx) != nil || UserIDFromContext(ctx) != "" {
		t.Fatal("expected no session in empty context")
	}

	ctx = ContextWithSession(ctx, &Session{UserID: "user-1"})
	if UserIDFromContext(ctx) != "user-1" {
		t.Errorf("expected user-1, got %q", UserIDFromContext(ctx))
	}
}
