// Package identity is a client for the external identity provider.
// The provider speaks the GoTrue REST dialect (/auth/v1/...): password and
// refresh-token grants, sign-up, user lookup, and logout.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider errors. Callers map these to user-facing messages or treat them
// as "no session"; they are never surfaced raw.
var (
	// ErrProvider covers transport failures and unexpected provider responses.
	ErrProvider = errors.New("identity provider error")
	// ErrInvalidCredentials is returned for a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrInvalidToken is returned when an access or refresh token is rejected.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// APIError carries the provider's status code and message.
// It unwraps to one of the sentinel errors above.
type APIError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

// NewAPIError returns an APIError that unwraps to kind.
func NewAPIError(status int, code, message string, kind error) *APIError {
	return &APIError{Status: status, Code: code, Message: message, kind: kind}
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// User is the provider's view of an account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a token pair issued by the provider.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// SignUpResult is returned by SignUp. Session is nil when the provider
// requires email confirmation before the first login.
type SignUpResult struct {
	User    User
	Session *Session
}

// Provider is the identity-provider contract the rest of the app depends on.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
