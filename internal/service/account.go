package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/notebook/notebook/internal/identity"
	"github.com/notebook/notebook/internal/metrics"
	"github.com/notebook/notebook/internal/model"
)

// MinPasswordLength is the shortest password accepted on sign-up and login.
const MinPasswordLength = 6

// User-facing account action messages.
const (
	msgInvalidEmail       = "Please enter a valid email address."
	msgPasswordTooShort   = "Password must be at least 6 characters."
	msgInvalidCredentials = "Invalid email or password."
	msgProviderDown       = "Authentication service is unavailable. Please try again."
	msgSyncFailed         = "Could not save your account. Please try again."
	msgUnexpected         = "An unexpected error occurred."
)

// ActionError is the flat, user-readable failure of an account action.
type ActionError struct {
	Message string
	cause   error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.cause
}

// AuthRequest is either a LoginRequest or a SignUpRequest.
type AuthRequest interface {
	authRequest()
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string
	Password string
}

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Email    string
	Password string
}

func (LoginRequest) authRequest()  {}
func (SignUpRequest) authRequest() {}

// AuthResult is either a LoginResult or a SignUpResult.
type AuthResult interface {
	// ProviderSession is the issued session, nil when none was issued.
	ProviderSession() *identity.Session
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Session *identity.Session
}

// ProviderSession implements AuthResult.
func (r *LoginResult) ProviderSession() *identity.Session { return r.Session }

// SignUpResult is the outcome of a successful sign-up. Session is nil when the
// provider requires email confirmation first.
type SignUpResult struct {
	Session              *identity.Session
	ConfirmationRequired bool
}

// ProviderSession implements AuthResult.
func (r *SignUpResult) ProviderSession() *identity.Session { return r.Session }

// Syncer mirrors an identity into the user store.
type Syncer interface {
	Sync(ctx context.Context, identity model.Identity) error
}

// AccountService runs login, sign-up and logout against the identity provider.
type AccountService struct {
	provider identity.Provider
	sync     Syncer
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(provider identity.Provider, sync Syncer, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		provider: provider,
		sync:     sync,
		logger:   logger,
		metrics:  recorder,
	}
}

// Authenticate dispatches req to Login or SignUp.
func (s *AccountService) Authenticate(ctx context.Context, req AuthRequest) (AuthResult, error) {
	switch r := req.(type) {
	case LoginRequest:
		return s.Login(ctx, r)
	case SignUpRequest:
		return s.SignUp(ctx, r)
	default:
		return nil, &ActionError{Message: msgUnexpected}
	}
}

// Login signs in with email and password and syncs the user row.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email, err := validateCredentials(req.Email, req.Password)
	if err != nil {
		s.metrics.IncAccountAction("login", metrics.OutcomeFailure)
		return nil, err
	}

	sess, err := s.provider.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		s.metrics.IncAccountAction("login", metrics.OutcomeFailure)
		return nil, s.providerError("login", err)
	}

	if err := s.syncUser(ctx, sess.User); err != nil {
		s.metrics.IncAccountAction("login", metrics.OutcomeFailure)
		return nil, err
	}

	s.metrics.IncAccountAction("login", metrics.OutcomeSuccess)
	return &LoginResult{Session: sess}, nil
}

// SignUp registers an account and syncs the user row, even when the provider
// still requires email confirmation.
func (s *AccountService) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	email, err := validateCredentials(req.Email, req.Password)
	if err != nil {
		s.metrics.IncAccountAction("sign_up", metrics.OutcomeFailure)
		return nil, err
	}

	res, err := s.provider.SignUp(ctx, email, req.Password)
	if err != nil {
		s.metrics.IncAccountAction("sign_up", metrics.OutcomeFailure)
		return nil, s.providerError("sign_up", err)
	}

	user := res.User
	if user.Email == "" {
		user.Email = email
	}
	if err := s.syncUser(ctx, user); err != nil {
		s.metrics.IncAccountAction("sign_up", metrics.OutcomeFailure)
		return nil, err
	}

	s.metrics.IncAccountAction("sign_up", metrics.OutcomeSuccess)
	return &SignUpResult{Session: res.Session, ConfirmationRequired: res.Session == nil}, nil
}

// LogOut revokes the provider session. A missing token is already logged out.
func (s *AccountService) LogOut(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.metrics.IncAccountAction("logout", metrics.OutcomeFailure)
		return s.providerError("logout", err)
	}

	s.metrics.IncAccountAction("logout", metrics.OutcomeSuccess)
	return nil
}

func (s *AccountService) syncUser(ctx context.Context, user identity.User) error {
	err := s.sync.Sync(ctx, model.Identity{ID: user.ID, Email: user.Email})
	if err != nil {
		s.logger.Error("user sync failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return &ActionError{Message: msgSyncFailed, cause: err}
	}
	return nil
}

// providerError maps a provider failure to a user-readable ActionError.
func (s *AccountService) providerError(action string, err error) error {
	var apiErr *identity.APIError

	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &ActionError{Message: msgInvalidCredentials, cause: err}
	case errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests:
		// Provider-side validation, e.g. "User already registered".
		return &ActionError{Message: apiErr.Message, cause: err}
	case errors.Is(err, identity.ErrProvider):
		s.logger.Warn("identity provider error",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return &ActionError{Message: msgProviderDown, cause: err}
	}

	s.logger.Error("account action failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	return &ActionError{Message: msgUnexpected, cause: err}
}

// validateCredentials checks email syntax and password length and returns
// the normalized address.
func validateCredentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ActionError{Message: msgInvalidEmail}
	}
	if len(password) < MinPasswordLength {
		return "", &ActionError{Message: msgPasswordTooShort}
	}
	return strings.ToLower(email), nil
}
