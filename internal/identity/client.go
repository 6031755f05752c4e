package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second
	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20
	// getUserAttempts is how many times an idempotent user lookup is tried.
	getUserAttempts = 3
)

// Config configures the HTTP provider client.
type Config struct {
	// BaseURL is the provider root, e.g. https://xyz.supabase.co.
	BaseURL string
	// PublicKey is the provider's public (anon) API key sent as "apikey".
	PublicKey string
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
	// RetryDelay is the base delay between user lookup retries.
	RetryDelay time.Duration
}

// Client implements Provider over HTTP.
type Client struct {
	baseURL    string
	publicKey  string
	http       *http.Client
	retryDelay time.Duration
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: timeout,
				MaxIdleConns:          50,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 200 * time.Millisecond
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		publicKey:  cfg.PublicKey,
		http:       httpClient,
		retryDelay: retryDelay,
	}
}

// tokenResponse is the body of /token and of sign-up when a session is issued.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

func (t *tokenResponse) session(now time.Time) *Session {
	expiresAt := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	if t.ExpiresAt > 0 {
		expiresAt = time.Unix(t.ExpiresAt, 0)
	}
	return &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         t.User,
	}
}

// errorResponse covers both GoTrue error shapes.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// SignInWithPassword exchanges an email/password pair for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &tok, ErrInvalidCredentials); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" || tok.User.ID == "" {
		return nil, fmt.Errorf("%w: login response missing session", ErrProvider)
	}

	return tok.session(time.Now()), nil
}

// SignUp registers a new account. The provider returns either a session or,
// when email confirmation is on, just the user.
func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	body := map[string]string{"email": email, "password": password}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &raw, ErrProvider); err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err == nil && tok.AccessToken != "" {
		if tok.User.ID == "" {
			return nil, fmt.Errorf("%w: sign-up response missing user", ErrProvider)
		}
		return &SignUpResult{User: tok.User, Session: tok.session(time.Now())}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == "" {
		return nil, fmt.Errorf("%w: sign-up response missing user", ErrProvider)
	}

	return &SignUpResult{User: user}, nil
}

// GetUser returns the account behind an access token. Transport failures and
// 5xx responses are retried; token rejections are not.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	var user User
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user, ErrInvalidToken)
		},
		retry.Context(ctx),
		retry.Attempts(getUserAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user response missing id", ErrProvider)
	}

	return &user, nil
}

// RefreshSession rotates a refresh token into a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	body := map[string]string{"refresh_token": refreshToken}

	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &tok, ErrInvalidToken); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing session", ErrProvider)
	}

	return tok.session(time.Now()), nil
}

// SignOut revokes the session behind accessToken. An already-invalid token
// counts as signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil, ErrInvalidToken)
	if errors.Is(err, ErrInvalidToken) {
		return nil
	}
	return err
}

// do sends one request. clientErr is the sentinel used for 4xx responses.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any, clientErr error) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrProvider, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.publicKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &transportError{err: err}
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, data, clientErr)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	return nil
}

func parseAPIError(status int, data []byte, clientErr error) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status), kind: ErrProvider}
	if status < 500 {
		apiErr.kind = clientErr
	}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = firstNonEmpty(body.ErrorCode, body.Error, codeString(body.Code))
		if msg := firstNonEmpty(body.Msg, body.ErrorDescription, body.Message); msg != "" {
			apiErr.Message = msg
		}
	}

	// 429 is a provider-side condition rather than bad input.
	if status == http.StatusTooManyRequests {
		apiErr.kind = ErrProvider
	}

	return apiErr
}

// transportError marks network-level failures as retryable.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%v: %v", ErrProvider, e.err)
}

func (e *transportError) Unwrap() []error {
	return []error{ErrProvider, e.err}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return false
}

// codeString accepts the string form of "code"; newer providers send an
// HTTP status number there instead.
func codeString(v any) string {
	if c, ok := v.(string); ok {
		return c
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
