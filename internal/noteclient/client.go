// Package noteclient calls the note-resolution endpoints over HTTP on behalf
// of the request router.
package noteclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notebook/notebook/internal/auth"
)

const maxResponseBytes = 64 << 10

var (
	// ErrTransport covers connection failures and timeouts.
	ErrTransport = errors.New("note endpoint unreachable")
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("note endpoint returned unexpected status")
)

// StatusError carries the status of a non-2xx response.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client resolves notes through /api/fetch-newest-note and /api/create-new-note.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the app at baseURL. A nil httpClient gets one
// bounded by timeout; callers still pass per-call deadlines through ctx.
func New(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// NewestNoteID returns the caller's newest note id; found is false when the
// caller has no notes.
func (c *Client) NewestNoteID(ctx context.Context, sess *auth.Session) (string, bool, error) {
	var body struct {
		NewestNoteID *string `json:"newestNoteId"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/fetch-newest-note", sess, &body); err != nil {
		return "", false, err
	}
	if body.NewestNoteID == nil || *body.NewestNoteID == "" {
		return "", false, nil
	}
	return *body.NewestNoteID, true, nil
}

// CreateNote creates an empty note for the caller and returns its id.
func (c *Client) CreateNote(ctx context.Context, sess *auth.Session) (string, error) {
	var body struct {
		NoteID string `json:"noteId"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/create-new-note", sess, &body); err != nil {
		return "", err
	}
	if body.NoteID == "" {
		return "", fmt.Errorf("%w: create-new-note returned no id", ErrUnexpectedStatus)
	}
	return body.NoteID, nil
}

func (c *Client) call(ctx context.Context, method, path string, sess *auth.Session, out any) error {
	if sess == nil || sess.AccessToken == "" {
		return auth.ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &StatusError{Endpoint: path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrTransport, path, err)
	}

	return nil
}
