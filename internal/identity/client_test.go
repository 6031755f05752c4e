package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL,
		PublicKey:  "anon-key",
		Timeout:    2 * time.Second,
		RetryDelay: time.Millisecond,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SignInWithPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("expected apikey header, got %q", r.Header.Get("apikey"))
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@x.com" || body["password"] != "pw123456" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "a@x.com"},
		})
	})

	sess, err := client.SignInWithPassword(context.Background(), "a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.AccessToken != "access-1" || sess.RefreshToken != "refresh-1" {
		t.Errorf("unexpected tokens: %+v", sess)
	}
	if sess.User.ID != "user-1" || sess.User.Email != "a@x.com" {
		t.Errorf("unexpected user: %+v", sess.User)
	}
	if time.Until(sess.ExpiresAt) < 50*time.Minute {
		t.Errorf("expected expiry about an hour out, got %v", sess.ExpiresAt)
	}

	_, err = client.SignInWithPassword(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid login credentials" {
		t.Errorf("expected provider message to be preserved, got %v", err)
	}
}

func TestClient_SignUp_WithAndWithoutSession(t *testing.T) {
	var confirm atomic.Bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if confirm.Load() {
			writeJSON(w, http.StatusOK, map[string]string{"id": "user-2", "email": "b@x.com"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"expires_at":    time.Now().Add(time.Hour).Unix(),
			"user":          map[string]string{"id": "user-2", "email": "b@x.com"},
		})
	})

	res, err := client.SignUp(context.Background(), "b@x.com", "pw123456")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.Session == nil || res.Session.AccessToken != "access-2" {
		t.Fatalf("expected session, got %+v", res)
	}

	confirm.Store(true)
	res, err = client.SignUp(context.Background(), "b@x.com", "pw123456")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.Session != nil {
		t.Errorf("expected no session when confirmation is required")
	}
	if res.User.ID != "user-2" {
		t.Errorf("expected user-2, got %q", res.User.ID)
	}
}

func TestClient_SignUp_ProviderRejects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":       422,
			"error_code": "user_already_exists",
			"msg":        "User already registered",
		})
	})

	_, err := client.SignUp(context.Background(), "b@x.com", "pw123456")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "user_already_exists" || apiErr.Message != "User already registered" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestClient_GetUser_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "user-1", "email": "a@x.com"})
	})

	user, err := client.GetUser(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %q", user.ID)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_GetUser_DoesNotRetryRejectedToken(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
	})

	_, err := client.GetUser(context.Background(), "expired")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestClient_GetUser_EmptyToken(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.GetUser(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url, RetryDelay: time.Millisecond})
	_, err := client.SignInWithPassword(context.Background(), "a@x.com", "pw123456")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("transport failure must not look like bad credentials")
	}
}

func TestClient_RefreshSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant type %q", r.URL.Query().Get("grant_type"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "a@x.com"},
		})
	})

	sess, err := client.RefreshSession(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sess.RefreshToken != "refresh-2" {
		t.Errorf("expected rotated refresh token, got %q", sess.RefreshToken)
	}

	if _, err := client.RefreshSession(context.Background(), "stale"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClient_SignOut(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNoContent)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/logout" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	})

	if err := client.SignOut(context.Background(), "access-1"); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	status.Store(http.StatusUnauthorized)
	if err := client.SignOut(context.Background(), "access-1"); err != nil {
		t.Fatalf("expected already-invalid session to count as signed out, got %v", err)
	}

	status.Store(http.StatusInternalServerError)
	if err := client.SignOut(context.Background(), "access-1"); !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}
