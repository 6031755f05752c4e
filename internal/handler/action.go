package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/handler/dto"
	"github.com/notebook/notebook/internal/service"
)

const msgInvalidRequest = "Invalid request."

// ActionHandler serves the account actions. Every response is 200 with a
// flat {"errorMessage"} body; null means success.
type ActionHandler struct {
	accounts *service.AccountService
	cookies  auth.CookiePolicy
	logger   *slog.Logger
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(accounts *service.AccountService, cookies auth.CookiePolicy, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		accounts: accounts,
		cookies:  cookies,
		logger:   logger,
	}
}

// Login handles POST /actions/login.
func (h *ActionHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	h.authenticate(w, r, service.LoginRequest{Email: creds.Email, Password: creds.Password})
}

// SignUp handles POST /actions/sign-up.
func (h *ActionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	h.authenticate(w, r, service.SignUpRequest{Email: creds.Email, Password: creds.Password})
}

// LogOut handles POST /actions/logout. Session cookies are cleared even when
// the provider could not revoke the session.
func (h *ActionHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	creds := auth.CredentialsFromRequest(r)
	token := creds.BearerToken
	if token == "" {
		token = creds.AccessToken
	}

	err := h.accounts.LogOut(r.Context(), token)
	auth.ApplyCookies(w, h.cookies.ClearCookies())
	if err != nil {
		writeJSON(w, http.StatusOK, dto.ActionFailed(actionMessage(err)))
		return
	}

	writeJSON(w, http.StatusOK, dto.ActionOK())
}

func (h *ActionHandler) authenticate(w http.ResponseWriter, r *http.Request, req service.AuthRequest) {
	result, err := h.accounts.Authenticate(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusOK, dto.ActionFailed(actionMessage(err)))
		return
	}

	// A sign-up awaiting email confirmation succeeds without a session.
	if sess := result.ProviderSession(); sess != nil {
		auth.ApplyCookies(w, h.cookies.SessionCookies(sess))
	}

	writeJSON(w, http.StatusOK, dto.ActionOK())
}

// decodeCredentials accepts a JSON body or a urlencoded/multipart form.
func (h *ActionHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (dto.CredentialsRequest, bool) {
	var creds dto.CredentialsRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusOK, dto.ActionFailed(msgInvalidRequest))
			return creds, false
		}
		return creds, true
	}

	if err := r.ParseMultipartForm(1 << 16); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("malformed action form",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, dto.ActionFailed(msgInvalidRequest))
		return creds, false
	}
	creds.Email = r.PostFormValue("email")
	creds.Password = r.PostFormValue("password")
	return creds, true
}

// actionMessage extracts the user-readable message of an action failure.
func actionMessage(err error) string {
	var actionErr *service.ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Message
	}
	return "An unexpected error occurred."
}
