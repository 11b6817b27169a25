package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diawise/diawise/internal/auth"
)

// authHandler serves account registration, login, and session state.
type authHandler struct {
	users    *auth.Store
	sessions *sessionManager
	logger   *slog.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// register handles POST /api/v1/auth/register.
func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			WriteError(w, http.StatusConflict, "username_taken", "username already taken", h.logger)
		case errors.Is(err, auth.ErrEmailTaken):
			WriteError(w, http.StatusConflict, "email_taken", "email already registered", h.logger)
		case errors.Is(err, auth.ErrUsernameRequired):
			WriteError(w, http.StatusBadRequest, "username_required", "username is required", h.logger)
		case errors.Is(err, auth.ErrPasswordTooShort):
			WriteError(w, http.StatusBadRequest, "password_too_short", err.Error(), h.logger)
		default:
			h.logger.Error("registering user", "error", err)
			WriteError(w, http.StatusInternalServerError, "register_failed", "failed to create account", h.logger)
		}
		return
	}

	h.sessions.setUserCookie(w, user.ID)
	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":      user,
		"csrfToken": h.sessions.NewCSRFToken(user.ID),
	}, h.logger)
}

// login handles POST /api/v1/auth/login.
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password", h.logger)
			return
		}
		h.logger.Error("authenticating user", "error", err)
		WriteError(w, http.StatusInternalServerError, "login_failed", "failed to log in", h.logger)
		return
	}

	h.sessions.setUserCookie(w, user.ID)
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"csrfToken": h.sessions.NewCSRFToken(user.ID),
	}, h.logger)
}

// logout handles POST /api/v1/auth/logout.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.clearUserCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"}, h.logger)
}

// me handles GET /api/v1/auth/me.
func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "not logged in", h.logger)
		return
	}

	user, err := h.users.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Account deleted since the cookie was issued.
			h.sessions.clearUserCookie(w)
			WriteError(w, http.StatusUnauthorized, "unauthorized", "not logged in", h.logger)
			return
		}
		h.logger.Error("loading current user", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "me_failed", "failed to load account", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": user}, h.logger)
}

// requireUser extracts the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "login required", logger)
		return 0, false
	}
	return userID, true
}
