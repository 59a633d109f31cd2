package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
)

// AccountHandler serves intake tokens and browser sessions.
type AccountHandler struct {
	tokenSvc   *service.TokenService
	sessionSvc *service.SessionService
	logger     *slog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(tokenSvc *service.TokenService, sessionSvc *service.SessionService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		tokenSvc:   tokenSvc,
		sessionSvc: sessionSvc,
		logger:     logger,
	}
}

// SessionRequest is the request body for POST /api/session.
type SessionRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is returned when a session is started or restored.
type SessionResponse struct {
	Success     bool         `json:"success"`
	AccessToken string       `json:"accessToken,omitempty"`
	ExpiresAt   int64        `json:"expiresAt,omitempty"`
	User        *domain.User `json:"user,omitempty"`
}

// IssueToken handles POST /api/tokens
func (h *AccountHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	issued, err := h.tokenSvc.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue token failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create token.")
		return
	}

	writeJSON(w, http.StatusOK, issued)
}

// StartSession handles POST /api/session
func (h *AccountHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	// A malformed body is treated as a missing refresh token.
	_ = decodeJSON(r, &req)

	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "Missing refresh token.")
		return
	}

	session, cookie, err := h.sessionSvc.Start(r.Context(), req.RefreshToken)
	if err != nil {
		if !service.IsUnauthorized(err) {
			h.logger.Error("start session failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}

	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, SessionResponse{Success: true, User: &session.User})
}

// RestoreSession handles GET /api/session
func (h *AccountHandler) RestoreSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.sessionSvc.CookieName())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "No session.")
		return
	}

	session, next, err := h.sessionSvc.Restore(r.Context(), cookie)
	if err != nil {
		if !service.IsUnauthorized(err) {
			h.logger.Error("restore session failed", "error", err)
		}
		http.SetCookie(w, h.sessionSvc.ClearCookie())
		writeError(w, http.StatusUnauthorized, "Invalid session.")
		return
	}

	http.SetCookie(w, next)
	writeJSON(w, http.StatusOK, SessionResponse{
		Success:     true,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
		User:        &session.User,
	})
}

// EndSession handles DELETE /api/session
func (h *AccountHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionSvc.ClearCookie())
	writeJSON(w, http.StatusOK, SessionResponse{Success: true})
}

// isValidationError reports whether err is a user input error from the
// domain layer.
func isValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidFrequency,
		domain.ErrInvalidTimeOfDay,
		domain.ErrInvalidDayOfWeek,
		domain.ErrInvalidTimezone,
		domain.ErrEmptyFolderName,
		domain.ErrInvalidVideoURL,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
