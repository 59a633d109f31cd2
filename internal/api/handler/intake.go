package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
)

// IntakeHandler serves the Share Sheet webhook.
type IntakeHandler struct {
	intakeSvc *service.IntakeService
	logger    *slog.Logger
}

// NewIntakeHandler creates a new intake handler.
func NewIntakeHandler(intakeSvc *service.IntakeService, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{
		intakeSvc: intakeSvc,
		logger:    logger,
	}
}

// IntakeResponse is the response body for POST /api/intake/youtube.
type IntakeResponse struct {
	Success   bool            `json:"success"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Queued    bool            `json:"queued,omitempty"`
	IntakeID  domain.IntakeID `json:"intakeId,omitempty"`
	ClipID    domain.ClipID   `json:"clipId,omitempty"`
}

// YouTube handles POST /api/intake/youtube
func (h *IntakeHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing url.")
		return
	}

	rawURL, source := parseIntakeBody(raw)
	if rawURL == "" {
		h.logger.Warn("intake missing url", "user_id", user.ID, "body_preview", preview(raw, 200))
		writeError(w, http.StatusBadRequest, "Missing url.")
		return
	}

	result, err := h.intakeSvc.Submit(r.Context(), user.ID, rawURL, source)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidVideoURL) {
			writeError(w, http.StatusBadRequest, "Invalid YouTube URL.")
			return
		}
		h.logger.Error("intake failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, IntakeResponse{
		Success:   true,
		Duplicate: result.Duplicate,
		Queued:    result.Queued,
		IntakeID:  result.IntakeID,
		ClipID:    result.ClipID,
	})
}

// Status handles GET /api/intake/{intakeID}
func (h *IntakeHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	id := domain.IntakeID(chi.URLParam(r, "intakeID"))
	req, err := h.intakeSvc.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, domain.ErrIntakeNotFound) {
			writeError(w, http.StatusNotFound, "Intake request not found.")
			return
		}
		h.logger.Error("intake status failed", "intake_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load intake request.")
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// parseIntakeBody finds the shared URL in whatever the Share Sheet posted:
// a JSON string, an object or array holding url/URL/href/link, or plain text.
func parseIntakeBody(raw []byte) (rawURL, source string) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", ""
	}

	var body interface{}
	if err := json.Unmarshal([]byte(trimmed), &body); err != nil {
		// Shortcuts can post the URL as plain text.
		if strings.ContainsAny(trimmed, " \t\n{}[]") {
			return "", ""
		}
		return trimmed, ""
	}

	if obj, ok := body.(map[string]interface{}); ok {
		if s, ok := obj["source"].(string); ok {
			source = strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(pickURL(body)), source
}

func pickURL(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		if len(val) == 0 {
			return ""
		}
		return pickURL(val[0])
	case map[string]interface{}:
		for _, key := range []string{"url", "URL", "href", "link"} {
			if next, ok := val[key]; ok && next != nil {
				return pickURL(next)
			}
		}
	}
	return ""
}

func preview(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
