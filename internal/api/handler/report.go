package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
	"github.com/valueminer/valueminer/pkg/resend"
)

// ReportHandler serves report preferences and sends.
type ReportHandler struct {
	reportSvc *service.ReportService
	logger    *slog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportSvc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reportSvc: reportSvc,
		logger:    logger,
	}
}

// PreferencesRequest is the request body for PUT /api/report/preferences.
type PreferencesRequest struct {
	Frequency string `json:"frequency" validate:"omitempty,oneof=daily weekly Daily Weekly"`
	TimeOfDay string `json:"time_of_day" validate:"required"`
	DayOfWeek string `json:"day_of_week"`
	Timezone  string `json:"timezone"`
}

// Send handles POST /api/report/send
func (h *ReportHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	if err := h.reportSvc.SendNow(r.Context(), user); err != nil {
		var apiErr *resend.APIError
		switch {
		case errors.Is(err, domain.ErrMissingEmail):
			writeError(w, http.StatusBadRequest, "Missing user email.")
		case errors.Is(err, resend.ErrNotConfigured):
			writeError(w, http.StatusInternalServerError, "Missing RESEND_API_KEY or REPORT_FROM_EMAIL.")
		case errors.As(err, &apiErr):
			writeErrorDetails(w, http.StatusBadGateway, "Failed to send report.", apiErr.Body)
		default:
			h.logger.Error("send report failed", "user_id", user.ID, "error", err)
			writeErrorDetails(w, http.StatusInternalServerError, "Failed to send report.", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// GetPreferences handles GET /api/report/preferences
func (h *ReportHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	pref, err := h.reportSvc.GetPreferences(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("get preferences failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load report preferences.")
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// PutPreferences handles PUT /api/report/preferences
func (h *ReportHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	var req PreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	req.Frequency = strings.TrimSpace(req.Frequency)
	req.TimeOfDay = strings.TrimSpace(req.TimeOfDay)
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Invalid report preferences.", strings.Join(formatValidationErrors(err), "; "))
		return
	}

	pref, err := h.reportSvc.SavePreferences(r.Context(), user, &domain.ReportPreference{
		Frequency: domain.Frequency(req.Frequency),
		TimeOfDay: req.TimeOfDay,
		DayOfWeek: req.DayOfWeek,
		Timezone:  req.Timezone,
	})
	if err != nil {
		if isValidationError(err) {
			writeErrorDetails(w, http.StatusBadRequest, "Invalid report preferences.", err.Error())
			return
		}
		h.logger.Error("save preferences failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save report preferences.")
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// Cron handles POST /api/report/cron
func (h *ReportHandler) Cron(w http.ResponseWriter, r *http.Request) {
	res, err := h.reportSvc.RunDue(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("report run failed", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to run reports.", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}
