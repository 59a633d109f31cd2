package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
)

// ShareHandler serves the public share page and the personalized shortcut.
type ShareHandler struct {
	shareSvc    *service.ShareService
	shortcutSvc *service.ShortcutService
	logger      *slog.Logger
}

// NewShareHandler creates a new share handler.
func NewShareHandler(shareSvc *service.ShareService, shortcutSvc *service.ShortcutService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareSvc:    shareSvc,
		shortcutSvc: shortcutSvc,
		logger:      logger,
	}
}

// Page handles GET /s
func (h *ShareHandler) Page(w http.ResponseWriter, r *http.Request) {
	target, err := service.ParseTarget(r.URL.Query().Get("u"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingShareURL):
			http.Error(w, "Missing share URL.", http.StatusBadRequest)
		case errors.Is(err, service.ErrUnsupportedScheme):
			http.Error(w, "Unsupported URL protocol.", http.StatusBadRequest)
		default:
			http.Error(w, "Invalid share URL.", http.StatusBadRequest)
		}
		return
	}

	page := h.shareSvc.Page(r.Context(), target)

	var buf bytes.Buffer
	if err := h.shareSvc.Render(&buf, page); err != nil {
		h.logger.Error("render share page failed", "error", err)
		http.Error(w, "Failed to render share page.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Shortcut handles GET /api/shortcut
func (h *ShareHandler) Shortcut(w http.ResponseWriter, r *http.Request) {
	data, err := h.shortcutSvc.Build(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingToken):
			writeError(w, http.StatusBadRequest, "Missing token.")
		case errors.Is(err, service.ErrShortcutNotConfigured):
			writeError(w, http.StatusInternalServerError, "Shortcut template URL is not configured.")
		case errors.Is(err, service.ErrShortcutTemplate):
			writeError(w, http.StatusBadGateway, "Failed to load shortcut template.")
		case errors.Is(err, service.ErrShortcutDownloadURL):
			writeError(w, http.StatusBadGateway, "Shortcut download URL not found.")
		case errors.Is(err, service.ErrShortcutDownload):
			writeError(w, http.StatusBadGateway, "Unable to download shortcut file.")
		default:
			h.logger.Error("build shortcut failed", "error", err)
			writeErrorDetails(w, http.StatusInternalServerError, "Failed to generate shortcut.", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=ValueMiner.shortcut")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
