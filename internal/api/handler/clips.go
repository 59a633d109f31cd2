package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
)

// ClipHandler handles clip and folder endpoints.
type ClipHandler struct {
	clipSvc   *service.ClipService
	folderSvc *service.FolderService
	logger    *slog.Logger
}

// NewClipHandler creates a new clip handler.
func NewClipHandler(clipSvc *service.ClipService, folderSvc *service.FolderService, logger *slog.Logger) *ClipHandler {
	return &ClipHandler{
		clipSvc:   clipSvc,
		folderSvc: folderSvc,
		logger:    logger,
	}
}

// MineRequest is the request body for POST /api/clips.
type MineRequest struct {
	URL  string `json:"url" validate:"required"`
	Lang string `json:"lang"`
}

// MoveRequest is the request body for PATCH /api/clips/{clipID}/folder.
type MoveRequest struct {
	FolderID string `json:"folderId" validate:"required"`
}

// FolderRequest is the request body for POST /api/folders.
type FolderRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// List handles GET /api/clips
func (h *ClipHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	folderID := domain.FolderID(r.URL.Query().Get("folder"))
	clips, err := h.clipSvc.List(r.Context(), user.ID, folderID)
	if err != nil {
		h.logger.Error("list clips failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load clips.")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Items: clips, Count: len(clips)})
}

// Mine handles POST /api/clips
func (h *ClipHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	var req MineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing YouTube URL.", strings.Join(formatValidationErrors(err), "; "))
		return
	}

	clip, err := h.clipSvc.Mine(r.Context(), user.ID, req.URL, req.Lang)
	if err != nil {
		var mineErr *service.MineError
		switch {
		case errors.Is(err, domain.ErrInvalidVideoURL):
			writeError(w, http.StatusBadRequest, "Unable to parse a valid YouTube video ID.")
		case errors.As(err, &mineErr) && mineErr.Stage == service.StageTranscript:
			writeTranscriptError(w, h.logger, err)
		case errors.As(err, &mineErr) && mineErr.Stage == service.StageAnalyze:
			writeAnalyzeError(w, h.logger, err)
		default:
			h.logger.Error("mine failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save clip.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, clip)
}

// Move handles PATCH /api/clips/{clipID}/folder
func (h *ClipHandler) Move(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	var req MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing folder.", strings.Join(formatValidationErrors(err), "; "))
		return
	}

	clipID := domain.ClipID(chi.URLParam(r, "clipID"))
	clip, err := h.clipSvc.Move(r.Context(), user.ID, clipID, domain.FolderID(req.FolderID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrClipNotFound):
			writeError(w, http.StatusNotFound, "Clip not found.")
		case errors.Is(err, domain.ErrFolderNotFound):
			writeError(w, http.StatusNotFound, "Folder not found.")
		default:
			h.logger.Error("move clip failed", "user_id", user.ID, "clip_id", clipID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to move clip.")
		}
		return
	}

	writeJSON(w, http.StatusOK, clip)
}

// ListFolders handles GET /api/folders. First-time users get the default
// category folders.
func (h *ClipHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	folders, err := h.folderSvc.EnsureDefaults(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list folders failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load folders.")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Items: folders, Count: len(folders)})
}

// CreateFolder handles POST /api/folders
func (h *ClipHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	var req FolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Invalid folder name.", strings.Join(formatValidationErrors(err), "; "))
		return
	}

	folder, err := h.folderSvc.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateFolder):
			writeError(w, http.StatusConflict, "Folder already exists.")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, "Invalid folder name.")
		default:
			h.logger.Error("create folder failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create folder.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}
