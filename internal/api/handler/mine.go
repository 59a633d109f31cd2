package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/service"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

// MineHandler serves the stateless transcript and analyze endpoints used by
// the web form.
type MineHandler struct {
	clipSvc *service.ClipService
	logger  *slog.Logger
}

// NewMineHandler creates a new mine handler.
func NewMineHandler(clipSvc *service.ClipService, logger *slog.Logger) *MineHandler {
	return &MineHandler{
		clipSvc: clipSvc,
		logger:  logger,
	}
}

// TranscriptRequest is the request body for POST /api/transcript.
type TranscriptRequest struct {
	URL  string `json:"url" validate:"required"`
	Lang string `json:"lang"`
}

// TranscriptResponse is the response body for POST /api/transcript.
// Transcript holds the segment list or the plain text, whichever the
// provider returned.
type TranscriptResponse struct {
	VideoID        string      `json:"videoId"`
	Transcript     interface{} `json:"transcript"`
	Language       string      `json:"language,omitempty"`
	TranscriptType string      `json:"transcriptType,omitempty"`
	Source         string      `json:"source"`
}

// AnalyzeRequest is the request body for POST /api/analyze. Transcript is
// accepted as an alias of Text.
type AnalyzeRequest struct {
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

// Transcript handles POST /api/transcript
func (h *MineHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing YouTube URL.", strings.Join(formatValidationErrors(err), "; "))
		return
	}

	t, err := h.clipSvc.Transcript(r.Context(), req.URL, req.Lang)
	if err != nil {
		writeTranscriptError(w, h.logger, err)
		return
	}

	var body interface{} = t.Text
	if len(t.Segments) > 0 {
		body = t.Segments
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{
		VideoID:        t.VideoID,
		Transcript:     body,
		Language:       t.Language,
		TranscriptType: t.Type,
		Source:         "searchapi",
	})
}

func writeTranscriptError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *searchapi.APIError
	switch {
	case errors.Is(err, domain.ErrInvalidVideoURL):
		writeError(w, http.StatusBadRequest, "Unable to parse a valid YouTube video ID.")
	case errors.Is(err, searchapi.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, "Missing SEARCHAPI_KEY server configuration.")
	case errors.Is(err, searchapi.ErrNoTranscript):
		writeError(w, http.StatusNotFound, "Transcript not available for this video.")
	case errors.As(err, &apiErr):
		writeErrorDetails(w, apiErr.StatusCode, "SearchAPI request failed.", apiErr.Body)
	default:
		logger.Error("transcript fetch failed", "error", err)
		writeErrorDetails(w, http.StatusBadGateway, "SearchAPI request failed.", err.Error())
	}
}

// Analyze handles POST /api/analyze
func (h *MineHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Transcript)
	}
	if text == "" {
		writeError(w, http.StatusBadRequest, "Missing transcript text.")
		return
	}

	summary, err := h.clipSvc.Analyze(r.Context(), text)
	if err != nil {
		writeAnalyzeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeAnalyzeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *openai.APIError
	var contentErr *openai.ContentError
	switch {
	case errors.Is(err, openai.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, "Missing OPENAI_API_KEY server configuration.")
	case errors.As(err, &apiErr):
		writeErrorDetails(w, apiErr.StatusCode, "OpenAI request failed.", apiErr.Body)
	case errors.As(err, &contentErr) && errors.Is(err, openai.ErrInvalidJSON):
		writeErrorDetails(w, http.StatusBadGateway, "OpenAI returned invalid JSON.", contentErr.Content)
	case errors.As(err, &contentErr) && errors.Is(err, openai.ErrIncomplete):
		writeErrorDetails(w, http.StatusBadGateway, "OpenAI returned an incomplete response.", contentErr.Content)
	default:
		logger.Error("analyze failed", "error", err)
		writeErrorDetails(w, http.StatusBadGateway, "OpenAI request failed.", err.Error())
	}
}
