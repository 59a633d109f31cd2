package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/searchapi"
	"github.com/valueminer/valueminer/pkg/youtube"
)

// Mining stages reported by MineError.
const (
	StageTranscript = "transcript"
	StageAnalyze    = "analyze"
)

// MineError tags a Mine failure with the stage that failed.
type MineError struct {
	Stage string
	Err   error
}

func (e *MineError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *MineError) Unwrap() error {
	return e.Err
}

// ClipService handles the web mining flow and clip management.
type ClipService struct {
	clips       repository.ClipRepository
	folders     *FolderService
	transcripts TranscriptFetcher
	summarizer  Summarizer
	logger      *slog.Logger
}

// NewClipService creates a new clip service.
func NewClipService(
	clips repository.ClipRepository,
	folders *FolderService,
	transcripts TranscriptFetcher,
	summarizer Summarizer,
	logger *slog.Logger,
) *ClipService {
	return &ClipService{
		clips:       clips,
		folders:     folders,
		transcripts: transcripts,
		summarizer:  summarizer,
		logger:      logger,
	}
}

// Transcript extracts the video ID from rawURL and fetches its transcript.
func (s *ClipService) Transcript(ctx context.Context, rawURL, lang string) (*searchapi.Transcript, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, domain.ErrInvalidVideoURL
	}

	t, err := s.transcripts.Transcript(ctx, videoID, strings.TrimSpace(lang))
	if err != nil {
		return nil, fmt.Errorf("fetch transcript %s: %w", videoID, err)
	}
	t.VideoID = videoID
	return t, nil
}

// Analyze summarizes text and rejects incomplete replies.
func (s *ClipService) Analyze(ctx context.Context, text string) (*domain.Summary, error) {
	res, err := s.summarizer.Summarize(ctx, openai.SummarizeRequest{
		Transcript: text,
		Categories: domain.CategoryNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	summary := toSummary(res)
	return &summary, nil
}

// Mine runs the web form flow: transcript, strict summary, folder and clip.
func (s *ClipService) Mine(ctx context.Context, userID, rawURL, lang string) (*domain.Clip, error) {
	t, err := s.Transcript(ctx, rawURL, lang)
	if err != nil {
		return nil, &MineError{Stage: StageTranscript, Err: err}
	}
	text := t.PlainText()

	summary, err := s.Analyze(ctx, text)
	if err != nil {
		return nil, &MineError{Stage: StageAnalyze, Err: err}
	}

	folder, err := s.folders.Resolve(ctx, userID, summary.Category)
	if err != nil {
		return nil, err
	}

	clip := domain.NewClip(newClipID(), userID, t.VideoID, text, *summary, folder.ID, domain.SourceWeb)
	if err := s.clips.Create(ctx, clip); err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}

	s.logger.Info("mined clip",
		"user_id", userID,
		"clip_id", clip.ID,
		"video_id", clip.VideoID,
		"category", clip.Category,
	)
	return clip, nil
}

// List returns the user's clips newest first, optionally limited to one folder.
func (s *ClipService) List(ctx context.Context, userID string, folderID domain.FolderID) ([]*domain.Clip, error) {
	return s.clips.List(ctx, userID, repository.ClipFilter{FolderID: folderID})
}

// Move refiles a clip into another of the user's folders. The clip category
// follows the folder name when it is an allowed category.
func (s *ClipService) Move(ctx context.Context, userID string, clipID domain.ClipID, folderID domain.FolderID) (*domain.Clip, error) {
	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	clip, err := s.clips.Get(ctx, userID, clipID)
	if err != nil {
		return nil, err
	}

	category := domain.NormalizeCategory(folder.Name)
	if err := s.clips.UpdateFolder(ctx, userID, clipID, folder.ID, category); err != nil {
		return nil, fmt.Errorf("move clip: %w", err)
	}

	clip.FolderID = folder.ID
	clip.Category = category
	s.logger.Info("moved clip", "user_id", userID, "clip_id", clipID, "folder_id", folder.ID)
	return clip, nil
}

func toSummary(res *openai.Result) domain.Summary {
	return domain.Summary{
		Analysis:   res.Analysis,
		ActionPlan: res.ActionPlan,
		Category:   domain.NormalizeCategory(res.Category),
	}
}

func newClipID() domain.ClipID {
	return domain.ClipID(uuid.New().String())
}
