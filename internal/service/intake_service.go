package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/youtube"
)

// SubmitResult is the outcome of an intake submission.
type SubmitResult struct {
	Duplicate bool            `json:"duplicate,omitempty"`
	Queued    bool            `json:"queued,omitempty"`
	IntakeID  domain.IntakeID `json:"intakeId,omitempty"`
	ClipID    domain.ClipID   `json:"clipId,omitempty"`
}

// IntakeService runs URLs received by the intake webhook through the
// transcript, summary and storage pipeline.
type IntakeService struct {
	intakes     repository.IntakeRepository
	clips       repository.ClipRepository
	folders     *FolderService
	transcripts TranscriptFetcher
	summarizer  Summarizer
	cfg         config.IntakeConfig
	logger      *slog.Logger
}

// NewIntakeService creates a new intake service.
func NewIntakeService(
	intakes repository.IntakeRepository,
	clips repository.ClipRepository,
	folders *FolderService,
	transcripts TranscriptFetcher,
	summarizer Summarizer,
	cfg config.IntakeConfig,
	logger *slog.Logger,
) *IntakeService {
	return &IntakeService{
		intakes:     intakes,
		clips:       clips,
		folders:     folders,
		transcripts: transcripts,
		summarizer:  summarizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Submit records an intake request for rawURL. Duplicates of a clip the
// user already has are reported without writing anything. In async mode
// the request is left queued for the worker pool.
func (s *IntakeService) Submit(ctx context.Context, userID, rawURL, source string) (*SubmitResult, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, domain.ErrInvalidVideoURL
	}

	logger := s.logger.With("user_id", userID, "video_id", videoID)

	_, err = s.clips.FindByVideo(ctx, userID, videoID)
	if err == nil {
		logger.Info("intake duplicate")
		return &SubmitResult{Duplicate: true}, nil
	}
	if !errors.Is(err, domain.ErrClipNotFound) {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	req := domain.NewIntakeRequest(domain.IntakeID(uuid.New().String()), userID, rawURL, videoID, source)
	if err := s.intakes.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create intake request: %w", err)
	}
	logger.Info("intake queued", "intake_id", req.ID, "source", req.Source)

	if s.cfg.Async {
		return &SubmitResult{Queued: true, IntakeID: req.ID}, nil
	}

	if err := s.Process(ctx, req); err != nil {
		return nil, err
	}
	return &SubmitResult{IntakeID: req.ID, ClipID: req.ClipID}, nil
}

// Process mines one intake request and files the clip. Transcript and
// summarizer failures do not fail the request: the clip is stored with a
// placeholder summary and the error is recorded on the request. Only a
// failed clip insert marks the request as errored.
//
// Cancelling ctx stops mining but not filing: the clip insert and the
// final update run detached from ctx so the request always leaves the
// queued and processing states.
func (s *IntakeService) Process(ctx context.Context, req *domain.IntakeRequest) error {
	logger := s.logger.With("intake_id", req.ID, "user_id", req.UserID, "video_id", req.VideoID)
	start := time.Now()

	mineCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		mineCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	transcript, summary, mineErr := s.mine(mineCtx, req.VideoID)
	errMsg := ""
	if mineErr != nil {
		errMsg = mineErr.Error()
		logger.Warn("filing clip without summary", "error", mineErr)
	}

	fileCtx := context.WithoutCancel(ctx)

	var folderID domain.FolderID
	folder, err := s.folders.Resolve(fileCtx, req.UserID, summary.Category)
	if err != nil {
		logger.Warn("failed to resolve folder", "category", summary.Category, "error", err)
	} else {
		folderID = folder.ID
	}

	clip := domain.NewClip(newClipID(), req.UserID, req.VideoID, transcript, summary, folderID, req.Source)
	if err := s.clips.Create(fileCtx, clip); err != nil {
		req.MarkFailed(err.Error())
		if updateErr := s.intakes.Update(fileCtx, req); updateErr != nil {
			logger.Error("failed to mark intake failed", "error", updateErr)
		}
		return domain.NewIntakeError(req.ID, "create clip", err)
	}

	req.MarkComplete(clip.ID, errMsg)
	if err := s.intakes.Update(fileCtx, req); err != nil {
		return domain.NewIntakeError(req.ID, "update intake", err)
	}

	logger.Info("intake complete",
		"clip_id", clip.ID,
		"category", clip.Category,
		"duration", time.Since(start),
	)
	return nil
}

// Get returns one of the user's intake requests.
func (s *IntakeService) Get(ctx context.Context, userID string, id domain.IntakeID) (*domain.IntakeRequest, error) {
	req, err := s.intakes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, domain.ErrIntakeNotFound
	}
	return req, nil
}

// Stats returns queue statistics.
func (s *IntakeService) Stats(ctx context.Context) (*repository.IntakeStats, error) {
	return s.intakes.Stats(ctx)
}

func (s *IntakeService) mine(ctx context.Context, videoID string) (string, domain.Summary, error) {
	t, err := s.transcripts.Transcript(ctx, videoID, "")
	if err != nil {
		return domain.TranscriptUnavailable, domain.UnavailableSummary(), err
	}
	text := t.PlainText()

	res, err := s.summarizer.Summarize(ctx, openai.SummarizeRequest{
		Transcript: text,
		Categories: domain.CategoryNames(),
	})
	if err != nil {
		return domain.TranscriptUnavailable, domain.UnavailableSummary(), err
	}
	return text, toSummary(res), nil
}
