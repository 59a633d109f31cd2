package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/report"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/pkg/resend"
)

// RunResult summarizes one pass over the scheduled reports.
type RunResult struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// ReportService manages report preferences and sends report emails.
type ReportService struct {
	reports  repository.ReportRepository
	users    repository.UserRepository
	clips    repository.ClipRepository
	mailer   Mailer
	topClips int
	logger   *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	reports repository.ReportRepository,
	users repository.UserRepository,
	clips repository.ClipRepository,
	mailer Mailer,
	topClips int,
	logger *slog.Logger,
) *ReportService {
	if topClips <= 0 {
		topClips = report.DefaultTopClips
	}
	return &ReportService{
		reports:  reports,
		users:    users,
		clips:    clips,
		mailer:   mailer,
		topClips: topClips,
		logger:   logger,
	}
}

// GetPreferences returns the user's schedule, or the default schedule when
// none was saved.
func (s *ReportService) GetPreferences(ctx context.Context, userID string) (*domain.ReportPreference, error) {
	pref, err := s.reports.GetPreference(ctx, userID)
	if errors.Is(err, domain.ErrPreferenceNotFound) {
		return domain.DefaultReportPreference(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return pref, nil
}

// SavePreferences validates and stores the user's schedule. The user row is
// refreshed too so the scheduler can address the email.
func (s *ReportService) SavePreferences(ctx context.Context, user *domain.User, pref *domain.ReportPreference) (*domain.ReportPreference, error) {
	freq, err := domain.ParseFrequency(string(pref.Frequency))
	if err != nil {
		return nil, err
	}
	pref.Frequency = freq
	pref.UserID = user.ID
	pref.Normalize()
	if err := pref.Validate(); err != nil {
		return nil, err
	}
	pref.UpdatedAt = time.Now().UTC()

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if err := s.reports.UpsertPreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}

	s.logger.Info("saved report preference",
		"user_id", user.ID,
		"frequency", pref.Frequency,
		"time_of_day", pref.TimeOfDay,
		"timezone", pref.Timezone,
	)
	return pref, nil
}

// SendNow emails the scroll report for the user's configured period.
func (s *ReportService) SendNow(ctx context.Context, user *domain.User) error {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return domain.ErrMissingEmail
	}

	pref, err := s.GetPreferences(ctx, user.ID)
	if err != nil {
		return err
	}

	clips, err := s.periodClips(ctx, user.ID, pref.Frequency, time.Now())
	if err != nil {
		return err
	}

	html, err := report.BuildScrollReport(pref.Frequency, email, clips)
	if err != nil {
		return err
	}

	id, err := s.mailer.Send(ctx, resend.Email{
		To:      email,
		Subject: report.Subject(pref.Frequency),
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	s.logger.Info("sent scroll report", "user_id", user.ID, "clips", len(clips), "email_id", id)
	return nil
}

// RunDue sends the digest to every user whose schedule is due at now.
// A failure for one user is logged and counted; the run continues.
func (s *ReportService) RunDue(ctx context.Context, now time.Time) (*RunResult, error) {
	targets, err := s.reports.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list report targets: %w", err)
	}

	result := &RunResult{}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if strings.TrimSpace(t.Email) == "" || !report.IsDue(t.Preference, now) {
			continue
		}
		result.Due++

		logger := s.logger.With("user_id", t.Preference.UserID, "frequency", t.Preference.Frequency)
		if err := s.sendDigest(ctx, t, now); err != nil {
			result.Failed++
			logger.Error("failed to send digest", "error", err)
			continue
		}
		if err := s.reports.MarkSent(ctx, t.Preference.UserID, now.UTC()); err != nil {
			result.Failed++
			logger.Error("failed to record digest send", "error", err)
			continue
		}
		result.Sent++
		logger.Info("sent digest")
	}

	s.logger.Info("report run finished",
		"targets", len(targets),
		"due", result.Due,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ReportService) sendDigest(ctx context.Context, t repository.ReportTarget, now time.Time) error {
	freq := t.Preference.Frequency
	if freq == "" {
		freq = domain.FrequencyDaily
	}

	clips, err := s.periodClips(ctx, t.Preference.UserID, freq, now)
	if err != nil {
		return err
	}

	html, err := report.BuildDigest(freq, t.Email, clips, s.topClips)
	if err != nil {
		return err
	}

	_, err = s.mailer.Send(ctx, resend.Email{
		To:      t.Email,
		Subject: report.Subject(freq),
		HTML:    html,
	})
	return err
}

func (s *ReportService) periodClips(ctx context.Context, userID string, freq domain.Frequency, now time.Time) ([]*domain.Clip, error) {
	clips, err := s.clips.List(ctx, userID, repository.ClipFilter{
		Since: report.PeriodStart(freq, now),
	})
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	return clips, nil
}
