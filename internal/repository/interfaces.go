package repository

import (
	"context"
	"time"

	"github.com/valueminer/valueminer/internal/domain"
)

// ClipRepository handles mined clip persistence.
type ClipRepository interface {
	// Create inserts a new clip.
	Create(ctx context.Context, clip *domain.Clip) error

	// Get retrieves a clip owned by userID.
	Get(ctx context.Context, userID string, id domain.ClipID) (*domain.Clip, error)

	// FindByVideo returns the user's clip for a video, or ErrClipNotFound.
	FindByVideo(ctx context.Context, userID, videoID string) (*domain.Clip, error)

	// List returns the user's clips, newest first.
	List(ctx context.Context, userID string, filter ClipFilter) ([]*domain.Clip, error)

	// UpdateFolder refiles a clip.
	UpdateFolder(ctx context.Context, userID string, id domain.ClipID, folderID domain.FolderID, category domain.Category) error
}

// ClipFilter narrows ClipRepository.List. Zero values match everything.
type ClipFilter struct {
	FolderID domain.FolderID
	Since    time.Time
	Limit    int
}

// FolderRepository handles folder persistence.
type FolderRepository interface {
	// List returns every folder owned by userID.
	List(ctx context.Context, userID string) ([]*domain.Folder, error)

	// Get retrieves a folder owned by userID.
	Get(ctx context.Context, userID string, id domain.FolderID) (*domain.Folder, error)

	// Create inserts a folder. Names are unique per user ignoring case;
	// a clash returns ErrDuplicateFolder.
	Create(ctx context.Context, folder *domain.Folder) error
}

// IntakeRepository manages intake requests and doubles as the work queue.
type IntakeRepository interface {
	// Create inserts a queued request.
	Create(ctx context.Context, req *domain.IntakeRequest) error

	// Get retrieves a request by ID.
	Get(ctx context.Context, id domain.IntakeID) (*domain.IntakeRequest, error)

	// Update writes status, error, clip and processed time.
	Update(ctx context.Context, req *domain.IntakeRequest) error

	// ClaimNext moves the oldest queued request to processing and returns
	// it, or ErrNoIntakeRequests when the queue is empty.
	ClaimNext(ctx context.Context) (*domain.IntakeRequest, error)

	// RequeueProcessing moves every processing request back to queued and
	// returns how many moved.
	RequeueProcessing(ctx context.Context) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*IntakeStats, error)
}

// IntakeStats contains intake queue statistics.
type IntakeStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Failed     int `json:"failed"`
}

// TokenRepository stores hashed intake tokens.
type TokenRepository interface {
	// Create inserts a token.
	Create(ctx context.Context, token *domain.APIToken) error

	// FindByHash returns the active token with the given hash, or ErrTokenNotFound.
	FindByHash(ctx context.Context, hash string) (*domain.APIToken, error)

	// RevokeActive revokes every active token of userID.
	RevokeActive(ctx context.Context, userID string, at time.Time) error

	// Rotate revokes the active tokens of token.UserID and inserts token
	// as one unit. At most one token per user is active afterwards.
	Rotate(ctx context.Context, token *domain.APIToken, at time.Time) error
}

// ReportTarget is a report preference with its user's email.
type ReportTarget struct {
	Preference *domain.ReportPreference
	Email      string
}

// ReportRepository stores report preferences.
type ReportRepository interface {
	// GetPreference returns the user's preference, or ErrPreferenceNotFound.
	GetPreference(ctx context.Context, userID string) (*domain.ReportPreference, error)

	// UpsertPreference inserts or replaces the user's preference.
	UpsertPreference(ctx context.Context, pref *domain.ReportPreference) error

	// ListTargets returns every preference joined with its user's email.
	ListTargets(ctx context.Context) ([]ReportTarget, error)

	// MarkSent records a successful send.
	MarkSent(ctx context.Context, userID string, at time.Time) error
}

// UserRepository mirrors authenticated users so reports can find emails.
type UserRepository interface {
	// Upsert inserts the user or updates the email.
	Upsert(ctx context.Context, user *domain.User) error

	// Get retrieves a user, or ErrUserNotFound.
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Clips() ClipRepository
	Folders() FolderRepository
	Intakes() IntakeRepository
	Tokens() TokenRepository
	Reports() ReportRepository
	Users() UserRepository

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
