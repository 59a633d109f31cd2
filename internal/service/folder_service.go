package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
)

// FolderService handles folder business logic.
type FolderService struct {
	repo   repository.FolderRepository
	logger *slog.Logger
}

// NewFolderService creates a new folder service.
func NewFolderService(repo repository.FolderRepository, logger *slog.Logger) *FolderService {
	return &FolderService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the user's folders deduped by name and sorted with Other last.
func (s *FolderService) List(ctx context.Context, userID string) ([]*domain.Folder, error) {
	folders, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return domain.SortFolders(folders), nil
}

// Get retrieves one of the user's folders.
func (s *FolderService) Get(ctx context.Context, userID string, id domain.FolderID) (*domain.Folder, error) {
	return s.repo.Get(ctx, userID, id)
}

// EnsureDefaults creates the system category folders for a user that has
// none, then returns the sorted folder list.
func (s *FolderService) EnsureDefaults(ctx context.Context, userID string) ([]*domain.Folder, error) {
	folders, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	if len(folders) > 0 {
		return domain.SortFolders(folders), nil
	}

	for _, c := range domain.Categories {
		f := newFolder(userID, string(c), true)
		if err := s.repo.Create(ctx, f); err != nil {
			// A concurrent request may have seeded the same name.
			if errors.Is(err, domain.ErrDuplicateFolder) {
				continue
			}
			return nil, fmt.Errorf("create default folder %s: %w", c, err)
		}
	}
	s.logger.Info("created default folders", "user_id", userID)

	return s.List(ctx, userID)
}

// Create adds a user folder.
func (s *FolderService) Create(ctx context.Context, userID, name string) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyFolderName
	}

	f := newFolder(userID, name, false)
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("created folder", "user_id", userID, "folder_id", f.ID, "name", f.Name)
	return f, nil
}

// Resolve returns the folder for a category, creating a system folder when
// the user has none with that name.
func (s *FolderService) Resolve(ctx context.Context, userID string, category domain.Category) (*domain.Folder, error) {
	folders, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	if f := domain.FindFolder(folders, string(category)); f != nil {
		return f, nil
	}

	f := newFolder(userID, string(category), true)
	err = s.repo.Create(ctx, f)
	if errors.Is(err, domain.ErrDuplicateFolder) {
		folders, err = s.repo.List(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list folders: %w", err)
		}
		if f := domain.FindFolder(folders, string(category)); f != nil {
			return f, nil
		}
		return nil, domain.ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create folder %s: %w", category, err)
	}
	return f, nil
}

func newFolder(userID, name string, system bool) *domain.Folder {
	return &domain.Folder{
		ID:        domain.FolderID(uuid.New().String()),
		UserID:    userID,
		Name:      name,
		IsSystem:  system,
		CreatedAt: time.Now().UTC(),
	}
}
