package service

import (
	"context"
	"errors"
	"testing"

	"github.com/valueminer/valueminer/internal/domain"
)

func setupFolderService(t *testing.T) *FolderService {
	t.Helper()
	store := newTestStore(t)
	return NewFolderService(store.Folders(), testLogger())
}

func TestFolderService_EnsureDefaults(t *testing.T) {
	svc := setupFolderService(t)
	ctx := context.Background()

	folders, err := svc.EnsureDefaults(ctx, "user-1")
	if err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if len(folders) != len(domain.Categories) {
		t.Fatalf("got %d folders, want %d", len(folders), len(domain.Categories))
	}
	if folders[len(folders)-1].Name != "Other" {
		t.Errorf("last folder = %q, want Other", folders[len(folders)-1].Name)
	}
	if folders[0].Name != "Business" {
		t.Errorf("first folder = %q, want Business", folders[0].Name)
	}
	for _, f := range folders {
		if !f.IsSystem {
			t.Errorf("folder %q should be a system folder", f.Name)
		}
	}

	// Second call does not add more.
	again, err := svc.EnsureDefaults(ctx, "user-1")
	if err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if len(again) != len(folders) {
		t.Errorf("got %d folders after second call, want %d", len(again), len(folders))
	}
}

func TestFolderService_EnsureDefaults_SkipsUsersWithFolders(t *testing.T) {
	svc := setupFolderService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "Recipes"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	folders, err := svc.EnsureDefaults(ctx, "user-1")
	if err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "Recipes" {
		t.Errorf("folders = %v, want only Recipes", folders)
	}
}

func TestFolderService_Create(t *testing.T) {
	svc := setupFolderService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, "user-1", "  Side Projects  ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.Name != "Side Projects" {
		t.Errorf("Name = %q, want trimmed", f.Name)
	}
	if f.IsSystem {
		t.Error("user folders should not be system folders")
	}
	if f.ID == "" {
		t.Error("ID should not be empty")
	}
}

func TestFolderService_Create_Errors(t *testing.T) {
	svc := setupFolderService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "   "); !errors.Is(err, domain.ErrEmptyFolderName) {
		t.Errorf("empty name error = %v, want ErrEmptyFolderName", err)
	}

	if _, err := svc.Create(ctx, "user-1", "Ideas"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "IDEAS"); !errors.Is(err, domain.ErrDuplicateFolder) {
		t.Errorf("duplicate error = %v, want ErrDuplicateFolder", err)
	}

	// Same name for another user is fine.
	if _, err := svc.Create(ctx, "user-2", "Ideas"); err != nil {
		t.Errorf("Create for other user failed: %v", err)
	}
}

func TestFolderService_Resolve(t *testing.T) {
	svc := setupFolderService(t)
	ctx := context.Background()

	existing, err := svc.Create(ctx, "user-1", "health")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Resolve(ctx, "user-1", domain.CategoryHealth)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("Resolve returned %s, want existing folder %s", got.ID, existing.ID)
	}

	created, err := svc.Resolve(ctx, "user-1", domain.CategoryMindset)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if created.Name != "Mindset" || !created.IsSystem {
		t.Errorf("created folder = %+v, want system Mindset", created)
	}

	folders, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(folders) != 2 {
		t.Errorf("got %d folders, want 2", len(folders))
	}
}
