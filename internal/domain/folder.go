package domain

import (
	"sort"
	"strings"
	"time"
)

// FolderID is a unique identifier for a folder.
type FolderID string

// String returns the string representation of the FolderID.
func (id FolderID) String() string {
	return string(id)
}

// Folder groups a user's clips. System folders are the default categories
// created automatically; user folders are created by hand.
type Folder struct {
	ID        FolderID  `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

// SameName reports whether the folder name matches name case-insensitively.
func (f *Folder) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(name))
}

// SortFolders dedupes folders by case-insensitive name, keeping the first
// occurrence, and sorts them by name with Other last.
func SortFolders(folders []*Folder) []*Folder {
	seen := make(map[string]bool, len(folders))
	out := make([]*Folder, 0, len(folders))
	for _, f := range folders {
		key := strings.ToLower(strings.TrimSpace(f.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}

	other := strings.ToLower(string(CategoryOther))
	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToLower(out[i].Name)
		b := strings.ToLower(out[j].Name)
		if a == other {
			return false
		}
		if b == other {
			return true
		}
		return a < b
	})
	return out
}

// FindFolder returns the folder matching name case-insensitively, or nil.
func FindFolder(folders []*Folder, name string) *Folder {
	for _, f := range folders {
		if f.SameName(name) {
			return f
		}
	}
	return nil
}
