package domain

import (
	"time"
)

// ClipID is a unique identifier for a mined clip.
type ClipID string

// String returns the string representation of the ClipID.
func (id ClipID) String() string {
	return string(id)
}

// Clip sources.
const (
	SourceWeb         = "web"
	SourceIOSShortcut = "ios_shortcut"
)

// Default values used when a transcript cannot be mined.
const (
	DefaultClipTitle      = "Clip"
	TranscriptUnavailable = "Transcript not available."
)

// Clip is one mined video: its transcript and the summary produced from it.
type Clip struct {
	ID         ClipID    `json:"id"`
	UserID     string    `json:"user_id"`
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Analysis   string    `json:"analysis"`
	ActionPlan []string  `json:"action_plan"`
	Category   Category  `json:"category"`
	FolderID   FolderID  `json:"folder_id,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is the fixed-shape result of summarizing a transcript.
type Summary struct {
	Analysis   string   `json:"analysis"`
	ActionPlan []string `json:"actionPlan"`
	Category   Category `json:"category"`
}

// UnavailableSummary is filed when the transcript or the summarizer fails.
func UnavailableSummary() Summary {
	return Summary{
		Analysis:   TranscriptUnavailable,
		ActionPlan: []string{},
		Category:   CategoryOther,
	}
}

// NewClip builds a clip from a summary. The action plan is capped at three steps.
func NewClip(id ClipID, userID, videoID, transcript string, s Summary, folderID FolderID, source string) *Clip {
	plan := s.ActionPlan
	if len(plan) > 3 {
		plan = plan[:3]
	}
	if plan == nil {
		plan = []string{}
	}
	return &Clip{
		ID:         id,
		UserID:     userID,
		VideoID:    videoID,
		Title:      DefaultClipTitle,
		Transcript: transcript,
		Analysis:   s.Analysis,
		ActionPlan: plan,
		Category:   NormalizeCategory(string(s.Category)),
		FolderID:   folderID,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
	}
}

// DisplayTitle returns the title or a placeholder for untitled clips.
func (c *Clip) DisplayTitle() string {
	if c.Title == "" {
		return "Mined Clip"
	}
	return c.Title
}

// CategoryOrOther returns the clip category, treating empty as Other.
func (c *Clip) CategoryOrOther() Category {
	if c.Category == "" {
		return CategoryOther
	}
	return c.Category
}
