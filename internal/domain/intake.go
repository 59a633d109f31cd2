package domain

import (
	"time"
)

// IntakeID is a unique identifier for an intake request.
type IntakeID string

// String returns the string representation of the IntakeID.
func (id IntakeID) String() string {
	return string(id)
}

// IntakeStatus represents the current state of an intake request.
type IntakeStatus string

const (
	IntakeStatusQueued     IntakeStatus = "queued"
	IntakeStatusProcessing IntakeStatus = "processing"
	IntakeStatusComplete   IntakeStatus = "complete"
	IntakeStatusError      IntakeStatus = "error"
)

// IntakeRequest records one URL received by the intake webhook.
type IntakeRequest struct {
	ID          IntakeID     `json:"id"`
	UserID      string       `json:"user_id"`
	URL         string       `json:"url"`
	VideoID     string       `json:"video_id"`
	Source      string       `json:"source"`
	Status      IntakeStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	ClipID      ClipID       `json:"clip_id,omitempty"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewIntakeRequest creates a queued intake request.
func NewIntakeRequest(id IntakeID, userID, url, videoID, source string) *IntakeRequest {
	if source == "" {
		source = SourceIOSShortcut
	}
	return &IntakeRequest{
		ID:        id,
		UserID:    userID,
		URL:       url,
		VideoID:   videoID,
		Source:    source,
		Status:    IntakeStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkProcessing updates the request status to processing.
func (r *IntakeRequest) MarkProcessing() {
	r.Status = IntakeStatusProcessing
}

// MarkComplete records the resulting clip. A non-empty errMsg means the clip
// was filed with a placeholder summary.
func (r *IntakeRequest) MarkComplete(clipID ClipID, errMsg string) {
	now := time.Now().UTC()
	r.Status = IntakeStatusComplete
	r.ClipID = clipID
	r.Error = errMsg
	r.ProcessedAt = &now
}

// MarkFailed updates the request status to error with a message.
func (r *IntakeRequest) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	r.Status = IntakeStatusError
	r.Error = errMsg
	r.ProcessedAt = &now
}

// Done reports whether the request reached a terminal state.
func (r *IntakeRequest) Done() bool {
	return r.Status == IntakeStatusComplete || r.Status == IntakeStatusError
}
