package domain

import "errors"

// Domain errors.
var (
	// ErrClipNotFound is returned when a clip cannot be found for the user.
	ErrClipNotFound = errors.New("clip not found")

	// ErrFolderNotFound is returned when a folder cannot be found for the user.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrDuplicateFolder is returned when a folder with the same name already exists.
	ErrDuplicateFolder = errors.New("folder with this name already exists")

	// ErrEmptyFolderName is returned when a folder name is empty.
	ErrEmptyFolderName = errors.New("folder name cannot be empty")

	// ErrMissingURL is returned when an intake payload carries no URL.
	ErrMissingURL = errors.New("missing url")

	// ErrInvalidVideoURL is returned when no YouTube video ID can be extracted.
	ErrInvalidVideoURL = errors.New("invalid YouTube URL")

	// ErrIntakeNotFound is returned when an intake request cannot be found.
	ErrIntakeNotFound = errors.New("intake request not found")

	// ErrNoIntakeRequests is returned when there are no queued intake requests.
	ErrNoIntakeRequests = errors.New("no intake requests available")

	// ErrMissingToken is returned when no bearer token is presented.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken is returned when a token is unknown or revoked.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenNotFound is returned by token lookups with no match.
	ErrTokenNotFound = errors.New("token not found")

	// ErrUnauthorized is returned when a user session cannot be verified.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when a user is unknown.
	ErrUserNotFound = errors.New("user not found")

	// ErrMissingEmail is returned when a report is requested for a user without email.
	ErrMissingEmail = errors.New("missing user email")

	// ErrPreferenceNotFound is returned when a user has no report preference.
	ErrPreferenceNotFound = errors.New("report preference not found")

	// ErrInvalidFrequency is returned for a frequency other than daily or weekly.
	ErrInvalidFrequency = errors.New("frequency must be daily or weekly")

	// ErrInvalidTimeOfDay is returned when time of day is not HH:MM.
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM")

	// ErrInvalidDayOfWeek is returned for an unknown weekday name.
	ErrInvalidDayOfWeek = errors.New("invalid day of week")

	// ErrInvalidTimezone is returned for an unknown IANA timezone.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrTranscriptUnavailable is recorded when a video has no transcript.
	ErrTranscriptUnavailable = errors.New("transcript not available")

	// ErrNotConfigured is returned when an optional integration has no credentials.
	ErrNotConfigured = errors.New("integration not configured")
)

// IntakeError wraps an error with intake request context.
type IntakeError struct {
	IntakeID IntakeID
	Op       string
	Err      error
}

func (e *IntakeError) Error() string {
	if e.IntakeID != "" {
		return e.Op + " [" + e.IntakeID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *IntakeError) Unwrap() error {
	return e.Err
}

// NewIntakeError creates a new IntakeError.
func NewIntakeError(id IntakeID, op string, err error) *IntakeError {
	return &IntakeError{
		IntakeID: id,
		Op:       op,
		Err:      err,
	}
}
