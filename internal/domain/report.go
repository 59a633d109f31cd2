package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezones must resolve on hosts without a zoneinfo database
)

// Frequency controls how often a scroll report is emailed.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency validates a frequency string. Empty means daily.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case "", FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	default:
		return "", ErrInvalidFrequency
	}
}

// Label is the capitalized name used in email subjects.
func (f Frequency) Label() string {
	if f == FrequencyWeekly {
		return "Weekly"
	}
	return "Daily"
}

// Period is how far back a report looks.
func (f Frequency) Period() time.Duration {
	if f == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// ReportPreference is a user's email report schedule. One row per user.
type ReportPreference struct {
	UserID     string     `json:"user_id"`
	Frequency  Frequency  `json:"frequency"`
	TimeOfDay  string     `json:"time_of_day"`
	DayOfWeek  string     `json:"day_of_week,omitempty"`
	Timezone   string     `json:"timezone"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DefaultReportPreference is used for users that never saved a schedule.
func DefaultReportPreference(userID string) *ReportPreference {
	return &ReportPreference{
		UserID:    userID,
		Frequency: FrequencyDaily,
		TimeOfDay: "08:00",
		Timezone:  "UTC",
	}
}

// Normalize canonicalizes fields in place: weekday names are capitalized
// and cleared for daily schedules, and an empty timezone becomes UTC.
func (p *ReportPreference) Normalize() {
	if p.Frequency == "" {
		p.Frequency = FrequencyDaily
	}
	if p.Frequency != FrequencyWeekly {
		p.DayOfWeek = ""
	} else if day, ok := LookupWeekday(p.DayOfWeek); ok {
		p.DayOfWeek = day.String()
	}
	p.TimeOfDay = strings.TrimSpace(p.TimeOfDay)
	if strings.TrimSpace(p.Timezone) == "" {
		p.Timezone = "UTC"
	}
}

// Validate checks the schedule fields.
func (p *ReportPreference) Validate() error {
	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		return err
	}
	if _, _, err := ParseTimeOfDay(p.TimeOfDay); err != nil {
		return err
	}
	if p.Frequency == FrequencyWeekly && p.DayOfWeek != "" {
		if _, ok := LookupWeekday(p.DayOfWeek); !ok {
			return ErrInvalidDayOfWeek
		}
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimezone, p.Timezone)
		}
	}
	return nil
}

// Location returns the preference timezone, or UTC when it cannot be loaded.
func (p *ReportPreference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, 0, ErrInvalidTimeOfDay
		}
	}
	return hour, minute, nil
}

// LookupWeekday matches an English weekday name case-insensitively.
func LookupWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, true
		}
	}
	return 0, false
}
