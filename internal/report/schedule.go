// Package report decides when report emails are due and renders their bodies.
package report

import (
	"time"

	"github.com/valueminer/valueminer/internal/domain"
)

// weeklyGap is the minimum time between two weekly sends.
const weeklyGap = 6 * 24 * time.Hour

// IsDue reports whether pref should be sent at now. All comparisons use
// the preference's local time; an unknown timezone is treated as UTC.
func IsDue(pref *domain.ReportPreference, now time.Time) bool {
	loc := pref.Location()
	local := now.In(loc)

	hour, minute, err := domain.ParseTimeOfDay(pref.TimeOfDay)
	if err != nil {
		hour, minute = 0, 0
	}
	if local.Hour() < hour || (local.Hour() == hour && local.Minute() < minute) {
		return false
	}

	weekly := pref.Frequency == domain.FrequencyWeekly
	if weekly && pref.DayOfWeek != "" {
		day, ok := domain.LookupWeekday(pref.DayOfWeek)
		if !ok || day != local.Weekday() {
			return false
		}
	}

	if pref.LastSentAt == nil {
		return true
	}

	last := pref.LastSentAt.In(loc)
	if sameDate(local, last) {
		return false
	}
	if weekly {
		return now.Sub(*pref.LastSentAt) >= weeklyGap
	}
	return true
}

// PeriodStart is the start of the window a report covers.
func PeriodStart(freq domain.Frequency, now time.Time) time.Time {
	return now.Add(-freq.Period())
}

// Subject returns the email subject for a frequency.
func Subject(freq domain.Frequency) string {
	return freq.Label() + " Value Miner Scroll Report"
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
