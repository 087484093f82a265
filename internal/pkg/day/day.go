// Package day provides calendar-day arithmetic in the game timezone.
package day

import "time"

// Start returns the instant at which the calendar day containing now begins in loc.
func Start(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Date returns the calendar date of now in loc, normalized to midnight UTC.
// It is the form used for DATE columns.
func Date(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// UntilNext returns the time left until the next calendar day begins in loc.
func UntilNext(now time.Time, loc *time.Location) time.Duration {
	next := Start(now, loc).AddDate(0, 0, 1)
	return next.Sub(now)
}

// Between returns the number of whole calendar days from since to now in loc.
func Between(since, now time.Time, loc *time.Location) int {
	from := Date(since, loc)
	to := Date(now, loc)
	return int(to.Sub(from).Hours() / 24)
}
