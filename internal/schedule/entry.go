/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule implements the background profile schedules for receiver
// sources: fixed daily time windows, daylight-relative windows derived from
// solar events, and fixed-interval rotation over a profile list.
package schedule

import (
	"fmt"
	"time"
)

// Entry is one immutable activation window for a profile.
type Entry interface {
	// Profile returns the profile identifier to activate during the window.
	Profile() string
	// IsCurrent reports whether the window contains the given instant.
	IsCurrent(now time.Time) bool
	// ScheduledEnd returns the instant the window closes.
	ScheduledEnd(now time.Time) time.Time
	// NextActivation returns the soonest future instant the window opens.
	NextActivation(now time.Time) time.Time
}

// timeEntry is a daily recurring wall-clock window. start and end are minutes
// since midnight UTC; start > end means the window wraps past midnight.
type timeEntry struct {
	start   int
	end     int
	profile string
}

func (e timeEntry) Profile() string { return e.profile }

func (e timeEntry) IsCurrent(now time.Time) bool {
	minute := now.UTC().Hour()*60 + now.UTC().Minute()
	if e.start < e.end {
		return e.start <= minute && minute < e.end
	}
	return e.start <= minute || minute < e.end
}

func (e timeEntry) ScheduledEnd(now time.Time) time.Time {
	return nextOccurrence(now, e.end)
}

func (e timeEntry) NextActivation(now time.Time) time.Time {
	return nextOccurrence(now, e.start)
}

func (e timeEntry) String() string {
	return fmt.Sprintf("%02d:%02d - %02d:%02d: %s", e.start/60, e.start%60, e.end/60, e.end%60, e.profile)
}

// nextOccurrence projects a minute-of-day forward to its next occurrence at
// or after now.
func nextOccurrence(now time.Time, minuteOfDay int) time.Time {
	now = now.UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, time.UTC)
	for at.Before(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// windowEntry is a one-shot absolute window, used for daylight phases.
type windowEntry struct {
	start   time.Time
	end     time.Time
	profile string
}

func (e windowEntry) Profile() string { return e.profile }

func (e windowEntry) IsCurrent(now time.Time) bool {
	return !now.Before(e.start) && now.Before(e.end)
}

func (e windowEntry) ScheduledEnd(time.Time) time.Time   { return e.end }
func (e windowEntry) NextActivation(time.Time) time.Time { return e.start }

func (e windowEntry) String() string {
	return fmt.Sprintf("%s - %s: %s", e.start.Format(time.RFC3339), e.end.Format(time.RFC3339), e.profile)
}

// rotationEntry is a relative window produced by the rotation schedule. It
// activates immediately and ends when the dwell interval expires.
type rotationEntry struct {
	start   time.Time
	end     time.Time
	profile string
}

func (e rotationEntry) Profile() string { return e.profile }

func (e rotationEntry) IsCurrent(now time.Time) bool {
	return !now.Before(e.start) && now.Before(e.end)
}

func (e rotationEntry) ScheduledEnd(time.Time) time.Time   { return e.end }
func (e rotationEntry) NextActivation(time.Time) time.Time { return e.start }
