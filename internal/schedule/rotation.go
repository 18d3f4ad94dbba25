/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/rs/zerolog"
)

const defaultRotationInterval = 5 * time.Minute

// RotationSchedule cycles through a profile list at a fixed dwell interval.
// The cursor only advances lazily when CurrentEntry observes that the dwell
// end has passed; the enclosing controller provides the timing. The cursor
// state is owned by exactly one ServiceScheduler, which serializes access.
type RotationSchedule struct {
	profiles []string
	interval time.Duration

	index   int
	endTime time.Time // zero while no dwell is in progress
}

// NewRotation builds a rotation schedule from its configuration block.
// The interval is given in minutes and defaults to 5.
func NewRotation(block map[string]any, logger zerolog.Logger) *RotationSchedule {
	s := &RotationSchedule{interval: defaultRotationInterval}

	if raw, ok := block["profiles"].([]any); ok {
		for _, p := range raw {
			if profile, ok := p.(string); ok {
				s.profiles = append(s.profiles, profile)
			}
		}
	} else if profiles, ok := block["profiles"].([]string); ok {
		s.profiles = append(s.profiles, profiles...)
	}

	if minutes, ok := toMinutes(block["interval"]); ok {
		s.interval = minutes
	}

	logger.Info().
		Strs("profiles", s.profiles).
		Dur("interval", s.interval).
		Msg("rotation schedule initialized")
	return s
}

func toMinutes(v any) (time.Duration, bool) {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Minute, true
	case int64:
		return time.Duration(n) * time.Minute, true
	case float64:
		return time.Duration(n * float64(time.Minute)), true
	}
	return 0, false
}

// CurrentEntry returns the profile at the cursor, advancing it first when the
// running dwell has expired. Each call may mutate the cursor; callers must
// query at most once per evaluation cycle.
func (s *RotationSchedule) CurrentEntry(now time.Time) Entry {
	if len(s.profiles) == 0 {
		return nil
	}

	if !s.endTime.IsZero() && !now.Before(s.endTime) {
		s.index = (s.index + 1) % len(s.profiles)
		s.endTime = time.Time{}
	}

	if s.endTime.IsZero() {
		s.endTime = now.Add(s.interval)
	}

	return rotationEntry{start: now, end: s.endTime, profile: s.profiles[s.index]}
}

// NextEntry previews the following profile without mutating the cursor. Its
// window starts when the current dwell ends.
func (s *RotationSchedule) NextEntry(now time.Time) Entry {
	if len(s.profiles) == 0 {
		return nil
	}
	next := (s.index + 1) % len(s.profiles)
	start := s.endTime
	if start.IsZero() {
		start = now
	}
	return rotationEntry{start: start, end: start.Add(s.interval), profile: s.profiles[next]}
}
