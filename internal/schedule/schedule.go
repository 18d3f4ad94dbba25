/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/props"
)

// Schedule decides which profile a source should run in the background.
// CurrentEntry returns the window containing now, NextEntry the window with
// the soonest future activation. Both return nil when nothing applies.
//
// Static and Daylight schedules are read-only; Rotation advances internal
// state on CurrentEntry and must be queried at most once per evaluation.
type Schedule interface {
	CurrentEntry(now time.Time) Entry
	NextEntry(now time.Time) Entry
}

// Parse builds a schedule from the source's property store. The "scheduler"
// block is discriminated by its "type" key; a bare top-level "schedule" block
// is treated as static for backwards compatibility. Returns nil when no
// schedule is configured or the configuration is invalid.
func Parse(store *props.Store, logger zerolog.Logger) Schedule {
	if sc, ok := store.Map("scheduler"); ok {
		schedulerType := "static"
		if t, ok := sc["type"].(string); ok {
			schedulerType = t
		}
		block, _ := sc["schedule"].(map[string]any)

		switch schedulerType {
		case "static":
			return NewStatic(block, logger)
		case "daylight":
			return NewDaylight(store, block, logger)
		case "rotation":
			return NewRotation(block, logger)
		default:
			logger.Warn().Str("type", schedulerType).Msg("invalid scheduler type")
			return nil
		}
	}
	// downwards compatibility
	if block, ok := store.Map("schedule"); ok {
		return NewStatic(block, logger)
	}
	return nil
}

// currentOf returns the first entry containing now, in entry order.
// Overlapping windows are a configuration error; first match wins.
func currentOf(entries []Entry, now time.Time) Entry {
	for _, e := range entries {
		if e.IsCurrent(now) {
			return e
		}
	}
	return nil
}

// nextOf returns the entry with the soonest future activation.
func nextOf(entries []Entry, now time.Time) Entry {
	if len(entries) == 0 {
		return nil
	}
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NextActivation(now).Before(sorted[j].NextActivation(now))
	})
	return sorted[0]
}

// StaticSchedule holds fixed daily time windows, immutable after construction.
type StaticSchedule struct {
	entries []Entry
}

// NewStatic parses a map of "HHMM-HHMM" window tokens to profile ids.
// Invalid tokens are logged and skipped. Entries are ordered by token so the
// first-match rule is deterministic.
func NewStatic(block map[string]any, logger zerolog.Logger) *StaticSchedule {
	tokens := make([]string, 0, len(block))
	for token := range block {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	s := &StaticSchedule{}
	for _, token := range tokens {
		profile, ok := block[token].(string)
		if !ok {
			logger.Warn().Str("window", token).Msg("invalid schedule profile")
			continue
		}
		start, end, err := parseWindowToken(token)
		if err != nil {
			logger.Warn().Str("window", token).Msg("invalid schedule spec")
			continue
		}
		s.entries = append(s.entries, timeEntry{start: start, end: end, profile: profile})
	}
	return s
}

// parseWindowToken parses "HHMM-HHMM" into start/end minutes of day.
func parseWindowToken(token string) (start, end int, err error) {
	if len(token) != 9 {
		return 0, 0, errInvalidWindow(token)
	}
	startAt, err := time.Parse("1504", token[0:4])
	if err != nil {
		return 0, 0, errInvalidWindow(token)
	}
	endAt, err := time.Parse("1504", token[5:9])
	if err != nil {
		return 0, 0, errInvalidWindow(token)
	}
	return startAt.Hour()*60 + startAt.Minute(), endAt.Hour()*60 + endAt.Minute(), nil
}

type errInvalidWindow string

func (e errInvalidWindow) Error() string { return "invalid schedule window " + string(e) }

// CurrentEntry returns the window containing now, if any.
func (s *StaticSchedule) CurrentEntry(now time.Time) Entry {
	return currentOf(s.entries, now)
}

// NextEntry returns the window with the soonest future activation.
func (s *StaticSchedule) NextEntry(now time.Time) Entry {
	return nextOf(s.entries, now)
}
