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
	"github.com/doccodyblue/openwebrx/internal/solar"
)

// greyLinePad is the half-width of the grey-line window around each solar
// event. When a greyline profile is configured it also shortens the adjacent
// day and night windows by the same amount.
const greyLinePad = time.Hour

// DaylightSchedule derives activation windows from sunrise and sunset.
// Sun times are recomputed lazily on every query for the current date; the
// receiver coordinates are read live from the property store.
type DaylightSchedule struct {
	store    *props.Store
	profiles map[string]string // day / night / greyline
	logger   zerolog.Logger
}

// NewDaylight builds a daylight schedule from the per-phase profile block.
func NewDaylight(store *props.Store, block map[string]any, logger zerolog.Logger) *DaylightSchedule {
	profiles := make(map[string]string, len(block))
	for _, phase := range []string{"day", "night", "greyline"} {
		if profile, ok := block[phase].(string); ok {
			profiles[phase] = profile
		}
	}
	return &DaylightSchedule{store: store, profiles: profiles, logger: logger}
}

type solarEvent struct {
	sunrise bool
	at      time.Time
}

// entries builds the chronological window list. It starts from the day
// before today so longitudes near the date line are handled, and extends
// forward until at least one event remains in the future.
func (d *DaylightSchedule) entries(now time.Time) []Entry {
	lat, latOK := d.store.Float("latitude")
	lon, lonOK := d.store.Float("longitude")
	if !latOK || !lonOK {
		d.logger.Warn().Msg("daylight schedule requires receiver latitude/longitude")
		return nil
	}

	_, useGreyline := d.profiles["greyline"]
	var pad time.Duration
	if useGreyline {
		pad = greyLinePad
	}

	var events []solarEvent
	offset := -1
	for len(events) < 1 {
		date := now.UTC().AddDate(0, 0, offset)
		sunrise, sunset, err := solar.SunTimes(date, lat, lon)
		if err != nil {
			// Polar day/night is a configuration error for this schedule
			// type; produce no windows rather than guessing.
			d.logger.Error().Err(err).Msg("daylight schedule misconfigured")
			return nil
		}
		offset++
		events = append(events, solarEvent{sunrise: true, at: sunrise}, solarEvent{sunrise: false, at: sunset})

		// keep only events still relevant now
		kept := events[:0]
		for _, ev := range events {
			if ev.at.Add(pad).After(now) {
				kept = append(kept, ev)
			}
		}
		events = kept
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	var entries []Entry
	var previousEnd time.Time
	for _, ev := range events {
		// night profile runs until sunrise, day profile until sunset
		phase := "day"
		if ev.sunrise {
			phase = "night"
		}
		if profile, ok := d.profiles[phase]; ok && (!previousEnd.IsZero() || ev.at.Add(-pad).After(now)) {
			start := now
			if !previousEnd.IsZero() {
				start = previousEnd
			}
			entries = append(entries, windowEntry{start: start, end: ev.at.Add(-pad), profile: profile})
		}
		if useGreyline {
			entries = append(entries, windowEntry{
				start:   ev.at.Add(-pad),
				end:     ev.at.Add(pad),
				profile: d.profiles["greyline"],
			})
		}
		previousEnd = ev.at.Add(pad)
	}
	return entries
}

// CurrentEntry returns the window containing now, if any.
func (d *DaylightSchedule) CurrentEntry(now time.Time) Entry {
	return currentOf(d.entries(now), now)
}

// NextEntry returns the window with the soonest future activation.
func (d *DaylightSchedule) NextEntry(now time.Time) Entry {
	return nextOf(d.entries(now), now)
}
