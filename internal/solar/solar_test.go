/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package solar

import (
	"errors"
	"testing"
	"time"
)

func TestSunTimesOrdering(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		lat  float64
		lon  float64
	}{
		{"berlin midsummer", time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), 52.5, 13.4},
		{"berlin midwinter", time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), 52.5, 13.4},
		{"equator equinox", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), 0, 0},
		{"sydney", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), -33.9, 151.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sunrise, sunset, err := SunTimes(tt.date, tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("SunTimes() error = %v", err)
			}
			if !sunrise.Before(sunset) {
				t.Errorf("sunrise %v not before sunset %v", sunrise, sunset)
			}
		})
	}
}

func TestSunTimesGreenwich(t *testing.T) {
	// At 0° longitude around the equinox, sunrise should land close to
	// 06:00 UTC and sunset close to 18:00 UTC.
	date := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	sunrise, sunset, err := SunTimes(date, 51.5, 0)
	if err != nil {
		t.Fatalf("SunTimes() error = %v", err)
	}

	wantRise := time.Date(2024, 3, 20, 6, 0, 0, 0, time.UTC)
	wantSet := time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC)
	const tolerance = 20 * time.Minute

	if d := sunrise.Sub(wantRise); d < -tolerance || d > tolerance {
		t.Errorf("sunrise = %v, want within %v of %v", sunrise, tolerance, wantRise)
	}
	if d := sunset.Sub(wantSet); d < -tolerance || d > tolerance {
		t.Errorf("sunset = %v, want within %v of %v", sunset, tolerance, wantSet)
	}
}

func TestSunTimesLongitudeShift(t *testing.T) {
	// Moving 15° west shifts solar events one hour later in UTC.
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rise0, _, err := SunTimes(date, 40, 0)
	if err != nil {
		t.Fatalf("SunTimes() error = %v", err)
	}
	rise15, _, err := SunTimes(date, 40, -15)
	if err != nil {
		t.Fatalf("SunTimes() error = %v", err)
	}

	shift := rise15.Sub(rise0)
	if shift < 55*time.Minute || shift > 65*time.Minute {
		t.Errorf("15° westward longitude shift = %v, want ~1h", shift)
	}
}

func TestSunTimesPolar(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		lat  float64
	}{
		{"polar day svalbard", time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), 78.2},
		{"polar night svalbard", time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), 78.2},
		{"polar antarctica", time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), -80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SunTimes(tt.date, tt.lat, 0)
			if !errors.Is(err, ErrPolar) {
				t.Errorf("SunTimes() error = %v, want ErrPolar", err)
			}
		})
	}
}
