/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package solar computes sunrise and sunset instants for a date and location.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrPolar is returned when the latitude/date combination yields no sunrise
// or sunset (polar day or polar night). Callers must treat this as a
// configuration error.
var ErrPolar = errors.New("no sunrise/sunset at this latitude and date")

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// SunTimes returns sunrise and sunset as UTC instants on the given calendar
// day. The computation is the standard day-of-year declination and
// equation-of-time approximation; no atmospheric refraction correction is
// applied.
func SunTimes(date time.Time, latitude, longitude float64) (sunrise, sunset time.Time, err error) {
	days := float64(date.YearDay())

	// Longitudinal correction, minutes per degree
	longCorr := 4 * longitude

	// Day angle calibrated for the solstice
	b := 2 * math.Pi * (days - 81) / 365

	// Equation of time correction
	eotCorr := 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)

	solarCorr := longCorr + eotCorr

	declination := math.Asin(math.Sin(23.45*degToRad) * math.Sin(b))

	cosHourAngle := -math.Tan(latitude*degToRad) * math.Tan(declination)
	if cosHourAngle < -1 || cosHourAngle > 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("latitude %v on %s: %w",
			latitude, date.Format("2006-01-02"), ErrPolar)
	}
	hourAngle := math.Acos(cosHourAngle) * radToDeg / 15

	riseHours := 12 - hourAngle - solarCorr/60
	setHours := 12 + hourAngle - solarCorr/60

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	sunrise = midnight.Add(time.Duration(riseHours * float64(time.Hour)))
	sunset = midnight.Add(time.Duration(setHours * float64(time.Hour)))
	return sunrise, sunset, nil
}
