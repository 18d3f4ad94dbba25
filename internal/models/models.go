/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models defines the persisted entities.
package models

import (
	"time"
)

// User represents an account managed through owrxadmin.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Username  string `gorm:"uniqueIndex"`
	Password  string // bcrypt hash
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Spot is a DX cluster spot kept for the map and API history.
type Spot struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Spotter   string `gorm:"type:varchar(16);index"`
	Callsign  string `gorm:"type:varchar(16);index"`
	Frequency int64  `gorm:"index"` // Hz
	Comment   string
	SpottedAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// All lists every model for migration.
func All() []any {
	return []any{
		&User{},
		&Spot{},
	}
}
