/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package auth guards mutating API endpoints with HTTP Basic credentials
// checked against the user accounts managed by owrxadmin.
package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/doccodyblue/openwebrx/internal/models"
)

// Basic validates HTTP Basic auth against the users table.
type Basic struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewBasic creates the authenticator.
func NewBasic(db *gorm.DB, logger zerolog.Logger) *Basic {
	return &Basic{
		db:     db,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Middleware rejects requests without valid credentials.
func (b *Basic) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !b.authenticate(username, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="openwebrx"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Basic) authenticate(username, password string) bool {
	var user models.User
	err := b.db.Where("username = ? AND enabled = ?", username, true).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			b.logger.Error().Err(err).Msg("user lookup failed")
		}
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		b.logger.Debug().Str("username", username).Msg("password mismatch")
		return false
	}
	return true
}
