/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doccodyblue/openwebrx/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, password string, enabled bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: string(hash),
		Enabled:  enabled,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
}

func TestBasicMiddleware(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "admin", "secret", true)
	createUser(t, db, "locked", "secret", false)

	handler := NewBasic(db, zerolog.Nop()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	tests := []struct {
		name     string
		username string
		password string
		creds    bool
		want     int
	}{
		{"valid credentials", "admin", "secret", true, http.StatusNoContent},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"unknown user", "ghost", "secret", true, http.StatusUnauthorized},
		{"disabled user", "locked", "secret", true, http.StatusUnauthorized},
		{"no credentials", "", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.creds {
				req.SetBasicAuth(tt.username, tt.password)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
