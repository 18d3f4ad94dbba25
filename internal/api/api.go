/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the receiver's JSON HTTP endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doccodyblue/openwebrx/internal/bookmarks"
	"github.com/doccodyblue/openwebrx/internal/dxcluster"
	"github.com/doccodyblue/openwebrx/internal/models"
	"github.com/doccodyblue/openwebrx/internal/service"
	"github.com/doccodyblue/openwebrx/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	registry  *service.Registry
	cluster   *dxcluster.Client // optional
	bookmarks *bookmarks.Store
	db        *gorm.DB                        // optional
	guard     func(http.Handler) http.Handler // optional, protects mutations
	logger    zerolog.Logger
}

// New creates the API router wrapper. cluster and db may be nil.
func New(registry *service.Registry, cluster *dxcluster.Client, bm *bookmarks.Store, db *gorm.DB, logger zerolog.Logger) *API {
	return &API{
		registry:  registry,
		cluster:   cluster,
		bookmarks: bm,
		db:        db,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// SetGuard installs an auth middleware for mutating endpoints.
func (a *API) SetGuard(guard func(http.Handler) http.Handler) {
	a.guard = guard
}

// Routes mounts all API endpoints.
func (a *API) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/clients", a.handleClients)
		r.Get("/spots", a.handleSpots)
		r.Get("/bookmarks", a.handleBookmarks)
		r.Route("/sdrs", func(r chi.Router) {
			r.Get("/", a.handleListSources)
			r.Route("/{sourceID}", func(r chi.Router) {
				r.Get("/", a.handleGetSource)
				if a.guard != nil {
					r.With(a.guard).Post("/schedule/refresh", a.handleScheduleRefresh)
				} else {
					r.Post("/schedule/refresh", a.handleScheduleRefresh)
				}
			})
		})
	})
}

type sourceStatus struct {
	ID               string   `json:"id"`
	State            string   `json:"state"`
	Enabled          bool     `json:"enabled"`
	Failed           bool     `json:"failed"`
	CurrentProfile   string   `json:"current_profile,omitempty"`
	ScheduledProfile string   `json:"scheduled_profile,omitempty"`
	Profiles         []string `json:"profiles"`
}

func (a *API) sourceStatus(id string) (sourceStatus, bool) {
	src, ok := a.registry.Get(id)
	if !ok {
		return sourceStatus{}, false
	}
	st := sourceStatus{
		ID:             src.ID(),
		State:          src.State().String(),
		Enabled:        src.IsEnabled(),
		Failed:         src.IsFailed(),
		CurrentProfile: src.CurrentProfile(),
		Profiles:       src.ProfileIDs(),
	}
	if sched, ok := a.registry.Scheduler(id); ok {
		if profile, claimed := sched.CurrentProfile(); claimed {
			st.ScheduledProfile = profile
		}
	}
	return st, true
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	sources := a.registry.Sources()
	writeJSON(w, http.StatusOK, map[string]any{
		"version": version.String(),
		"sdrs":    len(sources),
	})
}

// handleClients reports which sources currently serve someone, and whom.
// Tuning parameters come from the source's live property store.
func (a *API) handleClients(w http.ResponseWriter, r *http.Request) {
	type client struct {
		Source     string `json:"source"`
		Profile    string `json:"profile,omitempty"`
		Type       string `json:"type"`
		CenterFreq int64  `json:"center_freq,omitempty"`
		SampRate   int64  `json:"samp_rate,omitempty"`
	}

	out := make([]client, 0)
	for _, src := range a.registry.Sources() {
		sched, ok := a.registry.Scheduler(src.ID())
		if !ok {
			continue
		}
		profile, claimed := sched.CurrentProfile()
		if !claimed {
			continue
		}
		entry := client{Source: src.ID(), Profile: profile, Type: "background"}
		if f, ok := src.Props().Float("center_freq"); ok {
			entry.CenterFreq = int64(f)
		}
		if f, ok := src.Props().Float("samp_rate"); ok {
			entry.SampRate = int64(f)
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSpots serves the DX cluster ring buffer, falling back to the
// database when no cluster client is running.
func (a *API) handleSpots(w http.ResponseWriter, r *http.Request) {
	if a.cluster != nil {
		writeJSON(w, http.StatusOK, a.cluster.Spots())
		return
	}
	if a.db == nil {
		writeJSON(w, http.StatusOK, []dxcluster.Spot{})
		return
	}

	var rows []models.Spot
	if err := a.db.Order("spotted_at desc").Limit(100).Find(&rows).Error; err != nil {
		a.logger.Error().Err(err).Msg("spot query failed")
		writeError(w, http.StatusInternalServerError, "spot query failed")
		return
	}
	spots := make([]dxcluster.Spot, 0, len(rows))
	for _, row := range rows {
		spots = append(spots, dxcluster.Spot{
			Spotter:   row.Spotter,
			Callsign:  row.Callsign,
			Frequency: row.Frequency,
			Comment:   row.Comment,
			SpottedAt: row.SpottedAt,
		})
	}
	writeJSON(w, http.StatusOK, spots)
}

// handleBookmarks serves bookmarks, optionally filtered with ?lo=&hi= in Hz.
func (a *API) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	loStr := r.URL.Query().Get("lo")
	hiStr := r.URL.Query().Get("hi")
	if loStr == "" && hiStr == "" {
		writeJSON(w, http.StatusOK, a.bookmarks.All())
		return
	}

	lo, err := strconv.ParseInt(loStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lo")
		return
	}
	hi, err := strconv.ParseInt(hiStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hi")
		return
	}
	writeJSON(w, http.StatusOK, a.bookmarks.InRange(lo, hi))
}

func (a *API) handleListSources(w http.ResponseWriter, r *http.Request) {
	out := make([]sourceStatus, 0)
	for _, src := range a.registry.Sources() {
		if st, ok := a.sourceStatus(src.ID()); ok {
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetSource(w http.ResponseWriter, r *http.Request) {
	st, ok := a.sourceStatus(chi.URLParam(r, "sourceID"))
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleScheduleRefresh forces an immediate profile selection run.
func (a *API) handleScheduleRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	sched, ok := a.registry.Scheduler(id)
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	sched.Refresh()
	a.logger.Info().Str("source", id).Msg("schedule refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh queued"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
