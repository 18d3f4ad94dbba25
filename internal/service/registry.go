/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/props"
	"github.com/doccodyblue/openwebrx/internal/source"
)

// Registry owns the receiver sources and pairs each with exactly one
// Scheduler for its lifetime. Unregistering a source tears its scheduler
// down first.
type Registry struct {
	logger zerolog.Logger
	bus    *events.Bus

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	src   *source.Source
	sched *Scheduler
}

// NewRegistry creates an empty source registry.
func NewRegistry(bus *events.Bus, logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		bus:     bus,
		entries: make(map[string]*registryEntry),
	}
}

// Register adds a source and attaches its scheduler. The entry is published
// fully formed so concurrent lookups never see a source without a scheduler.
func (r *Registry) Register(src *source.Source) error {
	r.mu.Lock()
	if _, exists := r.entries[src.ID()]; exists {
		r.mu.Unlock()
		return fmt.Errorf("source %q already registered", src.ID())
	}
	r.entries[src.ID()] = &registryEntry{
		src:   src,
		sched: NewScheduler(src, r.logger),
	}
	r.mu.Unlock()

	r.logger.Info().Str("source", src.ID()).Msg("source registered")
	return nil
}

// Unregister shuts down the source's scheduler and removes the source.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	entry.sched.Shutdown()
	entry.src.Shutdown()
	r.logger.Info().Str("source", id).Msg("source unregistered")
}

// Get returns the source with the given id.
func (r *Registry) Get(id string) (*source.Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return entry.src, true
}

// Scheduler returns the scheduler paired with the given source.
func (r *Registry) Scheduler(id string) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return entry.sched, true
}

// Sources lists registered sources ordered by id.
func (r *Registry) Sources() []*source.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*source.Source, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// LoadSettings builds and registers sources from the receiver settings
// document. The receiver_gps block is copied into every source's property
// store so daylight schedules can resolve sun events.
func (r *Registry) LoadSettings(settings map[string]any) error {
	var lat, lon any
	if gps, ok := settings["receiver_gps"].(map[string]any); ok {
		lat = gps["lat"]
		lon = gps["lon"]
	}

	sdrs, ok := settings["sdrs"].(map[string]any)
	if !ok {
		r.logger.Warn().Msg("no sdrs block in settings")
		return nil
	}

	for id, raw := range sdrs {
		block, ok := raw.(map[string]any)
		if !ok {
			r.logger.Warn().Str("source", id).Msg("malformed sdr definition, skipping")
			continue
		}

		initial := make(map[string]any)
		for key, value := range block {
			if key == "profiles" {
				continue
			}
			initial[key] = value
		}
		if lat != nil {
			initial["latitude"] = lat
		}
		if lon != nil {
			initial["longitude"] = lon
		}

		profiles := make(map[string]map[string]any)
		if raw, ok := block["profiles"].(map[string]any); ok {
			for pid, p := range raw {
				if pm, ok := p.(map[string]any); ok {
					profiles[pid] = pm
				}
			}
		}

		src := source.New(id, props.NewStore(initial), profiles, r.bus, r.logger)
		if err := r.Register(src); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown unregisters all sources.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
