/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package source models a receiver device: an exclusive hardware resource
// with lifecycle state, attached clients of different priority classes, and a
// live property store carrying tuning parameters and profiles.
package source

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/props"
)

// ErrProfileNotFound is returned when a profile id is not configured on the
// source. Background controllers treat it as non-fatal.
var ErrProfileNotFound = errors.New("profile not found")

// State enumerates the source lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// BusyState tracks whether interactive users occupy the source.
type BusyState int

const (
	BusyIdle BusyState = iota
	BusyBusy
)

// ClientClass orders client priority. Interactive users always win over
// background services; inactive clients hold no claim on the hardware.
type ClientClass int

const (
	ClassInactive ClientClass = iota
	ClassBackground
	ClassUser
)

// Client receives source lifecycle events. The current client class is
// re-queried on every status evaluation.
type Client interface {
	ClientClass() ClientClass
	OnStateChange(state State)
	OnBusyStateChange(state BusyState)
	OnEnable()
	OnDisable()
	OnFail()
	OnShutdown()
}

// Source is an in-process receiver device handle.
type Source struct {
	id     string
	logger zerolog.Logger
	bus    *events.Bus
	store  *props.Store

	mu             sync.Mutex
	state          State
	busy           BusyState
	enabled        bool
	failed         bool
	clients        []Client
	profiles       map[string]map[string]any
	currentProfile string
}

// New creates a source with the given property store and profile presets.
// Profile properties are applied onto the store on activation.
func New(id string, store *props.Store, profiles map[string]map[string]any, bus *events.Bus, logger zerolog.Logger) *Source {
	return &Source{
		id:       id,
		logger:   logger.With().Str("component", "source").Str("source", id).Logger(),
		bus:      bus,
		store:    store,
		enabled:  true,
		profiles: profiles,
	}
}

// ID returns the source identifier.
func (s *Source) ID() string { return s.id }

// Props returns the live property store.
func (s *Source) Props() *props.Store { return s.store }

// IsEnabled reports whether the source may be started.
func (s *Source) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// IsFailed reports whether the source has failed permanently.
func (s *Source) IsFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// State returns the current lifecycle state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentProfile returns the most recently activated profile id.
func (s *Source) CurrentProfile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentProfile
}

// ProfileIDs lists the configured profile ids.
func (s *Source) ProfileIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	return ids
}

// HasClients reports whether any attached client currently claims one of the
// given classes. Client classes are live values, re-read on every call.
func (s *Source) HasClients(classes ...ClientClass) bool {
	s.mu.Lock()
	clients := append([]Client(nil), s.clients...)
	s.mu.Unlock()

	for _, c := range clients {
		cls := c.ClientClass()
		for _, wanted := range classes {
			if cls == wanted {
				return true
			}
		}
	}
	return false
}

// AddClient attaches a client and re-evaluates the busy state.
func (s *Source) AddClient(c Client) {
	s.mu.Lock()
	s.clients = append(s.clients, c)
	s.mu.Unlock()
	s.updateBusyState()
}

// RemoveClient detaches a client and re-evaluates the busy state.
func (s *Source) RemoveClient(c Client) {
	s.mu.Lock()
	for i, existing := range s.clients {
		if existing == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.updateBusyState()
}

// ActivateProfile applies the named profile's properties onto the store.
func (s *Source) ActivateProfile(id string) error {
	s.mu.Lock()
	profile, ok := s.profiles[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%q on source %s: %w", id, s.id, ErrProfileNotFound)
	}
	s.currentProfile = id
	s.mu.Unlock()

	for key, value := range profile {
		s.store.Set(key, value)
	}

	s.logger.Debug().Str("profile", id).Msg("profile activated")
	s.bus.Publish(events.EventProfileActivated, events.Payload{
		"source":  s.id,
		"profile": id,
	})
	return nil
}

// Start brings the source up if it is enabled and not already running.
func (s *Source) Start() error {
	s.mu.Lock()
	if !s.enabled || s.failed {
		s.mu.Unlock()
		return fmt.Errorf("source %s not startable (enabled=%v failed=%v)", s.id, s.enabled, s.failed)
	}
	if s.state == StateRunning || s.state == StateStarting {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.setState(StateStarting)
	s.setState(StateRunning)
	return nil
}

// Stop shuts the hardware down, passing through the stopping state.
func (s *Source) Stop() {
	s.mu.Lock()
	running := s.state == StateRunning || s.state == StateStarting
	s.mu.Unlock()
	if !running {
		return
	}
	s.setState(StateStopping)
	s.setState(StateStopped)
}

// SetEnabled toggles availability. Disabling does not stop a running source;
// enabling notifies clients so background control can resume.
func (s *Source) SetEnabled(enabled bool) {
	s.mu.Lock()
	if s.enabled == enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = enabled
	clients := append([]Client(nil), s.clients...)
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", enabled).Msg("source availability changed")
	for _, c := range clients {
		if enabled {
			c.OnEnable()
		} else {
			c.OnDisable()
		}
	}
}

// Fail marks the source permanently failed and notifies clients.
func (s *Source) Fail() {
	s.mu.Lock()
	if s.failed {
		s.mu.Unlock()
		return
	}
	s.failed = true
	s.state = StateFailed
	clients := append([]Client(nil), s.clients...)
	s.mu.Unlock()

	s.logger.Error().Msg("source failed")
	s.publishState(StateFailed)
	for _, c := range clients {
		c.OnFail()
	}
}

// Shutdown notifies clients that the source is going away for good.
func (s *Source) Shutdown() {
	s.Stop()

	s.mu.Lock()
	clients := append([]Client(nil), s.clients...)
	s.clients = nil
	s.mu.Unlock()

	for _, c := range clients {
		c.OnShutdown()
	}
}

// CheckStatus re-evaluates whether the source should stay powered. With no
// active clients a running source idles down.
func (s *Source) CheckStatus() {
	if s.HasClients(ClassUser, ClassBackground) {
		return
	}
	s.mu.Lock()
	running := s.state == StateRunning || s.state == StateStarting
	s.mu.Unlock()
	if running {
		s.logger.Debug().Msg("no active clients, stopping source")
		s.Stop()
	}
}

// setState transitions the lifecycle state and fans the event out to clients
// with no locks held.
func (s *Source) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	clients := append([]Client(nil), s.clients...)
	s.mu.Unlock()

	s.publishState(state)
	for _, c := range clients {
		c.OnStateChange(state)
	}
}

func (s *Source) publishState(state State) {
	s.bus.Publish(events.EventSourceState, events.Payload{
		"source": s.id,
		"state":  state.String(),
	})
}

// updateBusyState recomputes the busy state from attached client classes.
func (s *Source) updateBusyState() {
	busy := BusyIdle
	if s.HasClients(ClassUser) {
		busy = BusyBusy
	}

	s.mu.Lock()
	if s.busy == busy {
		s.mu.Unlock()
		return
	}
	s.busy = busy
	clients := append([]Client(nil), s.clients...)
	s.mu.Unlock()

	s.bus.Publish(events.EventSourceBusy, events.Payload{
		"source": s.id,
		"busy":   busy == BusyBusy,
	})
	for _, c := range clients {
		c.OnBusyStateChange(busy)
	}
}
