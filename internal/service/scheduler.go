/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package service runs background control of receiver sources. A Scheduler
// watches one source's configuration and, while no interactive user holds the
// hardware, keeps the source tuned to whatever profile its schedule demands.
package service

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/props"
	"github.com/doccodyblue/openwebrx/internal/schedule"
	"github.com/doccodyblue/openwebrx/internal/source"
	"github.com/doccodyblue/openwebrx/internal/telemetry"
)

// defaultSelectionDelay debounces profile selection after configuration or
// frequency changes, so a burst of property updates triggers one run.
const defaultSelectionDelay = 10 * time.Second

// ManagedSource is the slice of a receiver source the scheduler drives.
// *source.Source satisfies it; tests substitute a fake.
type ManagedSource interface {
	ID() string
	Props() *props.Store
	IsEnabled() bool
	IsFailed() bool
	HasClients(classes ...source.ClientClass) bool
	ActivateProfile(id string) error
	Start() error
	AddClient(c source.Client)
	RemoveClient(c source.Client)
	CheckStatus()
}

// Scheduler drives one source from its configured schedule. It attaches to
// the source as a background-class client and never preempts interactive
// users. All state transitions of a Scheduler are serialized on its mutex;
// distinct schedulers are fully independent.
type Scheduler struct {
	src    ManagedSource
	logger zerolog.Logger

	// selectionDelay is defaultSelectionDelay outside of tests.
	selectionDelay time.Duration

	mu       sync.Mutex
	schedule schedule.Schedule
	current  schedule.Entry
	timer    *time.Timer
	subs     []*props.Subscription
	stopped  bool
}

// NewScheduler wires a scheduler to the source's property store and runs an
// initial selection. Call Shutdown to detach.
func NewScheduler(src ManagedSource, logger zerolog.Logger) *Scheduler {
	s := &Scheduler{
		src:            src,
		logger:         logger.With().Str("component", "scheduler").Str("source", src.ID()).Logger(),
		selectionDelay: defaultSelectionDelay,
	}

	src.AddClient(s)

	store := src.Props()
	s.subs = append(s.subs,
		store.Wire(func(key string, _ any) { s.onFrequencyChange() }, "center_freq", "samp_rate"),
		store.WireProperty("scheduler", func(any) { s.parseSchedule() }),
	)
	return s
}

// parseSchedule rebuilds the schedule from the current configuration and
// queues a selection run. The store is always re-read: a bare legacy
// "schedule" block without a "scheduler" key still yields a schedule. A
// removed or unparseable configuration clears the schedule, which releases
// the scheduler's claim on the source.
func (s *Scheduler) parseSchedule() {
	parsed := schedule.Parse(s.src.Props(), s.logger)

	s.mu.Lock()
	s.schedule = parsed
	if parsed == nil {
		s.current = nil
		s.cancelTimerLocked()
	}
	s.mu.Unlock()

	if parsed == nil {
		s.logger.Debug().Msg("no schedule configured")
		s.src.CheckStatus()
		return
	}
	s.queueSelection(time.Time{})
}

// onFrequencyChange re-queues selection after tuning parameters move, e.g.
// when an interactive user retunes or another profile gets activated.
func (s *Scheduler) onFrequencyChange() {
	s.queueSelection(time.Time{})
}

// queueSelection arms the single pending selection timer. A zero deadline
// means "soon", after the debounce delay; a concrete deadline replaces any
// earlier pending run.
func (s *Scheduler) queueSelection(at time.Time) {
	if !s.src.IsEnabled() || s.src.IsFailed() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.schedule == nil {
		return
	}

	delay := s.selectionDelay
	if !at.IsZero() {
		delay = time.Until(at)
		if delay < 0 {
			delay = 0
		}
	}

	s.cancelTimerLocked()
	s.timer = time.AfterFunc(delay, s.selectProfile)
	s.logger.Debug().Dur("delay", delay).Msg("profile selection queued")
}

// selectProfile is the scheduler's decision step. It runs from the timer
// goroutine. Source calls happen with the mutex released, since activating a
// profile writes tuning properties and re-enters queueSelection.
func (s *Scheduler) selectProfile() {
	now := time.Now()
	// Queried before taking the mutex: HasClients re-reads client classes,
	// including this scheduler's own.
	busy := s.src.HasClients(source.ClassUser)

	s.mu.Lock()
	if s.stopped || s.schedule == nil {
		s.mu.Unlock()
		return
	}
	telemetry.SchedulerSelectionsTotal.WithLabelValues(s.src.ID()).Inc()

	if busy {
		// Interactive users own the hardware. The claim stays untouched
		// and no timer is re-armed; the busy to idle transition triggers
		// the next run.
		s.cancelTimerLocked()
		s.mu.Unlock()

		s.logger.Debug().Msg("source in use, standing by")
		return
	}

	entry := s.schedule.CurrentEntry(now)
	s.current = entry

	if entry == nil {
		var retry time.Time
		if next := s.schedule.NextEntry(now); next != nil {
			retry = next.NextActivation(now)
		}
		s.mu.Unlock()

		s.logger.Debug().Time("next", retry).Msg("no active schedule window")
		if !retry.IsZero() {
			s.queueSelection(retry)
		}
		s.src.CheckStatus()
		return
	}

	profile := entry.Profile()
	end := entry.ScheduledEnd(now)
	s.mu.Unlock()

	s.logger.Info().Str("profile", profile).Time("until", end).Msg("activating scheduled profile")

	if err := s.src.ActivateProfile(profile); err != nil {
		if errors.Is(err, source.ErrProfileNotFound) {
			// The schedule references a profile that no longer exists.
			// Keep the window claim and retry at the window end.
			s.logger.Warn().Err(err).Msg("scheduled profile missing")
		} else {
			s.logger.Error().Err(err).Msg("profile activation failed")
		}
	} else {
		telemetry.ProfileActivationsTotal.WithLabelValues(s.src.ID(), profile).Inc()
		if err := s.src.Start(); err != nil {
			s.logger.Error().Err(err).Msg("source start failed")
		}
	}

	// Re-arm for the window end. Property writes from the activation may
	// already have queued a debounce run; the deadline run replaces it.
	s.queueSelection(end)
	s.src.CheckStatus()
}

// CurrentProfile returns the profile of the currently claimed window, if any.
func (s *Scheduler) CurrentProfile() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", false
	}
	return s.current.Profile(), true
}

// Refresh forces an immediate selection run, bypassing the debounce delay.
func (s *Scheduler) Refresh() {
	s.queueSelection(time.Now())
}

// Shutdown detaches the scheduler from its source. Idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.current = nil
	s.cancelTimerLocked()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	s.src.RemoveClient(s)
	s.logger.Debug().Msg("scheduler shut down")
}

func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ClientClass implements source.Client. The scheduler counts as an active
// background client only while it claims a schedule window, so an idle
// schedule lets the source power down.
func (s *Scheduler) ClientClass() source.ClientClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return source.ClassBackground
	}
	return source.ClassInactive
}

// OnStateChange implements source.Client.
func (s *Scheduler) OnStateChange(state source.State) {
	if state == source.StateStopping {
		s.queueSelection(time.Time{})
	}
}

// OnBusyStateChange implements source.Client. When the last interactive user
// leaves, the schedule may reclaim the source.
func (s *Scheduler) OnBusyStateChange(state source.BusyState) {
	if state == source.BusyIdle {
		s.queueSelection(time.Time{})
	}
}

// OnEnable implements source.Client.
func (s *Scheduler) OnEnable() {
	s.queueSelection(time.Time{})
}

// OnDisable implements source.Client. Pending selections are cancelled; the
// current activation stays as it is.
func (s *Scheduler) OnDisable() {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.mu.Unlock()
}

// OnFail implements source.Client.
func (s *Scheduler) OnFail() { s.Shutdown() }

// OnShutdown implements source.Client.
func (s *Scheduler) OnShutdown() { s.Shutdown() }
