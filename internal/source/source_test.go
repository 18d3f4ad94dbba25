/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package source

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/props"
)

type recordingClient struct {
	class  ClientClass
	states []State
	busy   []BusyState
	fails  int
	downs  int
}

func (c *recordingClient) ClientClass() ClientClass      { return c.class }
func (c *recordingClient) OnStateChange(s State)         { c.states = append(c.states, s) }
func (c *recordingClient) OnBusyStateChange(b BusyState) { c.busy = append(c.busy, b) }
func (c *recordingClient) OnEnable()                     {}
func (c *recordingClient) OnDisable()                    {}
func (c *recordingClient) OnFail()                       { c.fails++ }
func (c *recordingClient) OnShutdown()                   { c.downs++ }

func newTestSource(profiles map[string]map[string]any) *Source {
	store := props.NewStore(map[string]any{"center_freq": 145000000})
	return New("test", store, profiles, events.NewBus(), zerolog.Nop())
}

func TestActivateProfileAppliesProperties(t *testing.T) {
	src := newTestSource(map[string]map[string]any{
		"fm": {"center_freq": 100000000, "samp_rate": 2400000},
	})

	if err := src.ActivateProfile("fm"); err != nil {
		t.Fatalf("ActivateProfile: %v", err)
	}
	if got, _ := src.Props().Get("center_freq"); got != 100000000 {
		t.Errorf("center_freq = %v, want 100000000", got)
	}
	if src.CurrentProfile() != "fm" {
		t.Errorf("CurrentProfile = %q, want fm", src.CurrentProfile())
	}
}

func TestActivateUnknownProfile(t *testing.T) {
	src := newTestSource(nil)
	err := src.ActivateProfile("missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestBusyStateFollowsUserClients(t *testing.T) {
	src := newTestSource(nil)
	bg := &recordingClient{class: ClassBackground}
	user := &recordingClient{class: ClassUser}

	src.AddClient(bg)
	if len(bg.busy) != 0 {
		t.Fatalf("background client should not flip busy state")
	}
	src.AddClient(user)
	if len(bg.busy) != 1 || bg.busy[0] != BusyBusy {
		t.Fatalf("busy transitions = %v, want [BusyBusy]", bg.busy)
	}
	src.RemoveClient(user)
	if len(bg.busy) != 2 || bg.busy[1] != BusyIdle {
		t.Fatalf("busy transitions = %v, want trailing BusyIdle", bg.busy)
	}
}

func TestCheckStatusStopsIdleSource(t *testing.T) {
	src := newTestSource(nil)
	inactive := &recordingClient{class: ClassInactive}
	src.AddClient(inactive)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if src.State() != StateRunning {
		t.Fatalf("state = %v, want running", src.State())
	}

	src.CheckStatus()
	if src.State() != StateStopped {
		t.Errorf("state = %v, want stopped after idle check", src.State())
	}
}

func TestCheckStatusKeepsBusySourceRunning(t *testing.T) {
	src := newTestSource(nil)
	src.AddClient(&recordingClient{class: ClassBackground})

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.CheckStatus()
	if src.State() != StateRunning {
		t.Errorf("state = %v, want running with background client", src.State())
	}
}

func TestFailNotifiesClients(t *testing.T) {
	src := newTestSource(nil)
	c := &recordingClient{class: ClassBackground}
	src.AddClient(c)

	src.Fail()
	src.Fail()
	if c.fails != 1 {
		t.Errorf("OnFail calls = %d, want 1", c.fails)
	}
	if !src.IsFailed() {
		t.Error("IsFailed = false after Fail")
	}
}
