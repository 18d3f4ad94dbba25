/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package service

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/props"
	"github.com/doccodyblue/openwebrx/internal/source"
)

func TestRegistryPairsSchedulerWithSource(t *testing.T) {
	r := NewRegistry(events.NewBus(), zerolog.Nop())
	src := source.New("airspy", props.NewStore(nil), nil, events.NewBus(), zerolog.Nop())

	if err := r.Register(src); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(src); err == nil {
		t.Error("duplicate registration accepted")
	}

	if sched, ok := r.Scheduler("airspy"); !ok || sched == nil {
		t.Fatal("no scheduler paired with registered source")
	}
	if got, ok := r.Get("airspy"); !ok || got != src {
		t.Error("Get did not return the registered source")
	}

	r.Unregister("airspy")
	if _, ok := r.Scheduler("airspy"); ok {
		t.Error("scheduler survived unregistration")
	}
	r.Unregister("airspy") // no-op
}

func TestRegistryLookupDuringRegistration(t *testing.T) {
	r := NewRegistry(events.NewBus(), zerolog.Nop())
	defer r.Shutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if sched, ok := r.Scheduler("airspy"); ok && sched == nil {
				t.Error("lookup observed a source without a scheduler")
				return
			}
		}
	}()

	src := source.New("airspy", props.NewStore(nil), nil, events.NewBus(), zerolog.Nop())
	if err := r.Register(src); err != nil {
		t.Fatalf("Register: %v", err)
	}
	<-done
}

func TestRegistryLoadSettings(t *testing.T) {
	r := NewRegistry(events.NewBus(), zerolog.Nop())
	defer r.Shutdown()

	settings := map[string]any{
		"receiver_gps": map[string]any{"lat": 52.52, "lon": 13.4},
		"sdrs": map[string]any{
			"rtlsdr": map[string]any{
				"name": "RTL-SDR",
				"profiles": map[string]any{
					"wfm": map[string]any{"center_freq": 100000000},
				},
			},
		},
	}

	if err := r.LoadSettings(settings); err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}

	src, ok := r.Get("rtlsdr")
	if !ok {
		t.Fatal("rtlsdr not registered")
	}
	if lat, ok := src.Props().Float("latitude"); !ok || lat != 52.52 {
		t.Errorf("latitude = %v/%v, want 52.52", lat, ok)
	}
	if err := src.ActivateProfile("wfm"); err != nil {
		t.Errorf("profile from settings not usable: %v", err)
	}
	if len(r.Sources()) != 1 {
		t.Errorf("Sources() = %d entries, want 1", len(r.Sources()))
	}
}
