/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/bookmarks"
	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/props"
	"github.com/doccodyblue/openwebrx/internal/service"
	"github.com/doccodyblue/openwebrx/internal/source"
)

func newTestAPI(t *testing.T) (*API, *service.Registry) {
	t.Helper()

	bus := events.NewBus()
	registry := service.NewRegistry(bus, zerolog.Nop())
	t.Cleanup(registry.Shutdown)

	src := source.New("rtlsdr", props.NewStore(nil), map[string]map[string]any{
		"wfm": {"center_freq": 100000000},
	}, bus, zerolog.Nop())
	if err := registry.Register(src); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bookmarks.json")
	content := `[
		{"name": "DLF", "frequency": 153000, "modulation": "am"},
		{"name": "APRS", "frequency": 144800000, "modulation": "nfm"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	bm := bookmarks.NewStore([]string{path}, bus, zerolog.Nop())

	return New(registry, nil, bm, nil, zerolog.Nop()), registry
}

func doRequest(t *testing.T, a *API, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	a.Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, a, http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["sdrs"] != float64(1) {
		t.Errorf("sdrs = %v, want 1", body["sdrs"])
	}
	if body["version"] == "" {
		t.Error("version missing from status")
	}
}

func TestListSources(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, a, http.MethodGet, "/api/sdrs/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body []sourceStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 1 || body[0].ID != "rtlsdr" {
		t.Fatalf("sources = %+v, want single rtlsdr", body)
	}
	if body[0].State != "stopped" {
		t.Errorf("state = %q, want stopped", body[0].State)
	}
}

func TestGetSourceNotFound(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, a, http.MethodGet, "/api/sdrs/nope/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBookmarksRangeFilter(t *testing.T) {
	a, _ := newTestAPI(t)

	rec := doRequest(t, a, http.MethodGet, "/api/bookmarks")
	var all []bookmarks.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all bookmarks = %d, want 2", len(all))
	}

	rec = doRequest(t, a, http.MethodGet, "/api/bookmarks?lo=100000&hi=200000")
	var filtered []bookmarks.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &filtered); err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Name != "DLF" {
		t.Errorf("filtered = %+v, want only DLF", filtered)
	}

	rec = doRequest(t, a, http.MethodGet, "/api/bookmarks?lo=abc&hi=1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d for invalid lo, want 400", rec.Code)
	}
}

func TestClientsReportBackgroundClaims(t *testing.T) {
	a, registry := newTestAPI(t)

	rec := doRequest(t, a, http.MethodGet, "/api/clients")
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("clients body without claims = %q, want empty array", got)
	}

	src, ok := registry.Get("rtlsdr")
	if !ok {
		t.Fatal("rtlsdr not registered")
	}
	src.Props().Set("samp_rate", 2400000)
	src.Props().Set("scheduler", map[string]any{
		"type":     "static",
		"schedule": map[string]any{"0000-2359": "wfm"},
	})
	doRequest(t, a, http.MethodPost, "/api/sdrs/rtlsdr/schedule/refresh")

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doRequest(t, a, http.MethodGet, "/api/clients")
		var body []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if len(body) == 1 {
			if body[0]["source"] != "rtlsdr" || body[0]["type"] != "background" {
				t.Fatalf("client entry = %+v", body[0])
			}
			if body[0]["profile"] != "wfm" {
				t.Errorf("profile = %v, want wfm", body[0]["profile"])
			}
			if body[0]["center_freq"] != float64(100000000) {
				t.Errorf("center_freq = %v, want 100000000", body[0]["center_freq"])
			}
			if body[0]["samp_rate"] != float64(2400000) {
				t.Errorf("samp_rate = %v, want 2400000", body[0]["samp_rate"])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the background claim to appear")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSpotsEmptyWithoutCluster(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, a, http.MethodGet, "/api/spots")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("spots body = %q, want empty array", got)
	}
}

func TestScheduleRefresh(t *testing.T) {
	a, _ := newTestAPI(t)

	rec := doRequest(t, a, http.MethodPost, "/api/sdrs/rtlsdr/schedule/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	rec = doRequest(t, a, http.MethodPost, "/api/sdrs/nope/schedule/refresh")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown source, want 404", rec.Code)
	}
}
