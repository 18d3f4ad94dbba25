/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package bookmarks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
)

const sample = `[
	{"name": "DLF", "frequency": 153000, "modulation": "am"},
	{"name": "FT8 40m", "frequency": 7074000, "modulation": "usb"},
	{"name": "APRS", "frequency": 144800000, "modulation": "nfm"}
]`

func writeBookmarks(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndRangeQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookmarks.json")
	writeBookmarks(t, path, sample)

	s := NewStore([]string{path}, events.NewBus(), zerolog.Nop())

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("All() = %d bookmarks, want 3", len(all))
	}
	if all[0].Name != "DLF" {
		t.Errorf("bookmarks not sorted by frequency: first is %q", all[0].Name)
	}

	hf := s.InRange(3000000, 30000000)
	if len(hf) != 1 || hf[0].Name != "FT8 40m" {
		t.Errorf("InRange(hf) = %+v, want only FT8 40m", hf)
	}
	if got := s.InRange(0, 1); len(got) != 0 {
		t.Errorf("InRange(empty) = %+v, want none", got)
	}
}

func TestPathFallbackOrder(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.json")
	secondary := filepath.Join(dir, "secondary.json")
	writeBookmarks(t, secondary, sample)

	s := NewStore([]string{primary, secondary}, events.NewBus(), zerolog.Nop())
	if len(s.All()) != 3 {
		t.Fatal("secondary path not used while primary is missing")
	}

	writeBookmarks(t, primary, `[{"name": "only", "frequency": 1000, "modulation": "am"}]`)
	if got := s.All(); len(got) != 1 || got[0].Name != "only" {
		t.Errorf("primary path does not take precedence: %+v", got)
	}
}

func TestReloadOnModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookmarks.json")
	writeBookmarks(t, path, sample)

	s := NewStore([]string{path}, events.NewBus(), zerolog.Nop())
	if len(s.All()) != 3 {
		t.Fatal("initial load failed")
	}

	writeBookmarks(t, path, `[{"name": "new", "frequency": 1000, "modulation": "am"}]`)
	// mtime resolution can be coarse; force it forward
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if got := s.All(); len(got) != 1 || got[0].Name != "new" {
		t.Errorf("modified file not reloaded: %+v", got)
	}
}

func TestBrokenFileKeepsLastGoodState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookmarks.json")
	writeBookmarks(t, path, sample)

	s := NewStore([]string{path}, events.NewBus(), zerolog.Nop())
	if len(s.All()) != 3 {
		t.Fatal("initial load failed")
	}

	writeBookmarks(t, path, "{ not json")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if got := s.All(); len(got) != 3 {
		t.Errorf("broken file dropped previously loaded bookmarks: %d", len(got))
	}
}

func TestMissingFileYieldsEmpty(t *testing.T) {
	s := NewStore([]string{filepath.Join(t.TempDir(), "nope.json")}, events.NewBus(), zerolog.Nop())
	if got := s.All(); len(got) != 0 {
		t.Errorf("All() = %+v for missing file, want empty", got)
	}
}
