/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package bookmarks serves the receiver's frequency bookmarks from a JSON
// file. The file is picked from a path list, reloaded on modification and
// queryable by frequency range.
package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/telemetry"
)

// Bookmark marks a known station on the waterfall.
type Bookmark struct {
	Name       string `json:"name"`
	Frequency  int64  `json:"frequency"`
	Modulation string `json:"modulation"`
}

// DefaultPaths returns the bookmark file search order.
func DefaultPaths() []string {
	return []string{
		"/etc/openwebrx/bookmarks.json",
		"bookmarks.json",
	}
}

// Store loads bookmarks lazily and keeps them fresh. A modification time
// check on every read covers editors that bypass the fsnotify watcher.
type Store struct {
	paths  []string
	logger zerolog.Logger
	bus    *events.Bus

	mu        sync.Mutex
	bookmarks []Bookmark
	source    string
	mtime     time.Time
}

// NewStore creates a bookmark store reading from the given paths in order.
// With no paths the default locations are used.
func NewStore(paths []string, bus *events.Bus, logger zerolog.Logger) *Store {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	return &Store{
		paths:  paths,
		logger: logger.With().Str("component", "bookmarks").Logger(),
		bus:    bus,
	}
}

// All returns all bookmarks sorted by frequency.
func (s *Store) All() []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(false)
	return append([]Bookmark(nil), s.bookmarks...)
}

// InRange returns bookmarks with lo <= frequency < hi, sorted by frequency.
func (s *Store) InRange(lo, hi int64) []Bookmark {
	all := s.All()
	out := make([]Bookmark, 0, len(all))
	for _, b := range all {
		if b.Frequency >= lo && b.Frequency < hi {
			out = append(out, b)
		}
	}
	return out
}

// Watch reloads on file changes until ctx ends. The parent directories are
// watched so the file may appear, disappear or be replaced by rename.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]struct{})
	for _, path := range s.paths {
		dir := filepath.Dir(path)
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.Debug().Err(err).Str("dir", dir).Msg("not watching bookmark directory")
			continue
		}
		watched[dir] = struct{}{}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.isBookmarkFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.logger.Info().Str("file", event.Name).Str("op", event.Op.String()).Msg("bookmark file changed")
			s.mu.Lock()
			s.refreshLocked(true)
			s.mu.Unlock()
			s.bus.Publish(events.EventBookmarksReload, events.Payload{"file": event.Name})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("bookmark watcher error")
		}
	}
}

func (s *Store) isBookmarkFile(name string) bool {
	for _, path := range s.paths {
		if filepath.Clean(name) == filepath.Clean(path) {
			return true
		}
	}
	return false
}

// refreshLocked reloads the bookmark file when forced or when its
// modification time moved. Caller holds the lock.
func (s *Store) refreshLocked(force bool) {
	path, info := s.findFile()
	if path == "" {
		if s.source != "" {
			s.logger.Warn().Str("file", s.source).Msg("bookmark file gone")
		}
		s.bookmarks = nil
		s.source = ""
		s.mtime = time.Time{}
		return
	}

	if !force && path == s.source && info.ModTime().Equal(s.mtime) {
		return
	}

	loaded, err := loadFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", path).Msg("failed to load bookmarks")
		return
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Frequency < loaded[j].Frequency })
	s.bookmarks = loaded
	s.source = path
	s.mtime = info.ModTime()
	telemetry.BookmarkReloadsTotal.Inc()
	s.logger.Info().Str("file", path).Int("count", len(loaded)).Msg("bookmarks loaded")
}

// findFile returns the first existing path from the search order.
func (s *Store) findFile() (string, fs.FileInfo) {
	for _, path := range s.paths {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, info
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Err(err).Str("file", path).Msg("bookmark file not readable")
		}
	}
	return "", nil
}

func loadFile(path string) ([]Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bookmarks []Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}
