/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package props implements the live property store backing each receiver
// source. Values are read by key at evaluation time, never snapshotted, and
// subscribers are notified synchronously on every change.
package props

import (
	"sync"
)

// Store is a concurrency-safe key/value view with change subscriptions.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	keys map[string]struct{} // empty means all keys
	cb   func(key string, value any)
}

// Subscription is a handle for a wired callback. Cancel is idempotent.
type Subscription struct {
	once  sync.Once
	store *Store
	id    int
}

// Cancel releases the subscription. Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
	})
}

// NewStore creates a property store seeded with initial values.
func NewStore(initial map[string]any) *Store {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Store{
		values: values,
		subs:   make(map[int]*subscriber),
	}
}

// Get returns the current value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns all present property keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Set stores a value and notifies matching subscribers synchronously.
// Setting an identical value still notifies; the store does not compare.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	notify := s.matching(key)
	s.mu.Unlock()

	for _, sub := range notify {
		sub.cb(key, value)
	}
}

// Delete removes a key and notifies matching subscribers with a nil value.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	notify := s.matching(key)
	s.mu.Unlock()

	if !existed {
		return
	}
	for _, sub := range notify {
		sub.cb(key, nil)
	}
}

// matching collects subscribers interested in key. Caller holds the lock.
func (s *Store) matching(key string) []*subscriber {
	var out []*subscriber
	for _, sub := range s.subs {
		if len(sub.keys) == 0 {
			out = append(out, sub)
			continue
		}
		if _, ok := sub.keys[key]; ok {
			out = append(out, sub)
		}
	}
	return out
}

// Wire subscribes cb to changes of the given keys. With no keys the callback
// fires for every change. The callback runs on the mutating goroutine.
func (s *Store) Wire(cb func(key string, value any), keys ...string) *Subscription {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscriber{keys: keySet, cb: cb}
	s.mu.Unlock()

	return &Subscription{store: s, id: id}
}

// WireProperty subscribes cb to a single key and invokes it immediately with
// the current value (nil if unset), matching the store's wiring contract for
// configuration blocks.
func (s *Store) WireProperty(key string, cb func(value any)) *Subscription {
	sub := s.Wire(func(_ string, value any) { cb(value) }, key)
	current, _ := s.Get(key)
	cb(current)
	return sub
}

// Float reads a numeric property, converting integer JSON values as needed.
func (s *Store) Float(key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String reads a string property.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Map reads a nested configuration block.
func (s *Store) Map(key string) (map[string]any, bool) {
	v, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
