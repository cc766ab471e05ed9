// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit bounds request volume per identifier.
//
// FixedWindow counts requests in fixed windows that start at an identifier's
// first request and reset once the window has fully elapsed. Bursts of up to
// twice the limit are possible across a window boundary.
//
// State lives in the limiter value; nothing is global. Create one at process
// start and pass it to whatever needs it. Entries are never persisted.
package ratelimit

import (
	"sync"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultLimit is the default number of requests allowed per window.
	DefaultLimit = 50

	// DefaultWindow is the default window length.
	DefaultWindow = time.Minute
)

// =============================================================================
// TYPES
// =============================================================================

// Limiter decides whether a request from identifier may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(identifier string) bool
}

// Entry is the counter state for one identifier.
type Entry struct {
	Count       int
	WindowStart time.Time
}

// FixedWindow is an in-memory fixed-window Limiter.
type FixedWindow struct {
	// mu protects entries, limit and window.
	mu      sync.Mutex
	entries map[string]*Entry
	limit   int
	window  time.Duration

	now func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a FixedWindow limiter. Non-positive values select the defaults.
func New(limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &FixedWindow{
		entries: make(map[string]*Entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Default returns a limiter allowing 50 requests per minute.
func Default() *FixedWindow {
	return New(DefaultLimit, DefaultWindow)
}

// WithClock replaces the time source. Intended for tests.
func (fw *FixedWindow) WithClock(now func() time.Time) *FixedWindow {
	fw.mu.Lock()
	fw.now = now
	fw.mu.Unlock()
	return fw
}

// =============================================================================
// DECISIONS
// =============================================================================

// Allow applies the configured limit and window to identifier.
func (fw *FixedWindow) Allow(identifier string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.allowLocked(identifier, fw.limit, fw.window)
}

// AllowWithin applies an explicit limit and window to identifier. The entry
// is shared with Allow.
func (fw *FixedWindow) AllowWithin(identifier string, limit int, window time.Duration) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.allowLocked(identifier, limit, window)
}

func (fw *FixedWindow) allowLocked(identifier string, limit int, window time.Duration) bool {
	now := fw.now()

	entry, ok := fw.entries[identifier]
	if !ok || now.Sub(entry.WindowStart) >= window {
		fw.entries[identifier] = &Entry{Count: 1, WindowStart: now}
		return true
	}

	if entry.Count >= limit {
		return false
	}

	entry.Count++
	return true
}

// Remaining returns how many more requests identifier may make in its
// current window.
func (fw *FixedWindow) Remaining(identifier string) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	entry, ok := fw.entries[identifier]
	if !ok || fw.now().Sub(entry.WindowStart) >= fw.window {
		return fw.limit
	}

	remaining := fw.limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Get returns a copy of the entry for identifier.
func (fw *FixedWindow) Get(identifier string) (Entry, bool) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	entry, ok := fw.entries[identifier]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Limits returns the configured limit and window.
func (fw *FixedWindow) Limits() (int, time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.limit, fw.window
}

// SetLimits changes the limit and window. Existing entries keep their counts
// and are judged against the new values on their next request. Non-positive
// values are ignored.
func (fw *FixedWindow) SetLimits(limit int, window time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if limit > 0 {
		fw.limit = limit
	}
	if window > 0 {
		fw.window = window
	}
}

// =============================================================================
// EVICTION
// =============================================================================

// Sweep removes entries whose window has elapsed and returns how many were
// removed. An identifier that returns after a sweep starts a fresh window,
// which is exactly what it would have got anyway.
func (fw *FixedWindow) Sweep() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	removed := 0
	for id, entry := range fw.entries {
		if now.Sub(entry.WindowStart) >= fw.window {
			delete(fw.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (fw *FixedWindow) Len() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.entries)
}

// StartJanitor sweeps expired entries every interval until Close is called.
// A non-positive interval uses the window length.
func (fw *FixedWindow) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		_, interval = fw.Limits()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fw.Sweep()
			case <-fw.stop:
				return
			}
		}
	}()
}

// Close stops the janitor. It is safe to call more than once.
func (fw *FixedWindow) Close() error {
	fw.stopOnce.Do(func() { close(fw.stop) })
	return nil
}
