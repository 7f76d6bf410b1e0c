// Package timing provides the injected game clock and the deadline records
// that replace free-running "until" timestamps across the combat components.
//
// All game time is expressed in float64 seconds since an arbitrary epoch.
package timing

import (
	"sync"
	"time"
)

// Clock reports the current game time in seconds.
//
// Implementations MUST be safe for concurrent use.
type Clock interface {
	Now() float64
}

// WallClock is a Clock backed by the monotonic system clock.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a WallClock whose epoch is the moment of construction.
//
// Postcondition: Now() returns 0 at construction and grows with real time.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns the seconds elapsed since construction.
func (w *WallClock) Now() float64 {
	return time.Since(w.start).Seconds()
}

// ManualClock is a Clock advanced explicitly by the caller. Used by the
// headless simulator and by tests.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// NewManualClock returns a ManualClock positioned at start.
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (m *ManualClock) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by dt seconds and returns the new time.
//
// Precondition: dt >= 0; negative values are ignored.
func (m *ManualClock) Advance(dt float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dt > 0 {
		m.now += dt
	}
	return m.now
}

// Set positions the clock at t. Moving backwards is ignored.
func (m *ManualClock) Set(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}
