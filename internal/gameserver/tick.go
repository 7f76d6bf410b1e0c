package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TickManager runs a periodic tick for each registered match.
// Callbacks run sequentially on the manager goroutine in ID order and
// receive the wall-clock seconds elapsed since the previous tick.
//
// Invariant: all callbacks are invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func(dt float64)
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]func(dt float64)),
	}
}

// Interval returns the tick period.
func (z *TickManager) Interval() time.Duration { return z.interval }

// RegisterTick registers a callback for id. Replaces any existing callback.
func (z *TickManager) RegisterTick(id string, fn func(dt float64)) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.ticks[id] = fn
}

// Unregister removes the tick callback for id.
func (z *TickManager) Unregister(id string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.ticks, id)
}

// Len returns the number of registered callbacks.
func (z *TickManager) Len() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.ticks)
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered tick callbacks are invoked once per interval.
func (z *TickManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(z.interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case at := <-ticker.C:
				dt := at.Sub(last).Seconds()
				last = at
				for _, fn := range z.snapshot() {
					fn(dt)
				}
			}
		}
	}()
}

func (z *TickManager) snapshot() []func(dt float64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	ids := make([]string, 0, len(z.ticks))
	for id := range z.ticks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]func(dt float64), 0, len(ids))
	for _, id := range ids {
		out = append(out, z.ticks[id])
	}
	return out
}
