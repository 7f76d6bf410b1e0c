package timing

import "math"

// Deadline is a single timer concept: active until ExpiresAt, then cleared by
// the next Sweep.
//
// Invariant: when Active is false, ExpiresAt carries no meaning.
type Deadline struct {
	Active    bool
	ExpiresAt float64
}

// Arm activates the deadline to expire d seconds after now, replacing any
// previous expiry. Negative durations are treated as zero.
func (dl *Deadline) Arm(now, d float64) {
	dl.Active = true
	dl.ExpiresAt = now + math.Max(0, d)
}

// Extend arms the deadline so it expires no earlier than now+d.
//
// Postcondition: ExpiresAt == max(previous ExpiresAt if active, now+d).
func (dl *Deadline) Extend(now, d float64) {
	until := now + math.Max(0, d)
	if dl.Active && dl.ExpiresAt >= until {
		return
	}
	dl.Active = true
	dl.ExpiresAt = until
}

// Clear deactivates the deadline.
func (dl *Deadline) Clear() {
	dl.Active = false
	dl.ExpiresAt = 0
}

// Pending reports whether the deadline is active and has not yet expired at now.
func (dl Deadline) Pending(now float64) bool {
	return dl.Active && now < dl.ExpiresAt
}

// Remaining returns the seconds left before expiry, or 0.
func (dl Deadline) Remaining(now float64) float64 {
	if !dl.Pending(now) {
		return 0
	}
	return dl.ExpiresAt - now
}

// Sweep clears the deadline if it has expired at now.
//
// Postcondition: returns true exactly once per arming, on the sweep that clears it.
func (dl *Deadline) Sweep(now float64) bool {
	if dl.Active && now >= dl.ExpiresAt {
		dl.Clear()
		return true
	}
	return false
}

// Stamp records when something last happened.
type Stamp struct {
	Set bool
	At  float64
}

// Mark records now.
func (s *Stamp) Mark(now float64) {
	s.Set = true
	s.At = now
}

// MarkOnce records now only when the stamp is not already set.
func (s *Stamp) MarkOnce(now float64) {
	if !s.Set {
		s.Mark(now)
	}
}

// Reset clears the stamp.
func (s *Stamp) Reset() {
	s.Set = false
	s.At = 0
}

// Age returns the seconds since the stamp, or +Inf when unset.
func (s Stamp) Age(now float64) float64 {
	if !s.Set {
		return math.Inf(1)
	}
	return now - s.At
}

// Within reports whether the stamp is set and no more than window seconds old.
func (s Stamp) Within(now, window float64) bool {
	return s.Set && now-s.At <= math.Max(0, window)
}
