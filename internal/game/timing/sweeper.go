package timing

// Sweeper owns a named set of deadlines and clears expired ones in a single
// Tick. Registration order is the sweep order.
type Sweeper struct {
	entries []sweepEntry
}

type sweepEntry struct {
	name string
	dl   *Deadline
}

// Register adds dl under name.
//
// Precondition: dl must be non-nil and outlive the Sweeper.
func (s *Sweeper) Register(name string, dl *Deadline) {
	s.entries = append(s.entries, sweepEntry{name: name, dl: dl})
}

// Tick sweeps every registered deadline at now.
//
// Postcondition: returns the names of deadlines that expired on this tick, in registration order.
func (s *Sweeper) Tick(now float64) []string {
	var expired []string
	for _, e := range s.entries {
		if e.dl.Sweep(now) {
			expired = append(expired, e.name)
		}
	}
	return expired
}

// Snapshot returns the active deadlines with their remaining seconds.
func (s *Sweeper) Snapshot(now float64) map[string]float64 {
	out := make(map[string]float64, len(s.entries))
	for _, e := range s.entries {
		if e.dl.Pending(now) {
			out[e.name] = e.dl.Remaining(now)
		}
	}
	return out
}

// ClearAll deactivates every registered deadline.
func (s *Sweeper) ClearAll() {
	for _, e := range s.entries {
		e.dl.Clear()
	}
}
