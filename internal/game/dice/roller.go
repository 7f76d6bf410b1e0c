package dice

// Range returns a uniform float in [lo, hi) drawn from src. When hi <= lo the
// result is lo.
//
// Precondition: src must be non-nil.
func Range(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + Unit(src)*(hi-lo)
}

// Chance reports whether a roll in [0, 1) falls below p.
//
// Postcondition: always false when p <= 0; always true when p >= 1.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return Unit(src) < p
}

// Weighted returns an index into weights chosen proportionally to each weight.
// Non-positive weights are never chosen.
//
// Postcondition: returns -1 when no weight is positive.
func Weighted(src Source, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	roll := Unit(src) * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	return last
}
