// Package dice provides the randomness abstraction used by the opponent
// decision engine: uniform floats, ranges, and weighted chances drawn from an
// injectable Source.
package dice

// Source is the randomness provider for all rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// resolution is the number of discrete steps used when deriving a float in
// [0, 1) from Source.Intn.
const resolution = 1 << 30

// Unit returns a uniform float in [0, 1) drawn from src.
//
// Precondition: src must be non-nil.
// Postcondition: 0 <= result < 1.
func Unit(src Source) float64 {
	return float64(src.Intn(resolution)) / resolution
}
