// Package pose abstracts the animation collaborator a fighter drives.
//
// The combat simulation never reads transforms; it only requests poses and
// samples normalised playback progress.
package pose

import "github.com/cory-johannsen/slapfight/internal/game/direction"

// Category groups poses by the kind of motion they show.
type Category int

const (
	CategoryIdle Category = iota
	CategoryWindup
	CategorySlap
	CategoryBlock
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryIdle:
		return "idle"
	case CategoryWindup:
		return "windup"
	case CategorySlap:
		return "slap"
	case CategoryBlock:
		return "block"
	default:
		return "unknown"
	}
}

// State identifies one pose request.
type State struct {
	Category  Category
	Direction direction.Direction
}

// Player receives pose requests from a fighter.
type Player interface {
	// PlayWindup holds the windup pose for dir at normalised progress.
	PlayWindup(dir direction.Direction, progress float64)
	// PlaySlap plays the slap clip for dir from start at the given speed multiplier.
	PlaySlap(dir direction.Direction, start, speed float64)
	// PlayBlock holds the block pose for dir at normalised hold.
	PlayBlock(dir direction.Direction, hold float64)
	// PlayIdle returns to the idle pose.
	PlayIdle()
	// Crossfade blends into state over seconds, starting at normalised start.
	Crossfade(state State, seconds, start float64)
	// Progress01 returns the normalised time of the current pose.
	Progress01() float64
	// IsCategory reports whether the current pose belongs to c.
	IsCategory(c Category) bool
}

// Advancer is implemented by players that need explicit time steps.
type Advancer interface {
	Advance(dt float64)
}

// Nop is a Player that ignores every request.
type Nop struct{}

func (Nop) PlayWindup(direction.Direction, float64) {}
func (Nop) PlaySlap(direction.Direction, float64, float64) {}
func (Nop) PlayBlock(direction.Direction, float64) {}
func (Nop) PlayIdle() {}
func (Nop) Crossfade(State, float64, float64) {}
func (Nop) Progress01() float64 { return 0 }
func (Nop) IsCategory(Category) bool { return false }
