package fighter

import "github.com/cory-johannsen/slapfight/internal/game/direction"

// Role is a fighter's side of the current exchange.
type Role int

const (
	RoleAttacker Role = iota
	RoleDefender
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleAttacker:
		return "attacker"
	case RoleDefender:
		return "defender"
	default:
		return "unknown"
	}
}

// Other returns the complementary role.
func (r Role) Other() Role {
	if r == RoleAttacker {
		return RoleDefender
	}
	return RoleAttacker
}

// Phase is the attacker's position in the windup/slap cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWindupActive
	PhaseReturningAfterWindup
	PhaseSlapActive
	PhaseReturningAfterSlap
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWindupActive:
		return "windup_active"
	case PhaseReturningAfterWindup:
		return "returning_after_windup"
	case PhaseSlapActive:
		return "slap_active"
	case PhaseReturningAfterSlap:
		return "returning_after_slap"
	default:
		return "unknown"
	}
}

// SlapEvent describes a committed slap.
type SlapEvent struct {
	Direction         direction.Direction
	Windup01          float64
	SlapPower01       float64
	WindupHoldSeconds float64
	StartOffset       float64
	PlaybackSpeed     float64
	At                float64
}

// SlapSink receives slaps synchronously as they are fired.
type SlapSink interface {
	OnSlapFired(f *Fighter, ev SlapEvent)
}

// CombatSignalSource is the read-only view of a fighter that opponents and
// arbitration consume.
type CombatSignalSource interface {
	ID() string
	Role() Role
	Phase() Phase
	PendingDirection() direction.Direction
	LastSlapDirection() direction.Direction
	// Windup01 is the hand progress combat uses, 0 when the attack pipeline is neutral.
	Windup01() float64
	SlapPower01() float64
	// IsSlapping reports whether the slap swing itself is playing.
	IsSlapping() bool
	// IsSlapAnimating reports whether the slap swing or its return is playing.
	IsSlapAnimating() bool
	SlapProgress01() float64
	IsAttackCycleActive() bool
	IsBlocking() bool
	IsBlockReleasing() bool
	BlockDirection() direction.Direction
	BlockHold01() float64
	BlockHoldSeconds() float64
	IsHardBlockLocked() bool
	Health01() float64
	Stamina01() float64
}
