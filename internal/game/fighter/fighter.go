// Package fighter implements one combatant's attack and block state machine.
//
// A Fighter is driven either by pointer gestures (HandlePointer) or by the
// AI command API; both paths share the same phases, gates, and events.
// A Fighter is not safe for concurrent use; the owning session serialises
// every call.
package fighter

import (
	"math"

	"github.com/tanema/gween"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/game/pose"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

// handRestThreshold is the hand progress treated as back at rest.
const handRestThreshold = 0.02

// Fighter is the combat state of one combatant.
type Fighter struct {
	id     string
	name   string
	cfg    Config
	clock  timing.Clock
	logger *zap.Logger
	poses  pose.Player
	stats  *Stats
	sink   SlapSink

	tracker      *gesture.Tracker
	inputEnabled bool

	role  Role
	phase Phase

	lastTick float64
	ticked   bool

	// attack pipeline
	pending            direction.Direction
	pendingAt          float64
	windupTriggered    bool
	swipeActive        bool
	slapPlayed         bool
	suppressUntilTouch bool
	inputLocked        bool
	maxProgress        float64
	carry              float64
	hand               float64
	windupStart        timing.Stamp
	windupReturn       *gween.Tween
	returning          bool

	// slap playback
	slapDir         direction.Direction
	slapProgress    float64
	slapSpeed       float64
	slapPower       float64
	slapReturn      timing.Deadline
	lastSlap        SlapEvent
	lastReleaseTime timing.Stamp

	// block
	blockDir       direction.Direction
	blockHeld      bool
	blockReleasing bool
	blockHold      float64
	blockChosen    bool
	blockStart     timing.Stamp
	releaseTween   *gween.Tween
	hardLock       bool
	hardLockDir    direction.Direction
	hardLockTween  *gween.Tween
	reacquire      timing.Deadline
}

// New returns an idle Fighter with full stats.
//
// Precondition: clock must be non-nil.
// Postcondition: a nil logger is replaced by a no-op logger and a nil poses by pose.Nop.
func New(id, name string, role Role, cfg Config, gcfg gesture.Config, clock timing.Clock, poses pose.Player, logger *zap.Logger) *Fighter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poses == nil {
		poses = pose.Nop{}
	}
	return &Fighter{
		id:           id,
		name:         name,
		cfg:          cfg,
		clock:        clock,
		logger:       logger.With(zap.String("fighter", name)),
		poses:        poses,
		stats:        NewStats(cfg.MaxHealth, cfg.MaxStamina),
		tracker:      gesture.NewTracker(gcfg),
		inputEnabled: true,
		role:         role,
	}
}

// ID returns the fighter's identifier.
func (f *Fighter) ID() string { return f.id }

// Name returns the fighter's display name.
func (f *Fighter) Name() string { return f.name }

// Config returns the fighter's tuning.
func (f *Fighter) Config() Config { return f.cfg }

// Stats returns the fighter's mutable pools.
func (f *Fighter) Stats() *Stats { return f.stats }

// Poses returns the pose collaborator.
func (f *Fighter) Poses() pose.Player { return f.poses }

// SetSlapSink registers the receiver of SlapFired events.
func (f *Fighter) SetSlapSink(s SlapSink) { f.sink = s }

// SetInputEnabled gates pointer input; disabled input is dropped silently.
func (f *Fighter) SetInputEnabled(enabled bool) { f.inputEnabled = enabled }

// InputEnabled reports whether pointer input is accepted.
func (f *Fighter) InputEnabled() bool { return f.inputEnabled }

// Role returns the fighter's current role.
func (f *Fighter) Role() Role { return f.role }

// Phase returns the attack phase.
func (f *Fighter) Phase() Phase { return f.phase }

// SetRole switches sides and resets the state belonging to the old side.
//
// Postcondition: hard block lock and reacquire cooldown are cleared; an
// attacker has no block state and a defender has a neutral attack pipeline.
func (f *Fighter) SetRole(r Role) {
	f.role = r
	f.hardLock = false
	f.hardLockDir = direction.None
	f.hardLockTween = nil
	f.reacquire.Clear()
	f.swipeActive = false
	f.tracker.End()
	if r == RoleAttacker {
		f.resetBlock()
		f.poses.PlayIdle()
		return
	}
	f.resetAttack()
	if f.phase != PhaseSlapActive && f.phase != PhaseReturningAfterSlap {
		f.phase = PhaseIdle
	}
}

func (f *Fighter) resetAttack() {
	f.clearWindupTracking()
	f.returning = false
	f.windupReturn = nil
	f.inputLocked = false
	f.suppressUntilTouch = false
	f.slapPlayed = false
	f.hand = 0
}

// clearWindupTracking drops the pending direction and every windup measure.
func (f *Fighter) clearWindupTracking() {
	f.pending = direction.None
	f.windupTriggered = false
	f.maxProgress = 0
	f.carry = 0
	f.windupStart.Reset()
	f.tracker.Unlock()
}

// Tick advances time-driven state to now.
//
// Postcondition: slap playback, windup return, hand decay, pending expiry,
// hard block lock, and block release decay reflect now.
func (f *Fighter) Tick(now float64) {
	dt := 0.0
	if f.ticked {
		dt = math.Max(0, now-f.lastTick)
	}
	f.lastTick = now
	f.ticked = true

	if adv, ok := f.poses.(pose.Advancer); ok {
		adv.Advance(dt)
	}
	f.tickAttack(now, dt)
	f.tickBlock(now, dt)
}

// Windup01 implements CombatSignalSource.
func (f *Fighter) Windup01() float64 { return f.currentHand() }

// SlapPower01 returns the power of the most recent slap.
func (f *Fighter) SlapPower01() float64 { return f.slapPower }

// PendingDirection returns the locked attack direction, or None.
func (f *Fighter) PendingDirection() direction.Direction { return f.pending }

// LastSlapDirection returns the direction of the most recent slap.
func (f *Fighter) LastSlapDirection() direction.Direction { return f.slapDir }

// LastSlap returns the most recent SlapFired payload.
func (f *Fighter) LastSlap() SlapEvent { return f.lastSlap }

// IsSlapping reports whether the slap swing is playing.
func (f *Fighter) IsSlapping() bool { return f.phase == PhaseSlapActive }

// IsSlapAnimating reports whether the slap swing or its return is playing.
func (f *Fighter) IsSlapAnimating() bool {
	return f.phase == PhaseSlapActive || f.phase == PhaseReturningAfterSlap
}

// SlapProgress01 returns the normalised slap playback position. The pose
// collaborator's progress is preferred while it reports a slap pose.
func (f *Fighter) SlapProgress01() float64 {
	switch f.phase {
	case PhaseSlapActive:
		if f.poses.IsCategory(pose.CategorySlap) {
			return clamp01(f.poses.Progress01())
		}
		return f.slapProgress
	case PhaseReturningAfterSlap:
		return 1
	default:
		return 0
	}
}

// IsAttackCycleActive reports whether the attacker is anywhere in a windup,
// slap, or their returns.
func (f *Fighter) IsAttackCycleActive() bool {
	if f.role != RoleAttacker {
		return false
	}
	if f.phase == PhaseReturningAfterWindup && f.pending == direction.None && !f.windupTriggered &&
		!f.swipeActive && !f.inputLocked && f.hand <= handRestThreshold {
		return false
	}
	if f.phase != PhaseIdle || f.pending != direction.None {
		return true
	}
	return f.windupTriggered || f.swipeActive || f.inputLocked
}

// WindupHoldSeconds returns the time since the current windup started.
func (f *Fighter) WindupHoldSeconds() float64 {
	if !f.windupStart.Set {
		return 0
	}
	return math.Max(0, f.windupStart.Age(f.clock.Now()))
}

// Health01 implements CombatSignalSource.
func (f *Fighter) Health01() float64 { return f.stats.Health01() }

// Stamina01 implements CombatSignalSource.
func (f *Fighter) Stamina01() float64 { return f.stats.Stamina01() }

var _ CombatSignalSource = (*Fighter)(nil)
