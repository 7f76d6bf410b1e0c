package ai

import (
	"math"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

// Signals is one tick's reading of the opponent, the engine's own fighter,
// and the match.
type Signals struct {
	Now float64

	// opponent
	Pending     direction.Direction
	Windup      float64
	CycleActive bool
	Slapping    bool
	SlapDir     direction.Direction
	SlapPower   float64

	// self
	Blocking      bool
	Releasing     bool
	BlockDir      direction.Direction
	SelfStamina01 float64

	// match
	UnresolvedHit bool
}

// ThreatState is every timer and latch the layered defense reads. Layers
// take it by value and return the next state.
type ThreatState struct {
	BlockLatch      timing.Deadline
	HardLatch       timing.Deadline
	SlapHold        timing.Deadline
	ReleaseGrace    timing.Deadline
	Commit          timing.Deadline
	MistakeOpen     timing.Deadline
	FeintReblock    timing.Deadline
	PendingSuppress timing.Deadline
	Reraise         timing.Deadline
	GreedyVuln      timing.Deadline

	LastThreat   timing.Stamp
	ThreatSeen   timing.Stamp
	CalmSince    timing.Stamp
	PendingStart timing.Stamp

	Latched                   bool
	RequirePendingReset       bool
	ReacquireLockUntilNeutral bool
	MistakeArmed              bool
	OpenForSlap               bool
	RaiseDelay                float64
	PendingCommitted          bool

	FeintActive bool
	FeintEnded  bool
	FeintStart  float64
	FeintEnd    float64
	FeintPeak   float64
	FeintCount  int

	LastIncoming direction.Direction
	PrevPending  direction.Direction
	PrevSlapping bool
	PrevWindup   float64
}

// defenseOpen reports whether a forced mistake is holding the defense open.
func (st ThreatState) defenseOpen(now float64) bool {
	return st.OpenForSlap || st.MistakeOpen.Pending(now)
}

// register adds every deadline of st to sw.
func (st *ThreatState) register(sw *timing.Sweeper) {
	sw.Register("block_latch", &st.BlockLatch)
	sw.Register("hard_latch", &st.HardLatch)
	sw.Register("slap_hold", &st.SlapHold)
	sw.Register("release_grace", &st.ReleaseGrace)
	sw.Register("commit", &st.Commit)
	sw.Register("mistake_open", &st.MistakeOpen)
	sw.Register("feint_reblock", &st.FeintReblock)
	sw.Register("pending_suppress", &st.PendingSuppress)
	sw.Register("reraise", &st.Reraise)
	sw.Register("greedy_vuln", &st.GreedyVuln)
}

// Roll draws a chance for purpose; layers receive it so they stay
// deterministic under a fixed source.
type Roll func(purpose string, p float64) bool

// Assessment is the threat layer's reading of the current tick.
type Assessment struct {
	SlapThreat bool
	Qualified  bool
	Immediate  bool
	PendingAge float64
}

// assessThreat observes feints, slap edges, and calm, then classifies the
// current threat.
//
// Postcondition: Immediate == SlapThreat || Qualified.
func assessThreat(sig Signals, st ThreatState, p Policy, tun Tuning, raiseDelay func() float64, roll Roll) (ThreatState, Assessment) {
	now := sig.Now
	switch {
	case sig.Slapping && sig.SlapDir != direction.None:
		st.LastIncoming = sig.SlapDir.Mirror()
	case sig.Pending != direction.None:
		st.LastIncoming = sig.Pending.Mirror()
	}

	if sig.CycleActive || sig.Pending != direction.None || sig.Windup > p.ReleaseWindupThreshold {
		st.ThreatSeen.Mark(now)
		st.CalmSince.Reset()
	} else {
		st.CalmSince.MarkOnce(now)
	}

	if sig.Slapping && !st.PrevSlapping {
		st.SlapHold.Arm(now, p.HoldAfterSlapStart)
		st.FeintActive = false
		st.FeintEnded = false
		st.FeintCount = 0
	}
	if !sig.Slapping && st.PrevSlapping {
		st.ReleaseGrace.Arm(now, p.ReleaseGrace)
		st.OpenForSlap = false
	}
	if !sig.Slapping {
		st = trackFeint(sig, st, p, roll)
	}

	if sig.Pending != direction.None && st.PrevPending == direction.None {
		st.PendingStart.Mark(now)
		st.RaiseDelay = raiseDelay()
		st.PendingCommitted = roll("block_commit", p.BlockChance)
	}
	if sig.Pending == direction.None {
		st.PendingStart.Reset()
		st.RequirePendingReset = false
	}
	if st.ReacquireLockUntilNeutral && !sig.Slapping && sig.Pending == direction.None &&
		!sig.CycleActive && sig.Windup <= p.NeutralWindup {
		st.ReacquireLockUntilNeutral = false
	}

	pendingThreat := sig.Pending != direction.None
	if st.RequirePendingReset || st.ReacquireLockUntilNeutral ||
		st.PendingSuppress.Pending(now) || st.FeintReblock.Pending(now) {
		pendingThreat = false
	}
	rising := sig.Windup >= st.PrevWindup-0.001

	a := Assessment{SlapThreat: sig.Slapping}
	a.Qualified = pendingThreat && st.PendingCommitted && sig.CycleActive &&
		sig.Windup >= tun.React && rising
	a.Immediate = a.SlapThreat || a.Qualified
	a.PendingAge = st.PendingStart.Age(now)
	if a.Immediate {
		st.LastThreat.Mark(now)
		st.HardLatch.Extend(now, p.HardLatch)
	}

	st.PrevPending = sig.Pending
	st.PrevSlapping = sig.Slapping
	st.PrevWindup = sig.Windup
	return st, a
}

// trackFeint follows a windup from its pending start until the attack cycle
// ends without a slap, and counts it as a feint when it was long and deep
// enough. Every FeintsForMistake feints may arm a defensive mistake while the
// defender is low on stamina.
func trackFeint(sig Signals, st ThreatState, p Policy, roll Roll) ThreatState {
	now := sig.Now
	if sig.Pending != direction.None {
		if !st.FeintActive || st.FeintEnded {
			st.FeintActive = true
			st.FeintEnded = false
			st.FeintStart = now
			st.FeintPeak = 0
		}
		st.FeintPeak = math.Max(st.FeintPeak, sig.Windup)
		return st
	}
	if !st.FeintActive {
		return st
	}
	if !st.FeintEnded {
		st.FeintEnded = true
		st.FeintEnd = now
	}
	if sig.CycleActive {
		return st
	}
	st.FeintActive = false
	st.FeintEnded = false
	if st.FeintEnd-st.FeintStart < p.FeintMinDuration || st.FeintPeak < p.FeintMinWindup {
		return st
	}
	st.FeintReblock.Arm(now, p.FeintReblockSuppress)
	st.FeintCount++
	if st.FeintCount >= p.FeintsForMistake {
		st.FeintCount = 0
		if sig.SelfStamina01 < p.LowStaminaForMistake && roll("feint_mistake", p.FeintMistakeChance) {
			st.MistakeArmed = true
		}
	}
	return st
}

// mistakeOverride opens the defense once against a weak real slap after
// enough feints armed a mistake. The defense stays open for the rest of that
// slap.
//
// Postcondition: when forced is true MistakeArmed is false and MistakeOpen is armed.
func mistakeOverride(sig Signals, st ThreatState, p Policy) (ThreatState, bool) {
	if !st.MistakeArmed || !sig.Slapping || sig.SlapPower >= p.MistakeMaxIncomingPower || !sig.Blocking {
		return st, false
	}
	st.MistakeArmed = false
	st.MistakeOpen.Arm(sig.Now, p.MistakeOpen)
	st.OpenForSlap = true
	st.Latched = false
	st.BlockLatch.Clear()
	st.HardLatch.Clear()
	return st, true
}

// LatchVerdict is the latch layer's outcome.
type LatchVerdict int

const (
	// LatchNone defers to the raise-eligibility layer.
	LatchNone LatchVerdict = iota
	// LatchHold raises or keeps the block under hard lock.
	LatchHold
	// LatchKeep keeps an existing block only.
	LatchKeep
	// LatchDrop clears the hard lock and defers.
	LatchDrop
)

// threatLatch keeps the block up through momentary gaps in the threat
// signal.
func threatLatch(sig Signals, st ThreatState, a Assessment, p Policy, tun Tuning) (ThreatState, LatchVerdict) {
	now := sig.Now
	if st.defenseOpen(now) {
		return st, LatchNone
	}
	if a.Immediate || sig.UnresolvedHit {
		st.Latched = true
		st.BlockLatch.Extend(now, p.ThreatTail+tun.LatchExtra)
		return st, LatchHold
	}
	if st.Latched && st.BlockLatch.Pending(now) {
		if sig.Blocking {
			return st, LatchKeep
		}
		st.Latched = false
		st.BlockLatch.Clear()
		return st, LatchDrop
	}
	if st.Latched {
		st.Latched = false
		return st, LatchDrop
	}
	return st, LatchNone
}

// RaiseVerdict is the raise-eligibility layer's outcome.
type RaiseVerdict int

const (
	// RaiseIdle leaves the fighter unblocked.
	RaiseIdle RaiseVerdict = iota
	// RaiseHold raises or keeps the block under hard lock.
	RaiseHold
	// RaiseWait keeps whatever block exists without touching it.
	RaiseWait
	// RaiseRelax clears the hard lock and keeps a held block.
	RaiseRelax
	// RaiseRelease clears the hard lock and ends the block.
	RaiseRelease
)

// raiseEligibility decides whether to raise, keep, or release the block.
//
// Postcondition: RaiseRelease arms the reraise cooldown and the pending
// suppressions so a release is never followed by an immediate re-raise.
func raiseEligibility(sig Signals, st ThreatState, a Assessment, p Policy) (ThreatState, RaiseVerdict) {
	now := sig.Now
	if st.defenseOpen(now) {
		return st, RaiseIdle
	}
	if sig.Releasing {
		return st, RaiseIdle
	}
	inReraise := st.Reraise.Pending(now)
	canRaise := a.SlapThreat || (a.Qualified && a.PendingAge >= math.Max(st.RaiseDelay, p.PendingArm))
	if !sig.Blocking && inReraise {
		canRaise = false
	}
	canKeep := sig.Blocking && !(inReraise && !a.SlapThreat && !sig.UnresolvedHit)
	shouldKeep := a.Immediate || sig.UnresolvedHit

	switch {
	case shouldKeep && (canKeep || canRaise):
		return st, RaiseHold
	case shouldKeep:
		return st, RaiseWait
	case sig.Blocking && shouldKeepForThreat(sig, st, p):
		return st, RaiseRelax
	}
	if sig.Blocking && st.CalmSince.Set && st.CalmSince.Age(now) >= p.CalmReleaseDelay {
		st.Reraise.Arm(now, p.ReraiseCooldown)
		st.PendingSuppress.Arm(now, p.PendingReraiseSuppress)
		st.RequirePendingReset = sig.Pending != direction.None
		st.ReacquireLockUntilNeutral = true
		st.Latched = false
		return st, RaiseRelease
	}
	if sig.Blocking {
		return st, RaiseRelax
	}
	return st, RaiseIdle
}

// shouldKeepForThreat reports whether a held block should survive a tick
// with no immediate threat.
func shouldKeepForThreat(sig Signals, st ThreatState, p Policy) bool {
	now := sig.Now
	switch {
	case st.defenseOpen(now):
		return false
	case st.HardLatch.Pending(now), st.Commit.Pending(now):
		return true
	case st.LastThreat.Within(now, p.NoDrop):
		return true
	case sig.Slapping:
		return true
	case st.ThreatSeen.Within(now, p.ThreatMemory):
		return true
	case sig.Windup > p.ReleaseWindupThreshold:
		return true
	case st.SlapHold.Pending(now), st.ReleaseGrace.Pending(now):
		return true
	}
	return false
}

// raiseDelayFor returns the pending-threat raise delay: the tuned delay, a
// greedy-vulnerability penalty, and a stamina-banded chance of an extra
// penalty.
func raiseDelayFor(base, stamina01 float64, greedy bool, p Policy, roll Roll) float64 {
	d := base
	if greedy {
		d += p.GreedyRaiseDelayPenalty
	}
	var chance float64
	switch {
	case stamina01 < 0.15:
		chance = 0.3
	case stamina01 < 0.30:
		chance = 0.2
	case stamina01 < 0.50:
		chance = 0.1
	}
	if chance > 0 && roll("raise_delay_penalty", chance) {
		d += p.RaiseDelayPenalty
	}
	return d
}
