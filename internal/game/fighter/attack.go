package fighter

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/game/pose"
)

// HandlePointer feeds one pointer sample at screen position (x, y).
//
// Precondition: coordinates use y growing upward.
// Postcondition: samples are dropped while input is disabled or locked after a slap.
func (f *Fighter) HandlePointer(phase gesture.Phase, x, y float64) {
	if !f.inputEnabled {
		return
	}
	now := f.clock.Now()
	switch phase {
	case gesture.PhaseBegin:
		f.beginGesture(x, y, now)
	case gesture.PhaseMove:
		if !f.swipeActive {
			return
		}
		if f.role == RoleAttacker {
			f.attackMove(x, y, now)
		} else {
			f.blockMove(x, y, now)
		}
	case gesture.PhaseEnd, gesture.PhaseCancel:
		if !f.swipeActive {
			return
		}
		if f.role == RoleAttacker {
			f.attackEnd(x, y, now)
		} else {
			f.blockEnd()
		}
		f.swipeActive = false
		f.tracker.End()
	}
}

func (f *Fighter) beginGesture(x, y, now float64) {
	if f.role == RoleAttacker && f.inputLocked {
		return
	}
	f.suppressUntilTouch = false
	f.swipeActive = true
	f.windupTriggered = false
	f.slapPlayed = false
	f.tracker.Begin(x, y, now)
	if f.role == RoleAttacker {
		f.carry = f.currentHand()
		f.maxProgress = f.carry
		return
	}
	f.blockChosen = false
}

func (f *Fighter) attackMove(x, y, now float64) {
	if f.inputLocked {
		return
	}
	s := f.tracker.Sample(x, y, now)
	if f.pending != direction.None && f.tryReverseRelease(s, x, y) {
		return
	}
	dir := f.tracker.Classify(s, false)
	if dir == direction.None {
		return
	}
	if !f.windupTriggered {
		if f.pending != direction.None && dir != f.pending {
			return
		}
		f.startWindup(dir, now)
	}
	raw := f.tracker.WindupProgress(s, f.pending)
	p := clamp01(f.carry + raw*(1-f.carry))
	if p > f.maxProgress {
		f.maxProgress = p
	}
	f.hand = f.maxProgress
	f.poses.PlayWindup(f.pending, f.maxProgress)
}

// startWindup locks dir and keeps any carried hand progress.
func (f *Fighter) startWindup(dir direction.Direction, now float64) {
	if f.returning {
		f.carry = f.currentHand()
		f.maxProgress = math.Max(f.maxProgress, f.carry)
		f.returning = false
		f.windupReturn = nil
	}
	f.pending = dir
	f.pendingAt = now
	f.windupTriggered = true
	f.phase = PhaseWindupActive
	f.windupStart.Mark(now)
	f.tracker.Lock(dir)
	f.poses.PlayWindup(dir, f.maxProgress)
	f.logger.Debug("windup started", zap.Stringer("direction", dir), zap.Float64("carry", f.carry))
}

// tryReverseRelease fires or voids a slap on reverse intent. It reports
// whether the sample was consumed.
func (f *Fighter) tryReverseRelease(s gesture.Sample, x, y float64) bool {
	if !f.tracker.ReverseIntent(s) {
		return false
	}
	if f.suppressUntilTouch {
		return true
	}
	cur := f.currentHand()
	if math.Max(cur, f.maxProgress) < f.cfg.MinWindupForSlap {
		f.logger.Debug("slap voided below minimum windup",
			zap.Stringer("direction", f.pending),
			zap.Float64("windup", math.Max(cur, f.maxProgress)))
		f.clearWindupTracking()
		f.returning = false
		f.windupReturn = nil
		f.phase = PhaseIdle
		f.tracker.Rebase(x, y)
		return true
	}
	f.fire(f.pending, f.tracker.ReleaseSpeedCm(), 1, false)
	return true
}

func (f *Fighter) attackEnd(x, y, now float64) {
	s := f.tracker.Sample(x, y, now)
	if !f.windupTriggered {
		return
	}
	if f.pending != direction.None && f.tryReverseRelease(s, x, y) {
		return
	}
	canceled := !f.slapPlayed && f.pending != direction.None
	if canceled {
		f.phase = PhaseReturningAfterWindup
		f.beginWindupReturn()
	}
	f.lastReleaseTime.Mark(now)
	f.suppressUntilTouch = true
	if !canceled {
		f.pending = direction.None
	}
	f.windupTriggered = false
	f.maxProgress = 0
	f.carry = 0
	if canceled {
		f.tracker.Lock(f.pending)
	} else {
		f.tracker.Unlock()
	}
}

// beginWindupReturn starts the linear return of the hand to rest.
func (f *Fighter) beginWindupReturn() {
	from := math.Max(f.hand, f.maxProgress)
	secs := math.Max(0.001, f.cfg.WindupReturnSeconds)
	f.windupReturn = gween.New(float32(from), 0, float32(secs), ease.Linear)
	f.returning = true
	f.hand = from
	f.poses.Crossfade(pose.State{Category: pose.CategoryIdle}, secs, 0)
}

// fire commits a slap in dir.
func (f *Fighter) fire(dir direction.Direction, speedCm, multiplier float64, ai bool) {
	now := f.clock.Now()
	cur := f.currentHand()
	windup := math.Max(cur, f.maxProgress)
	power := f.cfg.SlapPower(speedCm)
	speed := f.cfg.PlaybackSpeed(power, dir) * math.Max(0.01, multiplier)
	start := f.cfg.SlapStart(dir, cur, ai)

	ev := SlapEvent{
		Direction:         dir,
		Windup01:          windup,
		SlapPower01:       power,
		WindupHoldSeconds: f.WindupHoldSeconds(),
		StartOffset:       start,
		PlaybackSpeed:     speed,
		At:                now,
	}

	f.phase = PhaseSlapActive
	f.inputLocked = true
	f.swipeActive = false
	f.slapPlayed = true
	f.returning = false
	f.windupReturn = nil
	f.slapDir = dir
	f.slapProgress = start
	f.slapSpeed = speed
	f.slapPower = power
	f.slapReturn.Clear()
	f.lastSlap = ev
	f.poses.PlaySlap(dir, start, speed)
	f.clearWindupTracking()

	f.logger.Debug("slap fired",
		zap.Stringer("direction", dir),
		zap.Float64("windup", windup),
		zap.Float64("power", power),
		zap.Float64("start", start),
		zap.Bool("ai", ai))
	if f.sink != nil && f.role == RoleAttacker {
		f.sink.OnSlapFired(f, ev)
	}
}

// InterruptSlap ends the swing early when it has reached minProgress.
//
// Postcondition: a slapping fighter at or past minProgress enters ReturningAfterSlap.
func (f *Fighter) InterruptSlap(minProgress float64) bool {
	if f.phase != PhaseSlapActive || f.SlapProgress01() < minProgress {
		return false
	}
	f.enterSlapReturn(f.clock.Now())
	return true
}

func (f *Fighter) enterSlapReturn(now float64) {
	f.phase = PhaseReturningAfterSlap
	f.inputLocked = false
	f.slapReturn.Arm(now, f.cfg.SlapReturnSeconds)
	f.poses.Crossfade(pose.State{Category: pose.CategoryIdle}, f.cfg.SlapReturnSeconds, 0)
}

// currentHand returns the hand progress used by combat and carry.
func (f *Fighter) currentHand() float64 {
	if f.phase == PhaseIdle && f.pending == direction.None && !f.windupTriggered && !f.inputLocked {
		return 0
	}
	if f.returning && f.phase == PhaseReturningAfterWindup && !f.windupTriggered && !f.inputLocked {
		return f.hand
	}
	return math.Max(f.hand, f.maxProgress)
}

func (f *Fighter) tickAttack(now, dt float64) {
	switch f.phase {
	case PhaseSlapActive:
		if f.cfg.SlapClipSeconds > 0 {
			f.slapProgress = clamp01(f.slapProgress + dt*f.slapSpeed/f.cfg.SlapClipSeconds)
		}
		if f.SlapProgress01() >= math.Max(0.95, f.cfg.ReturnStartProgress) {
			f.enterSlapReturn(now)
		}
	case PhaseReturningAfterSlap:
		if f.slapReturn.Sweep(now) {
			f.phase = PhaseIdle
			f.poses.PlayIdle()
		}
	}

	if f.returning && f.windupReturn != nil {
		v, done := f.windupReturn.Update(float32(dt))
		f.hand = float64(v)
		if done {
			f.returning = false
			f.windupReturn = nil
			f.hand = 0
			f.pending = direction.None
			f.tracker.Unlock()
			if !f.inputLocked && f.phase == PhaseReturningAfterWindup {
				f.phase = PhaseIdle
			}
		}
	} else if f.windupTriggered && f.swipeActive && f.pending != direction.None {
		f.hand = f.maxProgress
	} else if f.cfg.HandReleaseSeconds > 0 {
		f.hand = moveTowards(f.hand, 0, dt/f.cfg.HandReleaseSeconds)
	} else {
		f.hand = 0
	}

	if f.pending != direction.None && !f.windupTriggered && f.hand <= handRestThreshold &&
		now-f.pendingAt > f.cfg.SlapWindowSeconds {
		f.clearWindupTracking()
		if !f.inputLocked && f.phase == PhaseReturningAfterWindup {
			f.phase = PhaseIdle
		}
	}
	if f.phase == PhaseReturningAfterWindup && f.pending == direction.None && !f.swipeActive &&
		!f.returning && f.hand <= handRestThreshold {
		f.phase = PhaseIdle
	}
}

// BeginWindup starts an AI windup in dir from zero progress.
func (f *Fighter) BeginWindup(dir direction.Direction) {
	if f.role != RoleAttacker || dir == direction.None {
		f.logger.Debug("ignored BeginWindup", zap.Stringer("role", f.role), zap.Stringer("direction", dir))
		return
	}
	now := f.clock.Now()
	f.returning = false
	f.windupReturn = nil
	f.pending = dir
	f.pendingAt = now
	f.windupTriggered = true
	f.phase = PhaseWindupActive
	f.maxProgress = 0
	f.carry = 0
	f.hand = 0
	f.slapPlayed = false
	f.inputLocked = false
	f.swipeActive = true
	f.windupStart.Mark(now)
	f.tracker.Lock(dir)
	f.poses.PlayWindup(dir, 0)
}

// SetWindupProgress sets the AI windup directly.
func (f *Fighter) SetWindupProgress(v float64) {
	if f.role != RoleAttacker {
		return
	}
	f.maxProgress = clamp01(v)
	f.hand = f.maxProgress
	if f.pending != direction.None {
		f.poses.PlayWindup(f.pending, f.maxProgress)
	}
}

// TriggerSlap fires an AI slap in dir at the given release speed.
//
// Postcondition: below the minimum windup the windup is soft-cancelled instead.
func (f *Fighter) TriggerSlap(dir direction.Direction, speedCm, multiplier float64) {
	if f.role != RoleAttacker || dir == direction.None {
		return
	}
	if math.Max(f.currentHand(), f.maxProgress) < f.cfg.MinWindupForSlap {
		f.SoftCancelWindup()
		return
	}
	f.fire(dir, speedCm, multiplier, true)
}

// SoftCancelWindup abandons the AI windup and returns the hand smoothly.
func (f *Fighter) SoftCancelWindup() {
	if f.role == RoleAttacker && !f.inputLocked {
		f.phase = PhaseReturningAfterWindup
		f.beginWindupReturn()
	}
	f.clearWindupTracking()
	f.swipeActive = false
}

// CancelWindup abandons the windup and snaps the hand to rest.
func (f *Fighter) CancelWindup() {
	f.returning = false
	f.windupReturn = nil
	f.clearWindupTracking()
	f.swipeActive = false
	f.hand = 0
	if !f.inputLocked && (f.phase == PhaseWindupActive || f.phase == PhaseReturningAfterWindup) {
		f.phase = PhaseIdle
		f.poses.PlayIdle()
	}
}

func moveTowards(v, target, maxDelta float64) float64 {
	if math.Abs(target-v) <= maxDelta {
		return target
	}
	if target > v {
		return v + maxDelta
	}
	return v - maxDelta
}
