package fighter

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/pose"
)

// blockMove picks or retargets the block from frame motion and raises the hold.
func (f *Fighter) blockMove(x, y, now float64) {
	s := f.tracker.Sample(x, y, now)
	dir := f.tracker.Classify(s, true)
	if dir == direction.None {
		return
	}
	if !f.blockChosen || dir != f.blockDir {
		if !f.blockChosen || !f.blockHeld {
			f.blockHold = 0
			f.blockStart.Mark(now)
		}
		f.blockDir = dir
		f.blockChosen = true
		f.blockHeld = true
		f.blockReleasing = false
		f.releaseTween = nil
		f.tracker.Rebase(x, y)
		f.poses.PlayBlock(dir, f.blockHold)
		return
	}
	if h := f.tracker.DistanceProgress(s, dir, true); h > f.blockHold {
		f.blockHold = h
	}
	f.poses.PlayBlock(dir, f.blockHold)
}

func (f *Fighter) blockEnd() {
	f.releaseBlock()
	f.blockChosen = false
}

// releaseBlock starts the linear decay of a held block.
func (f *Fighter) releaseBlock() {
	if !f.blockHeld {
		if !f.blockReleasing {
			f.resetBlock()
		}
		return
	}
	f.blockHeld = false
	if f.blockHold <= 0 {
		f.resetBlock()
		f.poses.PlayIdle()
		return
	}
	secs := math.Max(0.001, f.blockHold*f.cfg.BlockReleaseSeconds)
	f.blockReleasing = true
	f.releaseTween = gween.New(float32(f.blockHold), 0, float32(secs), ease.Linear)
	f.poses.Crossfade(pose.State{Category: pose.CategoryIdle}, secs, 0)
}

func (f *Fighter) resetBlock() {
	f.blockDir = direction.None
	f.blockHeld = false
	f.blockReleasing = false
	f.blockHold = 0
	f.blockChosen = false
	f.blockStart.Reset()
	f.releaseTween = nil
}

func (f *Fighter) tickBlock(now, dt float64) {
	if f.role != RoleDefender {
		return
	}
	if f.hardLock {
		f.applyHardLock(now, dt)
		return
	}
	if !f.blockReleasing || f.releaseTween == nil {
		return
	}
	v, done := f.releaseTween.Update(float32(dt))
	f.blockHold = math.Max(0, float64(v))
	if done || f.blockHold <= 0.0001 {
		f.resetBlock()
		f.poses.PlayIdle()
	}
}

func (f *Fighter) applyHardLock(now, dt float64) {
	f.blockReleasing = false
	f.releaseTween = nil
	d := f.hardLockDir
	if d == direction.None {
		d = f.blockDir
	}
	if d == direction.None {
		d = direction.Up
	}
	f.hardLockDir = d
	f.blockDir = d
	f.blockChosen = true
	if f.hardLockTween == nil {
		secs := math.Max(0.001, f.cfg.HardLockRaiseSeconds)
		f.hardLockTween = gween.New(float32(f.blockHold), float32(clamp01(f.cfg.HardLockTargetHold)), float32(secs), ease.Linear)
	}
	v, _ := f.hardLockTween.Update(float32(dt))
	f.blockHold = clamp01(float64(v))
	f.blockStart.MarkOnce(now)
	f.blockHeld = true
	f.poses.PlayBlock(d, f.blockHold)
}

// StartBlock raises an AI block in dir.
//
// Postcondition: ignored during the reacquire cooldown; a block already held
// in dir keeps its hold; under hard lock only an unset lock direction is filled.
func (f *Fighter) StartBlock(dir direction.Direction) {
	if f.role != RoleDefender || dir == direction.None {
		return
	}
	now := f.clock.Now()
	if f.reacquire.Pending(now) {
		f.logger.Debug("StartBlock rejected during reacquire cooldown",
			zap.Float64("remaining", f.reacquire.Remaining(now)))
		return
	}
	f.blockReleasing = false
	f.releaseTween = nil
	if f.hardLock {
		if f.hardLockDir == direction.None {
			f.hardLockDir = dir
		}
		return
	}
	if f.blockHeld && f.blockDir == dir && f.blockHold > 0 {
		f.poses.PlayBlock(dir, f.blockHold)
		return
	}
	f.blockDir = dir
	f.blockChosen = true
	if !f.blockHeld {
		f.blockHold = 0
		f.blockStart.Mark(now)
	}
	f.blockHeld = true
	f.poses.PlayBlock(dir, f.blockHold)
}

// UpdateBlockHold raises the AI block hold to v; the hold never decreases.
func (f *Fighter) UpdateBlockHold(v float64) {
	if f.role != RoleDefender || f.hardLock || !f.blockHeld || f.blockDir == direction.None {
		return
	}
	if h := clamp01(v); h > f.blockHold {
		f.blockHold = h
	}
	f.poses.PlayBlock(f.blockDir, f.blockHold)
}

// EndBlock releases the AI block and arms the reacquire cooldown.
func (f *Fighter) EndBlock() {
	if f.role != RoleDefender || f.hardLock {
		return
	}
	f.reacquire.Arm(f.clock.Now(), f.cfg.ReacquireCooldownSeconds)
	f.releaseBlock()
}

// SetHardBlockLock freezes the block in dir and ramps the hold to the lock
// target, or clears the lock when enabled is false.
//
// Postcondition: an active lock keeps its direction until cleared; enabling
// is ignored during the reacquire cooldown.
func (f *Fighter) SetHardBlockLock(enabled bool, dir direction.Direction) {
	if f.role != RoleDefender || !enabled {
		f.hardLock = false
		f.hardLockDir = direction.None
		f.hardLockTween = nil
		return
	}
	now := f.clock.Now()
	if f.reacquire.Pending(now) {
		return
	}
	if f.hardLock && f.hardLockDir != direction.None {
		return
	}
	d := dir
	if d == direction.None {
		d = f.hardLockDir
	}
	if d == direction.None {
		d = f.blockDir
	}
	if d == direction.None {
		d = direction.Up
	}
	f.hardLock = true
	f.hardLockDir = d
	f.hardLockTween = nil
	f.applyHardLock(now, 0)
}

// IsBlocking reports whether a block is held.
func (f *Fighter) IsBlocking() bool { return f.blockHeld }

// IsBlockReleasing reports whether a released block is still decaying.
func (f *Fighter) IsBlockReleasing() bool { return f.blockReleasing }

// BlockDirection returns the block direction, or None.
func (f *Fighter) BlockDirection() direction.Direction { return f.blockDir }

// BlockHold01 returns the normalised block hold.
func (f *Fighter) BlockHold01() float64 { return f.blockHold }

// BlockHoldSeconds returns the time since the block was raised.
func (f *Fighter) BlockHoldSeconds() float64 {
	if !f.blockStart.Set {
		return 0
	}
	return math.Max(0, f.blockStart.Age(f.clock.Now()))
}

// IsHardBlockLocked reports whether the AI hard lock is active.
func (f *Fighter) IsHardBlockLocked() bool { return f.hardLock }

// ReacquireRemaining returns the seconds left before StartBlock is accepted again.
func (f *Fighter) ReacquireRemaining() float64 { return f.reacquire.Remaining(f.clock.Now()) }
