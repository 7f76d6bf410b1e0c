package fighter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
)

// blockPx is the swipe distance of a full block hold at the fallback DPI.
var blockPx = 2 * 160 / 2.54

func TestHumanBlock_HoldRisesAndNeverDrops(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseMove, 0, 30)
	require.True(t, r.f.IsBlocking())
	assert.Equal(t, direction.Up, r.f.BlockDirection())
	assert.Equal(t, 0.0, r.f.BlockHold01())

	r.step(0.1)
	r.pointer(gesture.PhaseMove, 0, 30+blockPx*0.5)
	assert.InDelta(t, 0.5, r.f.BlockHold01(), 1e-6)

	r.step(0.1)
	r.pointer(gesture.PhaseMove, 0, 30+blockPx*0.5-5)
	assert.InDelta(t, 0.5, r.f.BlockHold01(), 1e-6)
	assert.InDelta(t, 0.2, r.f.BlockHoldSeconds(), 1e-9)
}

func TestHumanBlock_FrameDeltaRetargetsKeepingHold(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseMove, 30, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseMove, 30+blockPx*0.6, 0)
	require.Equal(t, direction.Right, r.f.BlockDirection())
	hold := r.f.BlockHold01()

	r.step(0.1)
	r.pointer(gesture.PhaseMove, 30+blockPx*0.6, 40)
	assert.Equal(t, direction.Up, r.f.BlockDirection())
	assert.InDelta(t, hold, r.f.BlockHold01(), 1e-9)
	assert.True(t, r.f.IsBlocking())
}

func TestHumanBlock_ReleaseDecaysLinearly(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseMove, 0, 30)
	r.step(0.1)
	r.pointer(gesture.PhaseMove, 0, 30+blockPx)
	require.InDelta(t, 1, r.f.BlockHold01(), 1e-6)

	r.pointer(gesture.PhaseEnd, 0, 30+blockPx)
	assert.False(t, r.f.IsBlocking())
	assert.True(t, r.f.IsBlockReleasing())
	assert.Equal(t, direction.Up, r.f.BlockDirection())

	r.step(0.08)
	assert.InDelta(t, 0.5, r.f.BlockHold01(), 1e-3)
	r.step(0.1)
	assert.False(t, r.f.IsBlockReleasing())
	assert.Equal(t, 0.0, r.f.BlockHold01())
	assert.Equal(t, direction.None, r.f.BlockDirection())
}

func TestAIBlock_StartUpdateEnd(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.f.StartBlock(direction.Left)
	require.True(t, r.f.IsBlocking())
	r.f.UpdateBlockHold(0.5)
	r.f.UpdateBlockHold(0.3)
	assert.Equal(t, 0.5, r.f.BlockHold01())

	r.step(0.2)
	r.f.StartBlock(direction.Left)
	assert.Equal(t, 0.5, r.f.BlockHold01(), "re-issuing the held direction keeps the hold")
	assert.InDelta(t, 0.2, r.f.BlockHoldSeconds(), 1e-9)

	r.f.EndBlock()
	assert.False(t, r.f.IsBlocking())
	assert.InDelta(t, 0.7, r.f.ReacquireRemaining(), 1e-9)
}

func TestAIBlock_ReacquireCooldownRejectsStart(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.f.StartBlock(direction.Up)
	r.f.EndBlock()

	r.step(0.3)
	r.f.StartBlock(direction.Up)
	assert.False(t, r.f.IsBlocking())
	r.f.SetHardBlockLock(true, direction.Up)
	assert.False(t, r.f.IsHardBlockLocked())

	r.step(0.41)
	r.f.StartBlock(direction.Up)
	assert.True(t, r.f.IsBlocking())
}

func TestAIBlock_HardLockRampsAndFreezes(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.f.StartBlock(direction.Left)
	r.f.UpdateBlockHold(0.2)
	r.f.SetHardBlockLock(true, direction.Right)
	require.True(t, r.f.IsHardBlockLocked())
	assert.Equal(t, direction.Right, r.f.BlockDirection())
	assert.InDelta(t, 0.2, r.f.BlockHold01(), 1e-6)

	r.step(0.09)
	assert.InDelta(t, 0.6, r.f.BlockHold01(), 1e-3)

	r.f.SetHardBlockLock(true, direction.Down)
	r.f.StartBlock(direction.Down)
	r.f.EndBlock()
	r.f.UpdateBlockHold(0)
	r.step(0.1)
	assert.Equal(t, direction.Right, r.f.BlockDirection())
	assert.True(t, r.f.IsBlocking())
	assert.InDelta(t, 1, r.f.BlockHold01(), 1e-6)
	assert.Equal(t, 0.0, r.f.ReacquireRemaining())

	r.f.SetHardBlockLock(false, direction.None)
	assert.False(t, r.f.IsHardBlockLocked())
	assert.True(t, r.f.IsBlocking())
	r.f.EndBlock()
	assert.False(t, r.f.IsBlocking())
}

func TestAIBlock_HardLockWithoutBlockDefaultsUp(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.f.SetHardBlockLock(true, direction.None)
	assert.Equal(t, direction.Up, r.f.BlockDirection())
	assert.True(t, r.f.IsBlocking())
}
