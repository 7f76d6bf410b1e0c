package fighter_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/game/pose"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

type slapRecorder struct {
	events []fighter.SlapEvent
}

func (r *slapRecorder) OnSlapFired(_ *fighter.Fighter, ev fighter.SlapEvent) {
	r.events = append(r.events, ev)
}

type rig struct {
	clock *timing.ManualClock
	f     *fighter.Fighter
	poses *pose.Timeline
	slaps *slapRecorder
}

func newRig(t *testing.T, role fighter.Role) *rig {
	t.Helper()
	clock := timing.NewManualClock(0)
	poses := pose.NewTimeline(1)
	f := fighter.New("f1", "tester", role, fighter.DefaultConfig(), gesture.DefaultConfig(), clock, poses, zaptest.NewLogger(t))
	rec := &slapRecorder{}
	f.SetSlapSink(rec)
	f.Tick(clock.Now())
	return &rig{clock: clock, f: f, poses: poses, slaps: rec}
}

// step advances the clock by dt and ticks the fighter.
func (r *rig) step(dt float64) {
	r.f.Tick(r.clock.Advance(dt))
}

func (r *rig) run(seconds, dt float64) {
	for elapsed := 0.0; elapsed < seconds; elapsed += dt {
		r.step(dt)
	}
}

func (r *rig) pointer(p gesture.Phase, x, y float64) {
	r.f.HandlePointer(p, x, y)
}

// requiredPx is the forward swipe distance of a full windup at the fallback DPI.
var requiredPx = 3.5 * 160 / 2.54

func TestHumanSlap_FiresOnReverseAboveMinimumWindup(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.5)
	r.pointer(gesture.PhaseMove, requiredPx*0.4, 0)
	r.step(0.5)
	r.pointer(gesture.PhaseMove, requiredPx*0.8, 0)
	assert.Equal(t, fighter.PhaseWindupActive, r.f.Phase())
	assert.InDelta(t, 0.8, r.f.Windup01(), 0.01)

	r.step(0.05)
	r.pointer(gesture.PhaseMove, 100, 0)

	require.Len(t, r.slaps.events, 1)
	ev := r.slaps.events[0]
	assert.Equal(t, direction.Right, ev.Direction)
	assert.InDelta(t, 0.8, ev.Windup01, 0.01)
	assert.InDelta(t, 0.2, ev.StartOffset, 0.01)
	assert.GreaterOrEqual(t, ev.SlapPower01, 0.01)
	assert.LessOrEqual(t, ev.SlapPower01, 1.0)
	assert.InDelta(t, 0.55, ev.WindupHoldSeconds, 1e-9)
	assert.Equal(t, fighter.PhaseSlapActive, r.f.Phase())
	assert.True(t, r.f.IsSlapping())
	assert.Equal(t, direction.None, r.f.PendingDirection())

	// input stays locked until the return starts
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.pointer(gesture.PhaseMove, 100, 0)
	assert.Len(t, r.slaps.events, 1)
}

func TestHumanSlap_BelowMinimumIsVoidedAndRestartsFresh(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.5)
	r.pointer(gesture.PhaseMove, requiredPx*0.4, 0)
	require.InDelta(t, 0.4, r.f.Windup01(), 0.01)

	r.step(0.05)
	r.pointer(gesture.PhaseMove, 10, 0)
	assert.Empty(t, r.slaps.events)
	assert.Equal(t, direction.None, r.f.PendingDirection())
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())

	r.step(0.45)
	r.pointer(gesture.PhaseMove, 60, 0)
	assert.Equal(t, direction.Right, r.f.PendingDirection())
	assert.InDelta(t, 50/requiredPx, r.f.Windup01(), 0.01)
}

func TestHumanSlap_NeverFiresBelowMinimumWindup(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := newRig(t, fighter.RoleAttacker)
		minWindup := r.f.Config().MinWindupForSlap
		frac := rapid.Float64Range(0.05, minWindup-0.05).Draw(rt, "frac")
		r.pointer(gesture.PhaseBegin, 0, 0)
		r.step(rapid.Float64Range(0.3, 1).Draw(rt, "forwardDt"))
		x := requiredPx * frac
		r.pointer(gesture.PhaseMove, x, 0)
		if r.f.Windup01() >= minWindup {
			return
		}

		back := rapid.SliceOfN(rapid.Float64Range(0.5, 200), 1, 6).Draw(rt, "back")
		for i, d := range back {
			r.step(rapid.Float64Range(0.005, 0.2).Draw(rt, fmt.Sprintf("dt%d", i)))
			x -= d
			r.pointer(gesture.PhaseMove, x, 0)
		}
		if len(r.slaps.events) != 0 {
			rt.Fatalf("slap fired from windup below %v: %+v", minWindup, r.slaps.events)
		}
	})
}

func TestHumanWindup_ProgressNeverDropsWhileActive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := newRig(t, fighter.RoleAttacker)
		r.pointer(gesture.PhaseBegin, 0, 0)
		steps := rapid.SliceOfN(rapid.Float64Range(0, 60), 1, 20).Draw(rt, "steps")
		x, last := 0.0, 0.0
		var dir direction.Direction
		check := func(when string) {
			if r.f.Phase() != fighter.PhaseWindupActive {
				return
			}
			if dir == direction.None {
				dir = r.f.PendingDirection()
			}
			if r.f.PendingDirection() != dir {
				return
			}
			w := r.f.Windup01()
			if w < last {
				rt.Fatalf("windup dropped %v -> %v %s", last, w, when)
			}
			last = w
		}
		for i, dx := range steps {
			r.step(rapid.Float64Range(0.005, 0.3).Draw(rt, fmt.Sprintf("dt%d", i)))
			check("after tick")
			x += dx
			r.pointer(gesture.PhaseMove, x, 0)
			check("after move")
		}
	})
}

func TestHumanWindup_DirectionIsLocked(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.2)
	r.pointer(gesture.PhaseMove, 50, 0)
	require.Equal(t, direction.Right, r.f.PendingDirection())
	r.step(0.2)
	r.pointer(gesture.PhaseMove, 50, 200)
	assert.Equal(t, direction.Right, r.f.PendingDirection())
	assert.Empty(t, r.slaps.events)
}

func TestHumanWindup_CancelReturnsHandLinearly(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.5)
	r.pointer(gesture.PhaseMove, requiredPx*0.8, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseEnd, requiredPx*0.8, 0)

	assert.Equal(t, fighter.PhaseReturningAfterWindup, r.f.Phase())
	assert.InDelta(t, 0.8, r.f.Windup01(), 0.01)
	assert.True(t, r.f.IsAttackCycleActive())

	r.step(0.5)
	assert.InDelta(t, 0.4, r.f.Windup01(), 0.01)

	r.step(0.6)
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())
	assert.Equal(t, 0.0, r.f.Windup01())
	assert.Equal(t, direction.None, r.f.PendingDirection())
	assert.False(t, r.f.IsAttackCycleActive())
	assert.Empty(t, r.slaps.events)
}

func TestHumanWindup_CarryAppliesToNewWindup(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.5)
	r.pointer(gesture.PhaseMove, requiredPx*0.8, 0)
	r.step(0.1)
	r.pointer(gesture.PhaseEnd, requiredPx*0.8, 0)
	r.step(0.5)
	carry := r.f.Windup01()
	require.InDelta(t, 0.4, carry, 0.01)

	r.pointer(gesture.PhaseBegin, 0, 0)
	r.clock.Advance(0.1)
	r.pointer(gesture.PhaseMove, requiredPx*0.2, 0)
	assert.Equal(t, fighter.PhaseWindupActive, r.f.Phase())
	assert.InDelta(t, carry+0.2*(1-carry), r.f.Windup01(), 0.01)
}

func TestAISlap_PlaybackLifecycle(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.BeginWindup(direction.Left)
	assert.True(t, r.f.IsAttackCycleActive())
	r.step(0.5)
	r.f.SetWindupProgress(1)
	r.f.TriggerSlap(direction.Left, 100, 1)

	require.Len(t, r.slaps.events, 1)
	ev := r.slaps.events[0]
	assert.Equal(t, direction.Left, ev.Direction)
	assert.Equal(t, 0.0, ev.StartOffset)
	assert.InDelta(t, 0.5, ev.WindupHoldSeconds, 1e-9)
	cfg := fighter.DefaultConfig()
	assert.InDelta(t, cfg.SlapPower(100), ev.SlapPower01, 1e-9)
	assert.InDelta(t, cfg.PlaybackSpeed(ev.SlapPower01, direction.Left), ev.PlaybackSpeed, 1e-9)

	r.step(0.1)
	assert.InDelta(t, ev.PlaybackSpeed*0.1, r.f.SlapProgress01(), 1e-6)
	assert.True(t, r.f.IsSlapAnimating())

	for i := 0; i < 100 && r.f.Phase() == fighter.PhaseSlapActive; i++ {
		r.step(0.02)
	}
	assert.Equal(t, fighter.PhaseReturningAfterSlap, r.f.Phase())
	assert.True(t, r.f.IsSlapAnimating())
	assert.False(t, r.f.IsSlapping())

	r.step(0.26)
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())
	assert.False(t, r.f.IsSlapAnimating())
}

func TestAITriggerSlap_BelowMinimumSoftCancels(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.BeginWindup(direction.Up)
	r.f.SetWindupProgress(0.3)
	r.f.TriggerSlap(direction.Up, 100, 1)
	assert.Empty(t, r.slaps.events)
	assert.Equal(t, fighter.PhaseReturningAfterWindup, r.f.Phase())
	assert.InDelta(t, 0.3, r.f.Windup01(), 1e-6)
	r.run(1.1, 0.05)
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())
}

func TestAICancelWindup_IsImmediate(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.BeginWindup(direction.DownLeft)
	r.f.SetWindupProgress(0.7)
	r.f.CancelWindup()
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())
	assert.Equal(t, 0.0, r.f.Windup01())
	assert.False(t, r.f.IsAttackCycleActive())
}

func TestAICommands_IgnoredForWrongRole(t *testing.T) {
	r := newRig(t, fighter.RoleDefender)
	r.f.BeginWindup(direction.Up)
	assert.Equal(t, direction.None, r.f.PendingDirection())

	a := newRig(t, fighter.RoleAttacker)
	a.f.StartBlock(direction.Up)
	assert.False(t, a.f.IsBlocking())
}

func TestInterruptSlap(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	assert.False(t, r.f.InterruptSlap(0))

	r.f.BeginWindup(direction.Right)
	r.f.SetWindupProgress(1)
	r.f.TriggerSlap(direction.Right, 100, 1)
	r.step(0.05)
	assert.False(t, r.f.InterruptSlap(0.6))
	r.run(0.2, 0.05)
	require.GreaterOrEqual(t, r.f.SlapProgress01(), 0.6)
	assert.True(t, r.f.InterruptSlap(0.6))
	assert.Equal(t, fighter.PhaseReturningAfterSlap, r.f.Phase())
}

func TestSlapStart_Offsets(t *testing.T) {
	cfg := fighter.DefaultConfig()
	assert.InDelta(t, 0.4, cfg.SlapStart(direction.Left, 0.6, false), 1e-9)
	assert.InDelta(t, 0.35, cfg.SlapStart(direction.Left, 0.6, true), 1e-9)
	assert.InDelta(t, 0.35, cfg.SlapStart(direction.Down, 0.5, true), 1e-9)
	assert.Equal(t, 0.0, cfg.SlapStart(direction.Up, 0.5, true))
	assert.InDelta(t, 0.4, cfg.SlapStart(direction.UpRight, 0.6, true), 1e-9)
	assert.Equal(t, 0.0, cfg.SlapStart(direction.Right, 1, false))
}

func TestSlapPower_Bounds(t *testing.T) {
	cfg := fighter.DefaultConfig()
	assert.Equal(t, 0.01, cfg.SlapPower(0))
	assert.Equal(t, 1.0, cfg.SlapPower(10000))
	assert.InDelta(t, (100*1.76-2.4)/(432-2.4), cfg.SlapPower(100), 1e-9)
	assert.InDelta(t, 0.05, cfg.PlaybackSpeed(0, direction.Up), 1e-9)
}

func TestSetRole_ResetsOtherSide(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.BeginWindup(direction.Up)
	r.f.SetWindupProgress(0.6)
	r.f.SetRole(fighter.RoleDefender)
	assert.Equal(t, direction.None, r.f.PendingDirection())
	assert.Equal(t, fighter.PhaseIdle, r.f.Phase())
	assert.False(t, r.f.IsAttackCycleActive())

	r.f.StartBlock(direction.Left)
	r.f.UpdateBlockHold(0.5)
	r.f.SetHardBlockLock(true, direction.Left)
	r.f.SetRole(fighter.RoleAttacker)
	assert.False(t, r.f.IsBlocking())
	assert.False(t, r.f.IsHardBlockLocked())
	assert.Equal(t, direction.None, r.f.BlockDirection())
}

func TestInputDisabled_DropsSamples(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.SetInputEnabled(false)
	r.pointer(gesture.PhaseBegin, 0, 0)
	r.step(0.2)
	r.pointer(gesture.PhaseMove, 100, 0)
	assert.Equal(t, direction.None, r.f.PendingDirection())
	assert.False(t, r.f.IsAttackCycleActive())
}

func TestPoseCollaborator_ReceivesRequests(t *testing.T) {
	r := newRig(t, fighter.RoleAttacker)
	r.f.BeginWindup(direction.UpLeft)
	cur, _ := r.poses.Current()
	assert.Equal(t, pose.State{Category: pose.CategoryWindup, Direction: direction.UpLeft}, cur)
	r.f.SetWindupProgress(0.9)
	r.f.TriggerSlap(direction.UpLeft, 50, 1)
	assert.True(t, r.poses.IsCategory(pose.CategorySlap))
	assert.InDelta(t, 0.1, r.poses.Progress01(), 1e-9)
}
