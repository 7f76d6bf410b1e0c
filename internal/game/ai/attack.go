package ai

import (
	"context"
	"math"

	"github.com/looplab/fsm"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Attack sub-machine states.
const (
	AttackIdle     = "idle"
	AttackWindup   = "windup"
	AttackHold     = "hold"
	AttackCooldown = "cooldown"
)

// Attack sub-machine events.
const (
	evBegin   = "begin"
	evCommit  = "commit"
	evRelease = "release"
	evSettle  = "settle"
	evAbort   = "abort"
)

// AttackPlan is one AI attack, fixed when the windup starts.
type AttackPlan struct {
	Direction   direction.Direction
	Reason      string
	FalseWindup bool
	Windup      float64
	Hold        float64
	Cooldown    float64
	SpeedCm     float64
	StartedAt   float64
}

// Mirror-mode timings.
const (
	mirrorWindup   = 0.95
	mirrorHold     = 0.06
	mirrorCooldown = 0.3
)

// attackMachine sequences idle → windup → hold → cooldown → idle.
type attackMachine struct {
	fsm   *fsm.FSM
	plan  AttackPlan
	timer float64
}

func newAttackMachine() *attackMachine {
	m := &attackMachine{}
	m.fsm = fsm.NewFSM(
		AttackIdle,
		fsm.Events{
			{Name: evBegin, Src: []string{AttackIdle}, Dst: AttackWindup},
			{Name: evCommit, Src: []string{AttackWindup}, Dst: AttackHold},
			{Name: evRelease, Src: []string{AttackWindup, AttackHold}, Dst: AttackCooldown},
			{Name: evSettle, Src: []string{AttackCooldown}, Dst: AttackIdle},
			{Name: evAbort, Src: []string{AttackWindup, AttackHold, AttackCooldown}, Dst: AttackIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, _ *fsm.Event) { m.timer = 0 },
		},
	)
	return m
}

// State returns the current sub-machine state.
func (m *attackMachine) State() string { return m.fsm.Current() }

// fire sends ev when it is valid from the current state.
func (m *attackMachine) fire(ev string) {
	if m.fsm.Can(ev) {
		_ = m.fsm.Event(context.Background(), ev)
	}
}

// planAttack builds the next plan for an advanced opponent at difficulty d.
func (e *Engine) planAttack(now float64) AttackPlan {
	d := e.skill.Difficulty()
	dir, reason := e.chooseDirection(d)
	windup := e.roller.Range("attack_windup", e.policy.Windup.Min, e.policy.Windup.Max)
	hold := e.roller.Range("attack_hold", e.policy.Hold.Min, e.policy.Hold.Max)
	hold = math.Min(hold, math.Max(0, e.policy.Failsafe-windup))
	lo := lerp(e.policy.SwipeSpeedLow.Min, e.policy.SwipeSpeedLow.Max, d)
	hi := lerp(e.policy.SwipeSpeedHigh.Min, e.policy.SwipeSpeedHigh.Max, d)
	return AttackPlan{
		Direction:   dir,
		Reason:      reason,
		FalseWindup: e.roller.Chance("attack_false_windup", e.style.FalseWindupChance),
		Windup:      windup,
		Hold:        hold,
		Cooldown:    e.roller.Range("attack_cooldown", e.policy.Cooldown.Min, e.policy.Cooldown.Max),
		SpeedCm:     e.roller.Range("attack_speed", lo, math.Max(lo, hi)),
		StartedAt:   now,
	}
}

// planMirror builds a fixed-timing plan that answers the player's last slap
// from the opposite side.
func (e *Engine) planMirror(now float64) AttackPlan {
	dir := e.opp.LastSlapDirection().Mirror()
	if dir == direction.None {
		dir = direction.All[e.roller.Intn("mirror_dir", len(direction.All))]
	}
	d := e.skill.Difficulty()
	return AttackPlan{
		Direction: dir,
		Reason:    ReasonMirror,
		Windup:    mirrorWindup,
		Hold:      mirrorHold,
		Cooldown:  mirrorCooldown,
		SpeedCm:   lerp(e.policy.SwipeSpeedLow.Min, e.policy.SwipeSpeedHigh.Max, d),
		StartedAt: now,
	}
}

// tickAttack advances the attack sub-machine by dt.
func (e *Engine) tickAttack(now, dt float64) {
	m := e.attack
	m.timer += dt
	switch m.State() {
	case AttackIdle:
		if e.self.IsAttackCycleActive() {
			return
		}
		if e.advanced {
			m.plan = e.planAttack(now)
		} else {
			m.plan = e.planMirror(now)
		}
		e.self.BeginWindup(m.plan.Direction)
		m.fire(evBegin)
		e.reason = "Choosing next attack pattern"
		e.logger.Debug("ai attack planned",
			attackPlanFields(m.plan)...,
		)
	case AttackWindup:
		if e.failsafe(now) {
			return
		}
		e.self.SetWindupProgress(clamp01(m.timer / math.Max(m.plan.Windup, 0.001)))
		if m.timer >= m.plan.Windup {
			m.fire(evCommit)
		}
	case AttackHold:
		if e.failsafe(now) {
			return
		}
		if m.timer < m.plan.Hold {
			return
		}
		if m.plan.FalseWindup {
			e.self.SoftCancelWindup()
		} else {
			e.self.TriggerSlap(m.plan.Direction, m.plan.SpeedCm, e.policy.TriggerMultiplier)
		}
		m.fire(evRelease)
	case AttackCooldown:
		if m.timer >= m.plan.Cooldown {
			m.fire(evSettle)
		}
	}
}

// failsafe releases the planned attack once a windup has lasted Failsafe
// seconds. A feint is soft cancelled rather than fired.
func (e *Engine) failsafe(now float64) bool {
	m := e.attack
	if now-m.plan.StartedAt < e.policy.Failsafe {
		return false
	}
	e.logger.Debug("ai attack failsafe", attackPlanFields(m.plan)...)
	if m.plan.FalseWindup {
		e.self.SoftCancelWindup()
	} else {
		e.self.SetWindupProgress(1)
		e.self.TriggerSlap(m.plan.Direction, m.plan.SpeedCm, e.policy.TriggerMultiplier)
	}
	m.fire(evRelease)
	return true
}

// abortAttack returns the sub-machine to idle; hard cancels the fighter's
// windup when hard is true and soft cancels it otherwise.
func (e *Engine) abortAttack(hard bool) {
	if e.attack.State() == AttackIdle {
		return
	}
	if e.attack.State() != AttackCooldown {
		if hard {
			e.self.CancelWindup()
		} else {
			e.self.SoftCancelWindup()
		}
	}
	e.attack.fire(evAbort)
}
