// Package ai implements the opponent decision engine.
//
// The Engine drives one fighter through the same command surface a human
// gesture uses. It reads the opponent only through fighter.CombatSignalSource
// and the match only through Match. Defense is a fixed sequence of layers
// (threat, mistake override, latch, raise eligibility), each a function of
// the tick's Signals and the ThreatState timers. Attacks run on a small
// looplab/fsm sub-machine.
package ai

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

// HookChooseAttackDirection is the Lua global consulted for direction overrides.
// It receives (direction, reason, difficulty, streak_block, streak_len) and may
// return a direction name; anything else keeps the engine's choice.
const HookChooseAttackDirection = "choose_attack_direction"

// DefaultScriptScope is the scripting scope used when a Style names none.
const DefaultScriptScope = "ai"

// ScriptCaller is the interface required to consult Lua hooks.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (lua.LNil, nil) if the function does not exist.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Match is the arbitrator surface the engine reads.
type Match interface {
	IsStarted() bool
	IsWaitingForSlapEnd() bool
	AttackDelayRemaining(fighterID string) float64
	HasPendingHitOn(defenderID string) bool
}

// DefenseState is the engine's view of its own block.
type DefenseState int

const (
	DefenseIdle DefenseState = iota
	DefenseBlocking
)

// String returns the state name.
func (s DefenseState) String() string {
	if s == DefenseBlocking {
		return "blocking"
	}
	return "idle"
}

// Options configures an Engine.
type Options struct {
	Policy Policy
	// Style defaults to the built-in balanced style when nil.
	Style *Style
	// Advanced enables adaptive skill, feints, and habit-driven direction
	// choice; otherwise the engine mirrors the player with fixed timing.
	Advanced bool
	// Difficulty seeds the adaptive difficulty in [0,1].
	Difficulty float64
	// Scripts is optional.
	Scripts ScriptCaller
}

// Engine is the opponent decision engine for one fighter.
//
// An Engine is not safe for concurrent use; the owning session serialises
// Tick and HandleEvent.
type Engine struct {
	self     *fighter.Fighter
	opp      fighter.CombatSignalSource
	match    Match
	policy   Policy
	style    *Style
	advanced bool
	roller   *dice.Roller
	scripts  ScriptCaller
	logger   *zap.Logger

	attack  *attackMachine
	chooser *Chooser
	skill   *Skill

	threat  ThreatState
	sweeper timing.Sweeper

	defense    DefenseState
	stateTimer float64
	blockSpeed float64

	expectedSource direction.Direction
	expectedResult direction.Direction

	tuning   Tuning
	reason   string
	lastTick float64
	ticked   bool
}

// NewEngine returns an Engine driving self against opp.
//
// Precondition: self, opp, match, and roller must be non-nil.
// Postcondition: a nil logger is replaced by a no-op logger.
func NewEngine(self *fighter.Fighter, opp fighter.CombatSignalSource, match Match, roller *dice.Roller, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	style := opts.Style
	if style == nil {
		style = DefaultStyles()[1]
	}
	e := &Engine{
		self:     self,
		opp:      opp,
		match:    match,
		policy:   style.Apply(opts.Policy),
		style:    style,
		advanced: opts.Advanced,
		roller:   roller,
		scripts:  opts.Scripts,
		logger:   logger.With(zap.String("ai", self.Name())),
		attack:   newAttackMachine(),
		chooser:  NewChooser(roller),
		skill:    NewSkill(opts.Difficulty),
		reason:   "Battle has not started yet",
	}
	e.threat.register(&e.sweeper)
	return e
}

// Tick runs one decision step at now.
//
// Postcondition: every command issued reflects the opponent's state as read
// during this call.
func (e *Engine) Tick(now float64) {
	dt := 0.0
	if e.ticked {
		dt = math.Max(0, now-e.lastTick)
	}
	e.lastTick = now
	e.ticked = true

	e.sweeper.Tick(now)
	e.tuning = e.tuningAt(now)

	if !e.match.IsStarted() {
		e.abortAttack(false)
		e.self.SetHardBlockLock(false, direction.None)
		if e.self.IsBlocking() {
			e.self.EndBlock()
		}
		e.defense = DefenseIdle
		e.reason = "Battle has not started yet"
		return
	}
	if e.self.Role() == fighter.RoleAttacker {
		e.tickAttacker(now, dt)
		return
	}
	e.tickDefender(now, dt)
}

func (e *Engine) tickAttacker(now, dt float64) {
	e.defense = DefenseIdle
	if e.match.IsWaitingForSlapEnd() {
		if s := e.attack.State(); s == AttackWindup || s == AttackHold {
			e.abortAttack(false)
		} else if s == AttackCooldown {
			e.attack.fire(evAbort)
		}
		e.reason = "Waiting for hit resolution as attacker"
		return
	}
	if e.match.AttackDelayRemaining(e.self.ID()) > 0 {
		e.abortAttack(true)
		e.reason = "Waiting for the match intro"
		return
	}
	e.tickAttack(now, dt)
	switch e.attack.State() {
	case AttackWindup:
		e.reason = "Winding up " + e.attack.plan.Direction.String()
	case AttackHold:
		e.reason = "Holding windup before release"
	case AttackCooldown:
		e.reason = "Recovering after attack"
	}
}

func (e *Engine) tickDefender(now, dt float64) {
	if e.attack.State() != AttackIdle {
		e.attack.fire(evAbort)
	}
	sig := e.readSignals(now)
	if sig.Releasing || !sig.Blocking {
		e.defense = DefenseIdle
	}
	roll := Roll(e.roller.Chance)
	greedy := e.threat.GreedyVuln.Pending(now)
	raiseDelay := func() float64 {
		return raiseDelayFor(e.tuning.RaiseDelay, sig.SelfStamina01, greedy, e.policy, roll)
	}

	var a Assessment
	e.threat, a = assessThreat(sig, e.threat, e.policy, e.tuning, raiseDelay, roll)

	var forced bool
	e.threat, forced = mistakeOverride(sig, e.threat, e.policy)
	if forced {
		e.forceOpen()
		e.reason = "Feint mistake window: defense intentionally opened"
		e.logger.Debug("ai defense forced open",
			zap.Float64("incoming_power", sig.SlapPower),
			zap.Stringer("incoming", sig.SlapDir),
		)
		return
	}

	var lv LatchVerdict
	e.threat, lv = threatLatch(sig, e.threat, a, e.policy, e.tuning)
	switch lv {
	case LatchHold:
		e.holdBlock(now, dt, sig, a)
		if sig.UnresolvedHit && !a.Immediate {
			e.reason = "Holding defense during unresolved hit"
		} else {
			e.reason = "Immediate incoming threat detected (slap or qualified windup)"
		}
		return
	case LatchKeep:
		e.holdBlock(now, dt, sig, a)
		e.reason = "Threat latch keeping block"
		return
	case LatchDrop:
		e.self.SetHardBlockLock(false, direction.None)
	}

	var rv RaiseVerdict
	e.threat, rv = raiseEligibility(sig, e.threat, a, e.policy)
	switch rv {
	case RaiseHold:
		e.holdBlock(now, dt, sig, a)
		e.reason = "Immediate incoming threat detected (slap or qualified windup)"
	case RaiseWait:
		e.reason = "Threat detected but block cannot be raised yet"
	case RaiseRelax:
		e.self.SetHardBlockLock(false, direction.None)
		e.reason = "Keeping block while threat lingers"
	case RaiseRelease:
		e.self.SetHardBlockLock(false, direction.None)
		e.self.EndBlock()
		e.defense = DefenseIdle
		e.reason = "No immediate threat: AI can stay/release to idle"
	default:
		if e.threat.defenseOpen(now) {
			e.reason = "Feint mistake window: defense intentionally opened"
		} else {
			e.reason = "No immediate threat: AI can stay/release to idle"
		}
	}
}

// readSignals samples the opponent, self, and match at now.
func (e *Engine) readSignals(now float64) Signals {
	return Signals{
		Now:           now,
		Pending:       e.opp.PendingDirection(),
		Windup:        e.opp.Windup01(),
		CycleActive:   e.opp.IsAttackCycleActive(),
		Slapping:      e.opp.IsSlapAnimating(),
		SlapDir:       e.opp.LastSlapDirection(),
		SlapPower:     e.opp.SlapPower01(),
		Blocking:      e.self.IsBlocking(),
		Releasing:     e.self.IsBlockReleasing(),
		BlockDir:      e.self.BlockDirection(),
		SelfStamina01: e.self.Stamina01(),
		UnresolvedHit: e.match.HasPendingHitOn(e.self.ID()),
	}
}

// holdBlock raises the block toward the expected direction if needed and
// keeps it under hard lock.
func (e *Engine) holdBlock(now, dt float64, sig Signals, a Assessment) {
	dir := e.expectedBlockDir(sig)
	if !e.self.IsBlocking() {
		e.self.StartBlock(dir)
		if !e.self.IsBlocking() {
			return
		}
		e.threat.Commit.Arm(now, e.policy.MinCommit)
		e.stateTimer = 0
		e.blockSpeed = e.policy.SlowBlockSpeed
		if a.SlapThreat || e.roller.Chance("block_fast", e.policy.FastBlockChance) {
			e.blockSpeed = e.policy.FastBlockSpeed
		}
		e.logger.Debug("ai block raised",
			zap.Stringer("direction", dir),
			zap.Float64("speed", e.blockSpeed),
			zap.Bool("slap_threat", a.SlapThreat),
		)
	}
	e.defense = DefenseBlocking
	e.self.SetHardBlockLock(true, dir)
	e.stateTimer += dt
	e.self.UpdateBlockHold(e.stateTimer * e.blockSpeed)
}

// forceOpen drops the block regardless of latches.
func (e *Engine) forceOpen() {
	e.self.SetHardBlockLock(false, direction.None)
	e.self.EndBlock()
	e.defense = DefenseIdle
}

// expectedBlockDir returns the block direction for the current threat
// source. Each new source may be misread as a ring neighbour with the tuned
// mistake chance; the answer is kept until the source changes.
func (e *Engine) expectedBlockDir(sig Signals) direction.Direction {
	source := direction.None
	switch {
	case sig.Pending != direction.None:
		source = sig.Pending.Mirror()
	case sig.Slapping && sig.SlapDir != direction.None:
		source = sig.SlapDir.Mirror()
	case e.threat.LastIncoming != direction.None:
		source = e.threat.LastIncoming
	default:
		source = sig.BlockDir
	}
	if source == direction.None {
		source = direction.Up
	}
	if source == e.expectedSource && e.expectedResult != direction.None {
		return e.expectedResult
	}
	result := source
	if e.roller.Chance("block_misread", clamp(e.tuning.Mistake, 0.03, 1)) {
		step := 1
		if e.roller.Chance("block_misread_side", 0.5) {
			step = -1
		}
		result = source.Neighbor(step)
	}
	e.expectedSource = source
	e.expectedResult = result
	return result
}

// tuningAt returns the defense tuning for the current difficulty and style.
func (e *Engine) tuningAt(now float64) Tuning {
	if !e.advanced {
		return Tuning{React: e.policy.ReactFromWindup, Mistake: 0.03}
	}
	t := TuningFor(e.skill.Difficulty())
	t.React = clamp01(t.React + e.style.ReactDelta)
	if e.threat.GreedyVuln.Pending(now) {
		t.Mistake *= e.policy.GreedyMistakeScale
	}
	return t
}

// chooseDirection picks the next attack direction, consulting the Lua hook
// when scripts are configured.
func (e *Engine) chooseDirection(d float64) (direction.Direction, string) {
	dir, reason := e.chooser.Choose(d, e.skill.Estimate())
	if e.scripts == nil {
		return dir, reason
	}
	scope := e.style.Script
	if scope == "" {
		scope = DefaultScriptScope
	}
	block, streak := e.chooser.Streak()
	ret, err := e.scripts.CallHook(scope, HookChooseAttackDirection,
		lua.LString(dir.String()),
		lua.LString(reason),
		lua.LNumber(d),
		lua.LString(block.String()),
		lua.LNumber(streak),
	)
	if err != nil || ret == lua.LNil {
		return dir, reason
	}
	name, ok := ret.(lua.LString)
	if !ok {
		return dir, reason
	}
	override, err := direction.Parse(string(name))
	if err != nil || override == direction.None {
		e.logger.Debug("ignored script direction", zap.String("value", string(name)))
		return dir, reason
	}
	return override, ReasonScript
}

// HandleEvent feeds match events into the adaptive skill estimate and the
// direction chooser.
func (e *Engine) HandleEvent(ev combat.Event) {
	switch v := ev.(type) {
	case combat.SlapFired:
		if v.AttackerID != e.self.ID() {
			e.chooser.ObserveAttack(v.Slap.Direction)
		}
	case combat.HitResolved:
		if v.AttackerID == e.self.ID() {
			e.skill.RecordDefense(v.Blocked, v.Perfect)
			e.chooser.ObserveBlock(v.BlockDirection)
			if e.attack.plan.Reason == ReasonGreedyCounter {
				e.threat.GreedyVuln.Arm(v.At, e.policy.GreedyVulnerability)
			}
			return
		}
		e.skill.RecordAttack(v.Damage)
	}
}

// Defense returns the engine's defense state.
func (e *Engine) Defense() DefenseState { return e.defense }

// AttackState returns the attack sub-machine state.
func (e *Engine) AttackState() string { return e.attack.State() }

// Difficulty returns the adaptive difficulty.
func (e *Engine) Difficulty() float64 { return e.skill.Difficulty() }

// Reason returns the human-readable reason for the last decision.
func (e *Engine) Reason() string { return e.reason }

// Snapshot is a debug view of the engine.
type Snapshot struct {
	Role          fighter.Role
	AttackState   string
	Plan          AttackPlan
	Defense       DefenseState
	Difficulty    float64
	Skill         float64
	Band          SkillBand
	Exchanges     int
	Tuning        Tuning
	ExpectedBlock direction.Direction
	Deadlines     map[string]float64
	MistakeArmed  bool
	FeintCount    int
	Reason        string
}

// Snapshot returns the engine's current debug view.
func (e *Engine) Snapshot() Snapshot {
	skill := e.skill.Estimate()
	return Snapshot{
		Role:          e.self.Role(),
		AttackState:   e.attack.State(),
		Plan:          e.attack.plan,
		Defense:       e.defense,
		Difficulty:    e.skill.Difficulty(),
		Skill:         skill,
		Band:          BandFor(skill),
		Exchanges:     e.skill.Exchanges(),
		Tuning:        e.tuning,
		ExpectedBlock: e.expectedResult,
		Deadlines:     e.sweeper.Snapshot(e.lastTick),
		MistakeArmed:  e.threat.MistakeArmed,
		FeintCount:    e.threat.FeintCount,
		Reason:        e.reason,
	}
}

func attackPlanFields(p AttackPlan) []zap.Field {
	return []zap.Field{
		zap.Stringer("direction", p.Direction),
		zap.String("reason", p.Reason),
		zap.Bool("false_windup", p.FalseWindup),
		zap.Float64("windup", p.Windup),
		zap.Float64("hold", p.Hold),
		zap.Float64("speed_cm", p.SpeedCm),
	}
}
