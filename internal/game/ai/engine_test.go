package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

const tick = 1.0 / 60

// highSource always rolls the top of the range: every chance below 1 fails
// and every weighted pick takes the last positive weight.
type highSource struct{}

func (highSource) Intn(n int) int { return n - 1 }

type stubMatch struct {
	started   bool
	waiting   bool
	delay     float64
	pendingOn string
}

func (m *stubMatch) IsStarted() bool { return m.started }
func (m *stubMatch) IsWaitingForSlapEnd() bool { return m.waiting }
func (m *stubMatch) AttackDelayRemaining(_ string) float64 { return m.delay }
func (m *stubMatch) HasPendingHitOn(id string) bool { return m.pendingOn == id }

type slapRecorder struct{ slaps []fighter.SlapEvent }

func (r *slapRecorder) OnSlapFired(_ *fighter.Fighter, ev fighter.SlapEvent) {
	r.slaps = append(r.slaps, ev)
}

type stubScripts struct {
	ret   lua.LValue
	scope string
	args  []lua.LValue
}

func (s *stubScripts) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	if hook != ai.HookChooseAttackDirection {
		return lua.LNil, nil
	}
	s.scope = scope
	s.args = args
	return s.ret, nil
}

type duel struct {
	clock *timing.ManualClock
	opp   *fighter.Fighter
	self  *fighter.Fighter
	match *stubMatch
	eng   *ai.Engine
}

func newDuel(t *testing.T, selfRole fighter.Role, opts ai.Options) *duel {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := timing.NewManualClock(0)
	fcfg, gcfg := fighter.DefaultConfig(), gesture.DefaultConfig()
	d := &duel{
		clock: clock,
		opp:   fighter.New("p1", "player", selfRole.Other(), fcfg, gcfg, clock, nil, logger),
		self:  fighter.New("ai", "opponent", selfRole, fcfg, gcfg, clock, nil, logger),
		match: &stubMatch{started: true},
	}
	roller := dice.NewLoggedRoller(highSource{}, logger)
	d.eng = ai.NewEngine(d.self, d.opp, d.match, roller, opts, logger)
	d.opp.Tick(0)
	d.self.Tick(0)
	return d
}

func (d *duel) step() {
	now := d.clock.Advance(tick)
	d.opp.Tick(now)
	d.self.Tick(now)
	d.eng.Tick(now)
}

func (d *duel) run(seconds float64) {
	for i := 0; i < int(seconds/tick+0.5); i++ {
		d.step()
	}
}

// rampWindup winds the opponent up in dir to peak over n ticks.
func (d *duel) rampWindup(dir direction.Direction, peak float64, n int) {
	d.opp.BeginWindup(dir)
	for k := 1; k <= n; k++ {
		d.opp.SetWindupProgress(peak * float64(k) / float64(n))
		d.step()
	}
}

func policy(mut func(*ai.Policy)) ai.Policy {
	p := ai.DefaultPolicy()
	if mut != nil {
		mut(&p)
	}
	return p
}

func TestEngine_BlocksQualifiedWindup(t *testing.T) {
	d := newDuel(t, fighter.RoleDefender, ai.Options{Policy: policy(func(p *ai.Policy) { p.BlockChance = 1 })})

	d.rampWindup(direction.Right, 0.3, 10)
	assert.False(t, d.self.IsBlocking(), "below reaction threshold")

	for k := 1; k <= 10; k++ {
		d.opp.SetWindupProgress(0.3 + 0.04*float64(k))
		d.step()
	}
	require.True(t, d.self.IsBlocking())
	assert.Equal(t, direction.Left, d.self.BlockDirection())
	assert.Equal(t, ai.DefenseBlocking, d.eng.Defense())
	assert.True(t, d.self.IsHardBlockLocked())

	d.run(0.3)
	assert.InDelta(t, 1.0, d.self.BlockHold01(), 1e-6)
}

func TestEngine_IgnoresUncommittedWindupButBlocksSlap(t *testing.T) {
	d := newDuel(t, fighter.RoleDefender, ai.Options{Policy: policy(func(p *ai.Policy) { p.BlockChance = 0 })})

	d.rampWindup(direction.Left, 0.9, 30)
	assert.False(t, d.self.IsBlocking())

	d.opp.TriggerSlap(direction.Left, 20, 3)
	d.step()
	require.True(t, d.self.IsBlocking())
	assert.Equal(t, direction.Right, d.self.BlockDirection())
	assert.Equal(t, "Immediate incoming threat detected (slap or qualified windup)", d.eng.Reason())
}

func TestEngine_ReleasesAfterThreatPasses(t *testing.T) {
	d := newDuel(t, fighter.RoleDefender, ai.Options{Policy: policy(func(p *ai.Policy) { p.BlockChance = 1 })})
	d.rampWindup(direction.Up, 0.8, 30)
	require.True(t, d.self.IsBlocking())

	d.opp.CancelWindup()
	d.step()
	assert.True(t, d.self.IsBlocking(), "latch keeps the block through a momentary gap")

	d.run(1)
	assert.False(t, d.self.IsBlocking())
	assert.False(t, d.self.IsHardBlockLocked())
	assert.Equal(t, ai.DefenseIdle, d.eng.Defense())
	assert.Equal(t, "No immediate threat: AI can stay/release to idle", d.eng.Reason())
}

func TestEngine_HoldsDuringUnresolvedHit(t *testing.T) {
	d := newDuel(t, fighter.RoleDefender, ai.Options{Policy: ai.DefaultPolicy()})
	d.match.pendingOn = "ai"
	d.step()
	require.True(t, d.self.IsBlocking())
	assert.Equal(t, direction.Up, d.self.BlockDirection())
	assert.Equal(t, "Holding defense during unresolved hit", d.eng.Reason())
}

func TestEngine_IdleBeforeMatchStarts(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy()})
	d.match.started = false
	d.run(0.5)
	assert.Equal(t, ai.AttackIdle, d.eng.AttackState())
	assert.Equal(t, direction.None, d.self.PendingDirection())
	assert.Equal(t, "Battle has not started yet", d.eng.Reason())
}

func TestEngine_WaitsForIntro(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy()})
	d.match.delay = 1
	d.run(0.5)
	assert.Equal(t, ai.AttackIdle, d.eng.AttackState())
	assert.Equal(t, "Waiting for the match intro", d.eng.Reason())

	d.match.delay = 0
	d.step()
	assert.Equal(t, ai.AttackWindup, d.eng.AttackState())
}

func TestEngine_MirrorsLastPlayerSlap(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy()})
	d.opp.SetRole(fighter.RoleAttacker)
	d.opp.BeginWindup(direction.Left)
	d.opp.SetWindupProgress(0.8)
	d.opp.TriggerSlap(direction.Left, 20, 3)
	d.opp.SetRole(fighter.RoleDefender)

	rec := &slapRecorder{}
	d.self.SetSlapSink(rec)
	d.step()
	assert.Equal(t, ai.AttackWindup, d.eng.AttackState())
	snap := d.eng.Snapshot()
	assert.Equal(t, ai.ReasonMirror, snap.Plan.Reason)

	d.run(1.2)
	require.Len(t, rec.slaps, 1)
	assert.Equal(t, direction.Right, rec.slaps[0].Direction)
	assert.InDelta(t, 1.0, rec.slaps[0].Windup01, 1e-9)
	assert.Equal(t, ai.AttackCooldown, d.eng.AttackState())
}

func TestEngine_MirrorPicksRandomWithoutHistory(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy()})
	d.step()
	assert.Equal(t, direction.DownRight, d.eng.Snapshot().Plan.Direction)
}

func TestEngine_AbortsWindupWhileArbiterWaits(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy()})
	d.run(0.2)
	require.Equal(t, ai.AttackWindup, d.eng.AttackState())
	d.match.waiting = true
	d.step()
	assert.Equal(t, ai.AttackIdle, d.eng.AttackState())
	assert.Equal(t, "Waiting for hit resolution as attacker", d.eng.Reason())
	assert.Equal(t, direction.None, d.self.PendingDirection())
}

func TestEngine_ScriptOverridesDirection(t *testing.T) {
	scripts := &stubScripts{ret: lua.LString("up")}
	d := newDuel(t, fighter.RoleAttacker, ai.Options{
		Policy:     ai.DefaultPolicy(),
		Advanced:   true,
		Difficulty: 0.5,
		Scripts:    scripts,
	})
	d.step()
	plan := d.eng.Snapshot().Plan
	assert.Equal(t, direction.Up, plan.Direction)
	assert.Equal(t, ai.ReasonScript, plan.Reason)
	assert.Equal(t, ai.DefaultScriptScope, scripts.scope)
	require.Len(t, scripts.args, 5)
	assert.Equal(t, lua.LString(ai.ReasonBlockHabit), scripts.args[1])
	assert.Equal(t, direction.Up, d.self.PendingDirection())
}

func TestEngine_ScriptNonsenseKeepsChoice(t *testing.T) {
	scripts := &stubScripts{ret: lua.LString("sideways")}
	style := &ai.Style{ID: "custom", Script: "custom_scope"}
	d := newDuel(t, fighter.RoleAttacker, ai.Options{
		Policy:   ai.DefaultPolicy(),
		Style:    style,
		Advanced: true,
		Scripts:  scripts,
	})
	d.step()
	plan := d.eng.Snapshot().Plan
	assert.Equal(t, direction.DownRight, plan.Direction)
	assert.Equal(t, ai.ReasonBlockHabit, plan.Reason)
	assert.Equal(t, "custom_scope", scripts.scope)
}

func TestEngine_AdvancedPlanRespectsPolicy(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy(), Advanced: true, Difficulty: 1})
	d.step()
	plan := d.eng.Snapshot().Plan
	p := ai.DefaultPolicy()
	assert.GreaterOrEqual(t, plan.Windup, p.Windup.Min)
	assert.LessOrEqual(t, plan.Windup, p.Windup.Max)
	assert.LessOrEqual(t, plan.Windup+plan.Hold, p.Failsafe+1e-9)
	assert.GreaterOrEqual(t, plan.SpeedCm, p.SwipeSpeedLow.Max)
	assert.LessOrEqual(t, plan.SpeedCm, p.SwipeSpeedHigh.Max)
	assert.False(t, plan.FalseWindup)
}

func TestEngine_FailsafeSoftCancelsFeint(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{
		Policy: policy(func(p *ai.Policy) {
			p.Windup = ai.Span{Min: 3, Max: 3}
			p.Cooldown = ai.Span{Min: 1, Max: 1}
			p.Failsafe = 0.5
		}),
		Style:      &ai.Style{ID: "feinter", FalseWindupChance: 1},
		Advanced:   true,
		Difficulty: 1,
	})
	rec := &slapRecorder{}
	d.self.SetSlapSink(rec)
	d.step()
	require.Equal(t, ai.AttackWindup, d.eng.AttackState())
	require.True(t, d.eng.Snapshot().Plan.FalseWindup)

	d.run(0.6)
	assert.Equal(t, ai.AttackCooldown, d.eng.AttackState())
	assert.Empty(t, rec.slaps)
	assert.False(t, d.self.IsSlapping())
	assert.Equal(t, direction.None, d.self.PendingDirection())
}

func TestEngine_HandleEventAdaptsDifficulty(t *testing.T) {
	d := newDuel(t, fighter.RoleAttacker, ai.Options{Policy: ai.DefaultPolicy(), Advanced: true, Difficulty: 0.5})
	for i := 0; i < 5; i++ {
		d.eng.HandleEvent(combat.HitResolved{AttackerID: "ai", DefenderID: "p1", Blocked: true, Perfect: true, BlockDirection: direction.Left})
	}
	raised := d.eng.Difficulty()
	assert.Greater(t, raised, 0.5)
	snap := d.eng.Snapshot()
	assert.Equal(t, 5, snap.Exchanges)
	assert.Equal(t, ai.BandPro, snap.Band)

	for i := 0; i < 10; i++ {
		d.eng.HandleEvent(combat.HitResolved{AttackerID: "p1", DefenderID: "ai", Damage: 0})
	}
	assert.Less(t, d.eng.Difficulty(), raised)
}

// A defender low on stamina that has sat through three feints opens its
// guard against the next weak slap, exactly once.
func TestEngine_FeintsArmOneDefensiveMistake(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clock := timing.NewManualClock(0)
	fcfg, gcfg := fighter.DefaultConfig(), gesture.DefaultConfig()
	player := fighter.New("p1", "player", fighter.RoleAttacker, fcfg, gcfg, clock, nil, logger)
	self := fighter.New("ai", "opponent", fighter.RoleDefender, fcfg, gcfg, clock, nil, logger)

	cfg := combat.DefaultConfig()
	cfg.IntroSeconds = 0
	bus := combat.NewBus()
	arb := combat.NewArbiter("m1", cfg, bus, logger)
	arb.Register(player, self)
	require.True(t, arb.Start(0))

	eng := ai.NewEngine(self, player, arb, dice.NewLoggedRoller(highSource{}, logger), ai.Options{
		Policy: policy(func(p *ai.Policy) {
			p.BlockChance = 1
			p.FeintMistakeChance = 1
		}),
	}, logger)
	var hits []combat.HitResolved
	bus.Subscribe(eng.HandleEvent)
	bus.Subscribe(func(ev combat.Event) {
		if h, ok := ev.(combat.HitResolved); ok {
			hits = append(hits, h)
		}
	})
	self.Stats().SpendStamina(150)

	step := func() {
		now := clock.Advance(tick)
		player.Tick(now)
		self.Tick(now)
		eng.Tick(now)
		arb.Tick(now, tick)
	}
	wait := func(seconds float64) {
		for i := 0; i < int(seconds/tick+0.5); i++ {
			step()
		}
	}

	for i := 0; i < 3; i++ {
		player.BeginWindup(direction.Right)
		for k := 1; k <= 20; k++ {
			player.SetWindupProgress(0.03 * float64(k))
			step()
		}
		player.CancelWindup()
		wait(1.5)
	}
	require.True(t, eng.Snapshot().MistakeArmed)
	require.Less(t, self.Stamina01(), 0.5)
	require.False(t, self.IsBlocking())

	player.BeginWindup(direction.Right)
	player.SetWindupProgress(0.8)
	player.TriggerSlap(direction.Right, 20, 3)
	require.Less(t, player.SlapPower01(), 0.5)

	blockedTicks := 0
	for i := 0; i < 600 && len(hits) == 0; i++ {
		step()
		if self.IsBlocking() {
			blockedTicks++
		}
	}
	require.Len(t, hits, 1)
	assert.False(t, hits[0].Blocked)
	assert.Positive(t, hits[0].Damage)
	assert.LessOrEqual(t, blockedTicks, 1)
	assert.False(t, eng.Snapshot().MistakeArmed)
}
