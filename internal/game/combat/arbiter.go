// Package combat implements the match arbiter for a two-fighter slap match.
//
// The Arbiter owns turn order, the single outstanding PendingHit, hit
// resolution, stamina drain, and the match lifecycle. It is constructed
// explicitly and injected into fighters (as their fighter.SlapSink) and into
// the decision engine.
package combat

import (
	"context"
	"math"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
)

// Match lifecycle states.
const (
	StateNotStarted = "not_started"
	StateIntro      = "intro"
	StateStarted    = "started"
	StateOver       = "over"
)

const (
	evStart     = "start"
	evIntroDone = "intro_done"
	evEnd       = "end"
)

// Hit verdict labels.
const (
	VerdictSlap         = "SLAP"
	VerdictBoom         = "BOOM"
	VerdictBlock        = "BLOCK"
	VerdictPerfectBlock = "PERFECT BLOCK"
)

// Outcome is the result of a match.
type Outcome int

const (
	OutcomeUndecided Outcome = iota
	OutcomeKO
	OutcomeDoubleKO
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeUndecided:
		return "undecided"
	case OutcomeKO:
		return "ko"
	case OutcomeDoubleKO:
		return "double_ko"
	default:
		return "unknown"
	}
}

// PendingHit is a fired slap awaiting resolution.
type PendingHit struct {
	Attacker          *fighter.Fighter
	Defender          *fighter.Fighter
	Direction         direction.Direction
	BaseDamagePercent float64
	BlockDirection    direction.Direction
	StaminaAtFire     float64
	FiredAt           float64
}

// Mirror maps an attack direction into the defender's frame.
func Mirror(d direction.Direction) direction.Direction { return d.Mirror() }

// Arbiter referees one match between two fighters.
//
// An Arbiter is not safe for concurrent use; the owning session serialises
// every call.
type Arbiter struct {
	cfg     Config
	matchID string
	logger  *zap.Logger
	bus     *Bus

	lifecycle *fsm.FSM
	first     *fighter.Fighter
	second    *fighter.Fighter

	startRequested bool
	playerTurn     bool
	pending        *PendingHit
	flipPending    bool
	flipAttacker   *fighter.Fighter

	intro   timing.Deadline
	sweeper timing.Sweeper

	outcome  Outcome
	winner   *fighter.Fighter
	resolved int
	lastHit  *HitResolved
	lastTick float64
}

// NewArbiter returns an Arbiter in the not_started state.
//
// Precondition: bus must be non-nil.
// Postcondition: a nil logger is replaced by a no-op logger.
func NewArbiter(matchID string, cfg Config, bus *Bus, logger *zap.Logger) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Arbiter{
		cfg:        cfg,
		matchID:    matchID,
		logger:     logger.With(zap.String("match", matchID)),
		bus:        bus,
		playerTurn: true,
	}
	a.lifecycle = fsm.NewFSM(
		StateNotStarted,
		fsm.Events{
			{Name: evStart, Src: []string{StateNotStarted}, Dst: StateIntro},
			{Name: evIntroDone, Src: []string{StateIntro}, Dst: StateStarted},
			{Name: evEnd, Src: []string{StateIntro, StateStarted}, Dst: StateOver},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				a.logger.Info("match state",
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)
	a.sweeper.Register("intro", &a.intro)
	return a
}

// Register sets the two fighters; first attacks first.
//
// Postcondition: both fighters deliver SlapFired to the Arbiter.
func (a *Arbiter) Register(first, second *fighter.Fighter) {
	a.first = first
	a.second = second
	if first != nil {
		first.SetSlapSink(a)
	}
	if second != nil {
		second.SetSlapSink(a)
	}
}

// Start begins the match at now. Without both fighters registered the
// request is remembered and retried on every Tick.
//
// Postcondition: returns true when the match left not_started.
func (a *Arbiter) Start(now float64) bool {
	a.startRequested = true
	return a.tryStart(now)
}

func (a *Arbiter) tryStart(now float64) bool {
	if a.State() != StateNotStarted {
		return a.IsStarted()
	}
	if a.first == nil || a.second == nil {
		a.logger.Debug("match start deferred: fighters not registered")
		return false
	}
	a.fire(evStart)
	a.startRequested = false
	a.playerTurn = true
	a.applyRoles()
	if a.cfg.IntroSeconds > 0 {
		a.intro.Arm(now, a.cfg.IntroSeconds)
		a.first.SetInputEnabled(false)
		a.second.SetInputEnabled(false)
	} else {
		a.finishIntro()
	}
	return true
}

func (a *Arbiter) finishIntro() {
	a.fire(evIntroDone)
	a.first.SetInputEnabled(true)
	a.second.SetInputEnabled(true)
}

func (a *Arbiter) fire(ev string) {
	if a.lifecycle.Can(ev) {
		_ = a.lifecycle.Event(context.Background(), ev)
	}
}

// applyRoles assigns attacker and defender from playerTurn.
func (a *Arbiter) applyRoles() {
	atk, def := a.CurrentAttacker(), a.CurrentDefender()
	atk.SetRole(fighter.RoleAttacker)
	def.SetRole(fighter.RoleDefender)
}

// OnSlapFired implements fighter.SlapSink.
//
// Postcondition: a PendingHit is queued only for the current attacker of a
// running match with no hit outstanding and no turn flip waiting.
func (a *Arbiter) OnSlapFired(f *fighter.Fighter, ev fighter.SlapEvent) {
	accepted := a.IsStarted() && !a.IsOver() && a.pending == nil && !a.flipPending &&
		f != nil && f == a.CurrentAttacker() && a.CurrentDefender() != nil
	if accepted {
		a.pending = &PendingHit{
			Attacker:          f,
			Defender:          a.CurrentDefender(),
			Direction:         ev.Direction,
			BaseDamagePercent: (clamp01(ev.Windup01) + clamp01(ev.SlapPower01)) * a.cfg.DamageScale,
			StaminaAtFire:     f.Stats().Stamina,
			FiredAt:           ev.At,
		}
		a.logger.Debug("pending hit queued",
			zap.String("attacker", f.Name()),
			zap.Stringer("direction", ev.Direction),
			zap.Float64("base_damage_percent", a.pending.BaseDamagePercent),
		)
	}
	out := SlapFired{MatchID: a.matchID, Accepted: accepted, Slap: ev}
	if f != nil {
		out.AttackerID = f.ID()
		out.Attacker = f.Name()
	}
	a.bus.Publish(out)
}

// Tick advances the match by dt ending at now.
//
// Order: sweep deadlines, intro completion, stamina drain, deferred turn
// flip, pending hit resolution, KO evaluation.
func (a *Arbiter) Tick(now, dt float64) {
	a.lastTick = now
	if a.State() == StateNotStarted {
		if !a.startRequested || !a.tryStart(now) {
			return
		}
	}
	if a.IsOver() {
		return
	}
	for _, name := range a.sweeper.Tick(now) {
		if name == "intro" {
			a.finishIntro()
		}
	}
	a.drain(now, dt)
	if a.flipPending && (a.flipAttacker == nil || !a.flipAttacker.IsSlapAnimating()) {
		a.playerTurn = !a.playerTurn
		a.flipPending = false
		a.flipAttacker = nil
		a.applyRoles()
		a.logger.Debug("turn flipped", zap.String("attacker", a.CurrentAttacker().Name()))
	}
	if a.pending != nil {
		a.resolve(now)
	}
	a.evaluateKO(now)
}

func (a *Arbiter) drain(now, dt float64) {
	if dt <= 0 {
		return
	}
	atk, def := a.CurrentAttacker(), a.CurrentDefender()
	if atk.Windup01() > a.cfg.DrainWindupThreshold {
		a.spend(atk, "windup", dt, now)
	}
	if def.IsBlocking() {
		a.spend(def, "block", dt, now)
	}
}

func (a *Arbiter) spend(f *fighter.Fighter, reason string, dt, now float64) {
	st := f.Stats()
	rate := st.MaxStamina / math.Max(0.01, a.cfg.StaminaDrainSeconds)
	before := st.Stamina
	spent := st.SpendStamina(rate * dt)
	if spent <= 0 {
		return
	}
	a.bus.Publish(StaminaDrained{
		MatchID: a.matchID,
		ActorID: f.ID(),
		Reason:  reason,
		Amount:  spent,
		Before:  before,
		After:   st.Stamina,
		At:      now,
	})
}

// resolve re-samples the defender's block and settles the pending hit once
// the attacker's swing reaches the resolve progress.
func (a *Arbiter) resolve(now float64) {
	p := a.pending
	atk, def := p.Attacker, p.Defender
	if atk == nil || def == nil {
		return
	}
	if def.IsBlocking() {
		p.BlockDirection = def.BlockDirection()
	}
	blocked := def.IsBlocking() && p.Direction != direction.None && def.BlockDirection() == Mirror(p.Direction)
	perfect := blocked && def.BlockHold01() >= a.cfg.PerfectMinHold &&
		def.BlockHoldSeconds() <= a.cfg.PerfectMaxHoldSeconds
	if atk.SlapProgress01() < a.cfg.ResolveProgress(p.Direction, blocked) {
		return
	}
	if blocked {
		atk.InterruptSlap(a.cfg.BlockedResolveProgress)
	}

	pct := p.BaseDamagePercent
	if blocked {
		pct = 0
	}
	as := atk.Stats()
	if as.Stamina <= 0 && as.IsAlive() {
		pct *= a.cfg.ExhaustedDamageScale
	}
	ds := def.Stats()
	healthBefore := ds.Health
	damage := ds.TakeDamage(pct * ds.MaxHealth / 100)

	blockDir := direction.None
	if def.IsBlocking() {
		blockDir = p.BlockDirection
	}
	hit := HitResolved{
		MatchID:        a.matchID,
		AttackerID:     atk.ID(),
		DefenderID:     def.ID(),
		Direction:      p.Direction,
		BlockDirection: blockDir,
		Blocked:        blocked,
		Perfect:        perfect,
		DamagePercent:  pct,
		Damage:         damage,
		StaminaBefore:  p.StaminaAtFire,
		StaminaAfter:   as.Stamina,
		HealthBefore:   healthBefore,
		HealthAfter:    ds.Health,
		Verdict:        a.verdict(blocked, perfect, pct),
		At:             now,
	}
	a.pending = nil
	a.resolved++
	a.lastHit = &hit
	a.flipPending = true
	a.flipAttacker = atk
	a.logger.Info("hit resolved",
		zap.String("attacker", atk.Name()),
		zap.String("defender", def.Name()),
		zap.Stringer("direction", p.Direction),
		zap.String("verdict", hit.Verdict),
		zap.Float64("damage", damage),
	)
	a.bus.Publish(hit)
}

func (a *Arbiter) verdict(blocked, perfect bool, pct float64) string {
	switch {
	case perfect:
		return VerdictPerfectBlock
	case blocked:
		return VerdictBlock
	case pct >= a.cfg.BoomDamagePercent:
		return VerdictBoom
	default:
		return VerdictSlap
	}
}

// evaluateKO ends the match when either fighter is out of health.
func (a *Arbiter) evaluateKO(now float64) {
	firstDown := !a.first.Stats().IsAlive()
	secondDown := !a.second.Stats().IsAlive()
	switch {
	case firstDown && secondDown:
		a.outcome = OutcomeDoubleKO
		a.winner = nil
	case firstDown:
		a.outcome = OutcomeKO
		a.winner = a.second
	case secondDown:
		a.outcome = OutcomeKO
		a.winner = a.first
	default:
		return
	}
	a.pending = nil
	a.flipPending = false
	a.fire(evEnd)
	a.first.SetInputEnabled(false)
	a.second.SetInputEnabled(false)
	ended := MatchEnded{MatchID: a.matchID, Outcome: a.outcome, Hits: a.resolved, At: now}
	if a.winner != nil {
		ended.WinnerID = a.winner.ID()
	}
	a.logger.Info("match over",
		zap.Stringer("outcome", a.outcome),
		zap.String("winner", ended.WinnerID),
		zap.Int("hits", a.resolved),
	)
	a.bus.Publish(ended)
}

// MatchID returns the match identifier.
func (a *Arbiter) MatchID() string { return a.matchID }

// Config returns the arbitration tuning.
func (a *Arbiter) Config() Config { return a.cfg }

// State returns the lifecycle state.
func (a *Arbiter) State() string { return a.lifecycle.Current() }

// IsStarted reports whether the match has started, including its intro.
func (a *Arbiter) IsStarted() bool {
	s := a.State()
	return s == StateIntro || s == StateStarted
}

// IsOver reports whether the match has ended.
func (a *Arbiter) IsOver() bool { return a.State() == StateOver }

// Outcome returns the match outcome.
func (a *Arbiter) Outcome() Outcome { return a.outcome }

// Winner returns the winning fighter, or nil when undecided or on a double KO.
func (a *Arbiter) Winner() *fighter.Fighter { return a.winner }

// PlayerTurn reports whether the first-registered fighter is attacking.
func (a *Arbiter) PlayerTurn() bool { return a.playerTurn }

// CurrentAttacker returns the fighter whose turn it is.
func (a *Arbiter) CurrentAttacker() *fighter.Fighter {
	if a.playerTurn {
		return a.first
	}
	return a.second
}

// CurrentDefender returns the fighter not attacking.
func (a *Arbiter) CurrentDefender() *fighter.Fighter {
	if a.playerTurn {
		return a.second
	}
	return a.first
}

// IsWaitingForSlapEnd reports whether a hit is pending or a turn flip is
// waiting for the attacker's swing to finish.
func (a *Arbiter) IsWaitingForSlapEnd() bool { return a.pending != nil || a.flipPending }

// AttackDelayRemaining returns the seconds before fighterID may attack.
func (a *Arbiter) AttackDelayRemaining(fighterID string) float64 {
	atk := a.CurrentAttacker()
	if atk == nil || atk.ID() != fighterID {
		return 0
	}
	return a.intro.Remaining(a.lastTick)
}

// HasPendingHitOn reports whether an unresolved hit targets defenderID.
func (a *Arbiter) HasPendingHitOn(defenderID string) bool {
	return a.pending != nil && a.pending.Defender != nil && a.pending.Defender.ID() == defenderID
}

// Pending returns a copy of the outstanding hit, or false.
func (a *Arbiter) Pending() (PendingHit, bool) {
	if a.pending == nil {
		return PendingHit{}, false
	}
	return *a.pending, true
}

// ResolvedHits returns the number of hits resolved so far.
func (a *Arbiter) ResolvedHits() int { return a.resolved }

// LastHit returns the most recent resolution, or false.
func (a *Arbiter) LastHit() (HitResolved, bool) {
	if a.lastHit == nil {
		return HitResolved{}, false
	}
	return *a.lastHit, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var _ fighter.SlapSink = (*Arbiter)(nil)
