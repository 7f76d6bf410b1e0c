package gameserver

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/game/pose"
	"github.com/cory-johannsen/slapfight/internal/game/timing"
	"github.com/cory-johannsen/slapfight/internal/observability"
	"github.com/cory-johannsen/slapfight/internal/scripting"
	"github.com/cory-johannsen/slapfight/internal/trace"
)

// End reasons reported in Result.Reason and the trace session_end record.
const (
	ReasonKO             = "ko"
	ReasonDoubleKO       = "double_ko"
	ReasonTimeout        = "timeout"
	ReasonInputExhausted = "input_exhausted"
	ReasonStopped        = "stopped"
)

// Winner roles reported in Result.WinnerRole.
const (
	WinnerPlayer   = "player"
	WinnerOpponent = "opponent"
)

// SessionDeps carries the collaborators a Session needs beyond configuration.
type SessionDeps struct {
	Roller *dice.Roller
	Logger *zap.Logger
	// Style drives both engines; nil uses the built-in balanced style.
	Style *ai.Style
	// Scripts is optional. When non-nil its fighter and match callbacks are
	// bound to the session.
	Scripts *scripting.Manager
	// Input is the scripted player input; required in scripted mode.
	Input []PointerEvent
	// Recorder is optional.
	Recorder *trace.Recorder
	// Difficulty seeds the opponent engine in [0,1].
	Difficulty float64
}

// Result summarises a finished match.
type Result struct {
	MatchID        string
	Outcome        combat.Outcome
	Reason         string
	WinnerRole     string
	WinnerName     string
	Hits           int
	Duration       float64
	PlayerHealth   float64
	OpponentHealth float64
	Difficulty     float64
}

// TimedOut reports whether the match hit the time limit.
func (r Result) TimedOut() bool { return r.Reason == ReasonTimeout }

// Session owns one match: two fighters, the arbiter, the decision engines,
// and the manual clock that drives them. All methods are safe for
// concurrent use; every call is serialised on the session mutex.
type Session struct {
	mu sync.Mutex

	id       string
	mode     string
	clock    *timing.ManualClock
	bus      *combat.Bus
	arb      *combat.Arbiter
	player   *fighter.Fighter
	opponent *fighter.Fighter

	playerAI   *ai.Engine
	opponentAI *ai.Engine

	feed       *InputFeed
	rec        *trace.Recorder
	logger     *zap.Logger
	difficulty float64
	maxSeconds float64

	started   bool
	startedAt float64
	reason    string
}

// NewSession builds a match from cfg. The match is not started.
//
// Precondition: deps.Roller must be non-nil; cfg.Simulation.Mode must be a
// known mode and scripted mode needs deps.Input.
// Postcondition: both fighters are registered with the arbiter and every
// event subscriber is attached to the bus.
func NewSession(cfg config.Config, deps SessionDeps) (*Session, error) {
	if deps.Roller == nil {
		return nil, fmt.Errorf("gameserver.NewSession: roller must not be nil")
	}
	mode := cfg.Simulation.Mode
	if mode != config.ModeAIvsAI && mode != config.ModeScripted {
		return nil, fmt.Errorf("gameserver.NewSession: unknown mode %q", mode)
	}
	if mode == config.ModeScripted && len(deps.Input) == 0 {
		return nil, fmt.Errorf("gameserver.NewSession: scripted mode requires input events")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	logger = observability.ForMatch(logger, id, cfg.Match.PlayerName, cfg.Match.OpponentName)
	clock := timing.NewManualClock(0)
	bus := combat.NewBus()
	arb := combat.NewArbiter(id, cfg.Combat, bus, logger)

	player := fighter.New(uuid.NewString(), cfg.Match.PlayerName, fighter.RoleAttacker,
		cfg.Fighter, cfg.Gesture, clock, pose.NewTimeline(cfg.Fighter.SlapClipSeconds), logger)
	opponent := fighter.New(uuid.NewString(), cfg.Match.OpponentName, fighter.RoleDefender,
		cfg.Fighter, cfg.Gesture, clock, pose.NewTimeline(cfg.Fighter.SlapClipSeconds), logger)
	arb.Register(player, opponent)

	s := &Session{
		id:         id,
		mode:       mode,
		clock:      clock,
		bus:        bus,
		arb:        arb,
		player:     player,
		opponent:   opponent,
		rec:        deps.Recorder,
		logger:     logger,
		difficulty: deps.Difficulty,
		maxSeconds: cfg.Simulation.MaxMatchSeconds,
	}

	opts := ai.Options{
		Policy:     cfg.AI.Policy,
		Style:      deps.Style,
		Advanced:   cfg.AI.Advanced,
		Difficulty: deps.Difficulty,
	}
	if deps.Scripts != nil {
		opts.Scripts = deps.Scripts
		deps.Scripts.GetFighter = s.FighterInfo
		deps.Scripts.GetMatch = s.MatchInfo
	}
	s.opponentAI = ai.NewEngine(opponent, player, arb, deps.Roller, opts, logger)
	bus.Subscribe(s.opponentAI.HandleEvent)

	switch mode {
	case config.ModeAIvsAI:
		s.playerAI = ai.NewEngine(player, opponent, arb, deps.Roller, opts, logger)
		bus.Subscribe(s.playerAI.HandleEvent)
	case config.ModeScripted:
		s.feed = NewInputFeed(deps.Input)
	}
	if s.rec != nil {
		bus.Subscribe(s.rec.Handle)
	}
	return s, nil
}

// ID returns the match identifier.
func (s *Session) ID() string { return s.id }

// Arbiter returns the match arbiter.
func (s *Session) Arbiter() *combat.Arbiter { return s.arb }

// Player returns the first-attacking fighter.
func (s *Session) Player() *fighter.Fighter { return s.player }

// Opponent returns the AI-driven fighter.
func (s *Session) Opponent() *fighter.Fighter { return s.opponent }

// OpponentEngine returns the decision engine driving the opponent.
func (s *Session) OpponentEngine() *ai.Engine { return s.opponentAI }

// Subscribe attaches h to the match event bus.
func (s *Session) Subscribe(h combat.Handler) { s.bus.Subscribe(h) }

// Now returns the session clock.
func (s *Session) Now() float64 { return s.clock.Now() }

// Start begins the match at the current clock time.
//
// Postcondition: returns an error when called twice.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("gameserver.Session.Start: match %s already started", s.id)
	}
	now := s.clock.Now()
	s.started = true
	s.startedAt = now
	if s.feed != nil {
		s.feed.Rewind(now)
	}
	if s.rec != nil {
		s.rec.Start(s.id, s.player.Name(), s.opponent.Name(), s.difficulty)
	}
	s.arb.Start(now)
	s.logger.Info("match started",
		zap.String("mode", s.mode),
		zap.Float64("difficulty", s.difficulty),
	)
	return nil
}

// Step advances the match by dt seconds. Within a step, scripted input is
// delivered first, then fighters tick, then the engines decide, then the
// arbiter resolves.
//
// Postcondition: returns true once the match has ended for any reason.
func (s *Session) Step(dt float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked(dt)
}

func (s *Session) stepLocked(dt float64) bool {
	if s.reason != "" {
		return true
	}
	now := s.clock.Advance(dt)
	if s.feed != nil {
		s.feed.Dispatch(now, s.player)
	}
	s.player.Tick(now)
	s.opponent.Tick(now)
	if s.playerAI != nil {
		s.playerAI.Tick(now)
	}
	s.opponentAI.Tick(now)
	s.arb.Tick(now, dt)
	if s.rec != nil {
		s.rec.Sample(s.traceSnapshot(now))
	}
	s.reason = s.endReason(now)
	return s.reason != ""
}

func (s *Session) endReason(now float64) string {
	switch {
	case s.arb.IsOver() && s.arb.Outcome() == combat.OutcomeDoubleKO:
		return ReasonDoubleKO
	case s.arb.IsOver():
		return ReasonKO
	case s.maxSeconds > 0 && now-s.startedAt >= s.maxSeconds:
		return ReasonTimeout
	case s.inputStalled():
		return ReasonInputExhausted
	}
	return ""
}

// inputStalled reports a scripted match that can no longer progress: the
// input is spent and the player holds the turn with nothing in flight.
func (s *Session) inputStalled() bool {
	return s.feed != nil &&
		s.feed.Done() &&
		s.arb.IsStarted() &&
		s.arb.PlayerTurn() &&
		!s.arb.IsWaitingForSlapEnd() &&
		!s.player.IsAttackCycleActive()
}

// Run starts the match if needed and steps it by dt until it ends.
//
// Precondition: dt > 0.
// Postcondition: the recorder, if any, has written session_end.
func (s *Session) Run(dt float64) (Result, error) {
	if dt <= 0 {
		return Result{}, fmt.Errorf("gameserver.Session.Run: dt must be > 0, got %v", dt)
	}
	if err := s.ensureStarted(); err != nil {
		return Result{}, err
	}
	for !s.Step(dt) {
	}
	return s.Finish(), nil
}

func (s *Session) ensureStarted() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		return nil
	}
	return s.Start()
}

// Finish closes out the match. A match that is still running is marked
// stopped.
//
// Postcondition: the recorder, if any, has written session_end; later Steps
// are no-ops.
func (s *Session) Finish() Result {
	s.mu.Lock()
	if s.reason == "" {
		s.reason = ReasonStopped
	}
	s.mu.Unlock()
	res := s.Result()
	if s.rec != nil {
		s.rec.End(res.Reason)
	}
	s.logger.Info("match finished",
		zap.String("reason", res.Reason),
		zap.String("winner", res.WinnerName),
		zap.Int("hits", res.Hits),
		zap.Float64("duration", res.Duration),
	)
	return res
}

// Done reports whether the match has ended.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason != ""
}

// Result returns the match summary; Reason is empty while the match runs.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{
		MatchID:        s.id,
		Outcome:        s.arb.Outcome(),
		Reason:         s.reason,
		Hits:           s.arb.ResolvedHits(),
		Duration:       s.clock.Now() - s.startedAt,
		PlayerHealth:   s.player.Health01(),
		OpponentHealth: s.opponent.Health01(),
		Difficulty:     s.difficulty,
	}
	if w := s.arb.Winner(); w != nil {
		res.WinnerName = w.Name()
		res.WinnerRole = WinnerOpponent
		if w == s.player {
			res.WinnerRole = WinnerPlayer
		}
	}
	return res
}

// HandlePointer forwards a live pointer sample to the player fighter.
//
// Precondition: the session is not in ai_vs_ai mode.
func (s *Session) HandlePointer(phase gesture.Phase, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerAI != nil {
		s.logger.Debug("pointer ignored: player is AI driven")
		return
	}
	s.player.HandlePointer(phase, x, y)
}

// Snapshot returns the trace view of the match at the current time.
func (s *Session) Snapshot() trace.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traceSnapshot(s.clock.Now())
}

func (s *Session) traceSnapshot(now float64) trace.Snapshot {
	return trace.Snapshot{
		At:            now,
		Started:       s.arb.IsStarted(),
		Waiting:       s.arb.IsWaitingForSlapEnd(),
		PlayerTurn:    s.arb.PlayerTurn(),
		PlayerHealth:  s.player.Health01(),
		PlayerStamina: s.player.Stamina01(),
		AIHealth:      s.opponent.Health01(),
		AIStamina:     s.opponent.Stamina01(),
		AIReason:      s.opponentAI.Reason(),
	}
}

// FighterInfo returns the scripting view of the fighter with id, or nil.
// Called from Lua hooks while the session mutex is held.
func (s *Session) FighterInfo(id string) *scripting.FighterInfo {
	var f *fighter.Fighter
	switch id {
	case s.player.ID():
		f = s.player
	case s.opponent.ID():
		f = s.opponent
	default:
		return nil
	}
	block := direction.None
	if f.IsBlocking() {
		block = f.BlockDirection()
	}
	return &scripting.FighterInfo{
		ID:             f.ID(),
		Name:           f.Name(),
		Role:           f.Role().String(),
		Health01:       f.Health01(),
		Stamina01:      f.Stamina01(),
		Blocking:       f.IsBlocking(),
		BlockDirection: block.String(),
		Pending:        f.PendingDirection().String(),
	}
}

// MatchInfo returns the scripting view of the match.
// Called from Lua hooks while the session mutex is held.
func (s *Session) MatchInfo() *scripting.MatchInfo {
	return &scripting.MatchInfo{
		ID:           s.id,
		State:        s.arb.State(),
		PlayerTurn:   s.arb.PlayerTurn(),
		ResolvedHits: s.arb.ResolvedHits(),
	}
}
