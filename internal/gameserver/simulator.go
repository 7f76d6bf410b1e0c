package gameserver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/scripting"
	"github.com/cory-johannsen/slapfight/internal/settings"
	"github.com/cory-johannsen/slapfight/internal/trace"
)

// Preferences supplies the stored difficulty. *settings.Store satisfies it.
type Preferences interface {
	Difficulty() settings.Difficulty
}

// Report aggregates every match a Simulator ran.
type Report struct {
	Matches      int
	PlayerWins   int
	OpponentWins int
	DoubleKOs    int
	Undecided    int
	Hits         int
	Trace        trace.Summary
}

func (r *Report) add(res Result) {
	r.Matches++
	r.Hits += res.Hits
	switch {
	case res.Outcome == combat.OutcomeDoubleKO:
		r.DoubleKOs++
	case res.WinnerRole == WinnerPlayer:
		r.PlayerWins++
	case res.WinnerRole == WinnerOpponent:
		r.OpponentWins++
	default:
		r.Undecided++
	}
}

func (r *Report) addTrace(s trace.Summary) {
	r.Trace.Slaps += s.Slaps
	r.Trace.Hits += s.Hits
	r.Trace.Blocked += s.Blocked
	r.Trace.Perfect += s.Perfect
	r.Trace.Damage += s.Damage
}

// Simulator runs a configured number of matches back to back. It
// implements server.Service.
type Simulator struct {
	cfg     config.Config
	roller  *dice.Roller
	styles  *ai.StyleRegistry
	scripts *scripting.Manager
	prefs   Preferences
	input   []PointerEvent
	logger  *zap.Logger

	stopped atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	results []Result
	report  Report
}

// NewSimulator returns a Simulator.
//
// Precondition: roller and styles must be non-nil; scripts, prefs, and input
// are optional.
// Postcondition: a nil logger is replaced by a no-op logger.
func NewSimulator(cfg config.Config, roller *dice.Roller, styles *ai.StyleRegistry, scripts *scripting.Manager, prefs Preferences, input []PointerEvent, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:     cfg,
		roller:  roller,
		styles:  styles,
		scripts: scripts,
		prefs:   prefs,
		input:   input,
		logger:  logger,
	}
}

// Difficulty resolves the opponent difficulty: the configured override if
// set, else the stored preference, else Normal.
func (s *Simulator) Difficulty() (settings.Difficulty, error) {
	if s.cfg.Settings.Difficulty != "" {
		d, err := settings.ParseDifficulty(s.cfg.Settings.Difficulty)
		if err != nil {
			return settings.Normal, fmt.Errorf("gameserver.Simulator: %w", err)
		}
		return d, nil
	}
	if s.prefs == nil {
		return settings.Normal, nil
	}
	return s.prefs.Difficulty(), nil
}

// Start runs every configured match and returns when they finish or Stop
// is called.
func (s *Simulator) Start() error {
	style, ok := s.styles.Get(s.cfg.AI.Style)
	if !ok {
		return fmt.Errorf("gameserver.Simulator.Start: unknown style %q (known: %v)", s.cfg.AI.Style, s.styles.IDs())
	}
	diff, err := s.Difficulty()
	if err != nil {
		return err
	}
	s.logger.Info("simulation starting",
		zap.String("mode", s.cfg.Simulation.Mode),
		zap.Int("matches", s.cfg.Simulation.Matches),
		zap.String("style", style.ID),
		zap.Stringer("difficulty", diff),
		zap.Bool("realtime", s.cfg.Simulation.Realtime),
	)
	for i := 0; i < s.cfg.Simulation.Matches && !s.stopped.Load(); i++ {
		if err := s.runMatch(i, style, diff.Value()); err != nil {
			return err
		}
	}
	rep := s.Report()
	s.logger.Info("simulation finished",
		zap.Int("matches", rep.Matches),
		zap.Int("player_wins", rep.PlayerWins),
		zap.Int("opponent_wins", rep.OpponentWins),
		zap.Int("double_kos", rep.DoubleKOs),
		zap.Int("undecided", rep.Undecided),
		zap.Int("hits", rep.Hits),
	)
	return nil
}

// Stop ends the current match early and skips the rest.
func (s *Simulator) Stop() {
	s.stopped.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Simulator) runMatch(index int, style *ai.Style, difficulty float64) error {
	var rec *trace.Recorder
	if s.cfg.Trace.Enabled {
		r, err := trace.Open(s.cfg.Trace.Dir, "", trace.Options{FrameInterval: s.cfg.Trace.FrameInterval})
		if err != nil {
			return fmt.Errorf("gameserver.Simulator: match %d: %w", index, err)
		}
		rec = r
		defer func() {
			if err := rec.Close(); err != nil {
				s.logger.Warn("closing trace", zap.Error(err))
			}
		}()
	}

	sess, err := NewSession(s.cfg, SessionDeps{
		Roller:     s.roller,
		Logger:     s.logger.With(zap.Int("match_index", index)),
		Style:      style,
		Scripts:    s.scripts,
		Input:      s.input,
		Recorder:   rec,
		Difficulty: difficulty,
	})
	if err != nil {
		return fmt.Errorf("gameserver.Simulator: match %d: %w", index, err)
	}
	if err := sess.Start(); err != nil {
		return err
	}
	if s.cfg.Simulation.Realtime {
		s.runRealtime(sess)
	} else {
		step := s.cfg.Simulation.StepSeconds
		for !s.stopped.Load() && !sess.Step(step) {
		}
	}
	res := sess.Finish()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	s.report.add(res)
	if rec != nil {
		s.report.addTrace(rec.Summary())
	}
	return nil
}

// runRealtime steps sess from a TickManager at the configured tick
// interval, feeding it the elapsed wall-clock time.
func (s *Simulator) runRealtime(sess *Session) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()
	if s.stopped.Load() {
		return
	}

	done := make(chan struct{})
	var once sync.Once
	ticks := NewTickManager(s.cfg.Match.TickInterval)
	ticks.RegisterTick(sess.ID(), func(dt float64) {
		if sess.Step(dt) {
			once.Do(func() { close(done) })
		}
	})
	ticks.Start(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	ticks.Unregister(sess.ID())
}

// Results returns the finished matches in order.
func (s *Simulator) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Report returns the aggregate over finished matches.
func (s *Simulator) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}
