package gameserver_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/gameserver"
	"github.com/cory-johannsen/slapfight/internal/scripting"
	"github.com/cory-johannsen/slapfight/internal/trace"
)

const step = 1.0 / 60

func testConfig(mode string) config.Config {
	cfg := config.Default()
	cfg.Simulation.Mode = mode
	cfg.Simulation.MaxMatchSeconds = 60
	cfg.Match.Seed = 7
	return cfg
}

func sampleInput(t *testing.T) []gameserver.PointerEvent {
	t.Helper()
	events, err := gameserver.LoadInput(filepath.Join("..", "..", "content", "input", "sample.yaml"))
	require.NoError(t, err)
	return events
}

func seededRoller(t *testing.T) *dice.Roller {
	return dice.NewLoggedRoller(dice.NewSeededSource(7), zaptest.NewLogger(t))
}

func TestNewSession_Errors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Logger: logger})
	assert.ErrorContains(t, err, "roller")

	_, err = gameserver.NewSession(testConfig("hotseat"), gameserver.SessionDeps{Roller: seededRoller(t), Logger: logger})
	assert.ErrorContains(t, err, "unknown mode")

	_, err = gameserver.NewSession(testConfig(config.ModeScripted), gameserver.SessionDeps{Roller: seededRoller(t), Logger: logger})
	assert.ErrorContains(t, err, "requires input")
}

func TestSession_FightersAndRoles(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, "Player", s.Player().Name())
	assert.Equal(t, "Opponent", s.Opponent().Name())
	assert.Equal(t, fighter.RoleAttacker, s.Player().Role())
	assert.Equal(t, fighter.RoleDefender, s.Opponent().Role())
	assert.NotEqual(t, s.Player().ID(), s.Opponent().ID())
	assert.Equal(t, s.ID(), s.Arbiter().MatchID())
	assert.False(t, s.Arbiter().IsStarted())
	assert.NotNil(t, s.OpponentEngine())
}

func TestSession_StartTwiceFails(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
}

func TestSession_RunRejectsNonPositiveStep(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	_, err = s.Run(0)
	assert.Error(t, err)
}

func TestSession_ScriptedSlapLandsOnOpponent(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeScripted), gameserver.SessionDeps{
		Roller: seededRoller(t),
		Logger: zaptest.NewLogger(t),
		Input:  sampleInput(t),
	})
	require.NoError(t, err)
	var slaps []combat.SlapFired
	var hits []combat.HitResolved
	s.Subscribe(func(ev combat.Event) {
		switch v := ev.(type) {
		case combat.SlapFired:
			slaps = append(slaps, v)
		case combat.HitResolved:
			hits = append(hits, v)
		}
	})

	res, err := s.Run(step)
	require.NoError(t, err)
	require.NotEmpty(t, slaps)
	assert.Equal(t, s.Player().ID(), slaps[0].AttackerID)
	assert.True(t, slaps[0].Accepted)
	assert.Equal(t, direction.Right, slaps[0].Slap.Direction)
	require.NotEmpty(t, hits)
	assert.Equal(t, s.Opponent().ID(), hits[0].DefenderID)
	assert.Contains(t, []string{gameserver.ReasonInputExhausted, gameserver.ReasonKO}, res.Reason)
	assert.GreaterOrEqual(t, res.Hits, 1)
	assert.True(t, s.Done())
}

func TestSession_AIvsAIEndsWithinLimit(t *testing.T) {
	cfg := testConfig(config.ModeAIvsAI)
	s, err := gameserver.NewSession(cfg, gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t), Difficulty: 0.5})
	require.NoError(t, err)

	res, err := s.Run(step)
	require.NoError(t, err)
	assert.Contains(t, []string{gameserver.ReasonKO, gameserver.ReasonDoubleKO, gameserver.ReasonTimeout}, res.Reason)
	assert.LessOrEqual(t, res.Duration, cfg.Simulation.MaxMatchSeconds+step)
	assert.Positive(t, res.Hits)
	assert.Equal(t, 0.5, res.Difficulty)
	switch res.Reason {
	case gameserver.ReasonTimeout:
		assert.True(t, res.TimedOut())
		assert.Equal(t, combat.OutcomeUndecided, res.Outcome)
		assert.Empty(t, res.WinnerRole)
	case gameserver.ReasonKO:
		assert.Equal(t, combat.OutcomeKO, res.Outcome)
		assert.NotEmpty(t, res.WinnerName)
		assert.Contains(t, []string{gameserver.WinnerPlayer, gameserver.WinnerOpponent}, res.WinnerRole)
	}
}

func TestSession_StepAfterEndIsNoop(t *testing.T) {
	cfg := testConfig(config.ModeAIvsAI)
	cfg.Simulation.MaxMatchSeconds = 0.5
	s, err := gameserver.NewSession(cfg, gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	res, err := s.Run(step)
	require.NoError(t, err)
	assert.Equal(t, gameserver.ReasonTimeout, res.Reason)

	now := s.Now()
	assert.True(t, s.Step(step))
	assert.Equal(t, now, s.Now())
}

func TestSession_FinishMarksRunningMatchStopped(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Step(step)
	res := s.Finish()
	assert.Equal(t, gameserver.ReasonStopped, res.Reason)
	assert.True(t, s.Done())
}

func TestSession_PointerIgnoredWhenPlayerIsAI(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	s.HandlePointer(gesture.PhaseBegin, 0, 0)
	s.HandlePointer(gesture.PhaseMove, 150, 0)
	assert.Equal(t, direction.None, s.Player().PendingDirection())
}

func TestSession_LivePointerDrivesPlayer(t *testing.T) {
	cfg := testConfig(config.ModeScripted)
	cfg.Combat.IntroSeconds = 0
	s, err := gameserver.NewSession(cfg, gameserver.SessionDeps{
		Roller: seededRoller(t),
		Logger: zaptest.NewLogger(t),
		// far in the future so only live input matters
		Input: []gameserver.PointerEvent{{At: 1000, Phase: gesture.PhaseCancel}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Step(step)
	s.HandlePointer(gesture.PhaseBegin, 0, 0)
	s.Step(0.5)
	s.HandlePointer(gesture.PhaseMove, 100, 0)
	assert.Equal(t, direction.Right, s.Player().PendingDirection())
}

func TestSession_SnapshotTracksMatch(t *testing.T) {
	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: seededRoller(t), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.False(t, snap.Started)
	assert.Equal(t, 1.0, snap.PlayerHealth)
	assert.Equal(t, 1.0, snap.AIHealth)

	require.NoError(t, s.Start())
	for i := 0; i < 120; i++ {
		s.Step(step)
	}
	snap = s.Snapshot()
	assert.True(t, snap.Started)
	assert.InDelta(t, 2.0, snap.At, 1e-6)
	assert.NotEmpty(t, snap.AIReason)
}

func TestSession_BindsScriptCallbacks(t *testing.T) {
	logger := zaptest.NewLogger(t)
	roller := seededRoller(t)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)

	s, err := gameserver.NewSession(testConfig(config.ModeAIvsAI), gameserver.SessionDeps{Roller: roller, Logger: logger, Scripts: mgr})
	require.NoError(t, err)
	require.NotNil(t, mgr.GetFighter)
	require.NotNil(t, mgr.GetMatch)

	info := mgr.GetFighter(s.Opponent().ID())
	require.NotNil(t, info)
	assert.Equal(t, "Opponent", info.Name)
	assert.Equal(t, "defender", info.Role)
	assert.Equal(t, "None", info.BlockDirection)
	assert.Equal(t, 1.0, info.Health01)
	assert.Nil(t, mgr.GetFighter("nobody"))

	m := mgr.GetMatch()
	require.NotNil(t, m)
	assert.Equal(t, s.ID(), m.ID)
	assert.Equal(t, combat.StateNotStarted, m.State)
	assert.True(t, m.PlayerTurn)
}

func TestSession_WritesTrace(t *testing.T) {
	var buf bytes.Buffer
	rec := trace.New(zapcore.AddSync(&buf), "session-1", trace.Options{})
	cfg := testConfig(config.ModeScripted)
	s, err := gameserver.NewSession(cfg, gameserver.SessionDeps{
		Roller:   seededRoller(t),
		Logger:   zaptest.NewLogger(t),
		Input:    sampleInput(t),
		Recorder: rec,
	})
	require.NoError(t, err)
	_, err = s.Run(step)
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	out := buf.String()
	assert.Contains(t, out, `"type":"session_start"`)
	assert.Contains(t, out, `"type":"slap_fired"`)
	assert.Contains(t, out, `"type":"session_end"`)
	assert.GreaterOrEqual(t, rec.Summary().Slaps, 1)
}
