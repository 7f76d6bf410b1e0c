package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/scripting"
)

var _ ai.ScriptCaller = (*scripting.Manager)(nil)

// repoRoot walks up from the test's working directory to find the module root.
func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatalf("could not find repo root from %s", wd)
		}
		root = parent
	}
}

func contentManager(t *testing.T, src dice.Source) *scripting.Manager {
	t.Helper()
	mgr := scripting.NewManager(dice.NewLoggedRoller(src, zap.NewNop()), zap.NewNop())
	t.Cleanup(mgr.Close)
	root := repoRoot(t)
	require.NoError(t, mgr.LoadScope(ai.DefaultScriptScope, filepath.Join(root, "content", "scripts", "ai"), 0))
	require.NoError(t, mgr.LoadGlobal(filepath.Join(root, "content", "scripts", "global"), 0))
	return mgr
}

func chooseArgs(dir direction.Direction, reason string, difficulty float64, blocked direction.Direction, streak int) []lua.LValue {
	return []lua.LValue{
		lua.LString(dir.String()),
		lua.LString(reason),
		lua.LNumber(difficulty),
		lua.LString(blocked.String()),
		lua.LNumber(streak),
	}
}

func TestContentChoose_SwapsGuardedDirection(t *testing.T) {
	mgr := contentManager(t, dice.NewCryptoSource())
	ret, err := mgr.CallHook(ai.DefaultScriptScope, ai.HookChooseAttackDirection,
		chooseArgs(direction.Left, ai.ReasonExplore, 0.5, direction.Left, 3)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LString("Right"), ret)
}

func TestContentChoose_KeepsGreedyCounter(t *testing.T) {
	mgr := contentManager(t, dice.NewCryptoSource())
	ret, err := mgr.CallHook(ai.DefaultScriptScope, ai.HookChooseAttackDirection,
		chooseArgs(direction.Up, ai.ReasonGreedyCounter, 1, direction.Up, 5)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestContentChoose_HardExploreNudges(t *testing.T) {
	mgr := contentManager(t, zeroSource{})
	ret, err := mgr.CallHook(ai.DefaultScriptScope, ai.HookChooseAttackDirection,
		chooseArgs(direction.Up, ai.ReasonExplore, 0.9, direction.None, 0)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LString("UpRight"), ret)
}

func TestContentChoose_GlobalFallbackKeepsChoice(t *testing.T) {
	mgr := contentManager(t, dice.NewCryptoSource())
	ret, err := mgr.CallHook("aggro", ai.HookChooseAttackDirection,
		chooseArgs(direction.Left, ai.ReasonExplore, 0.5, direction.Left, 3)...)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_ContentChooseReturnsValidDirection(t *testing.T) {
	mgr := contentManager(t, dice.NewCryptoSource())
	reasons := []string{ai.ReasonExplore, ai.ReasonGreedyCounter, ai.ReasonBlockHabit, ai.ReasonMirror}
	blocks := append([]direction.Direction{direction.None}, direction.All...)
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.SampledFrom(direction.All).Draw(rt, "dir")
		reason := rapid.SampledFrom(reasons).Draw(rt, "reason")
		diff := rapid.Float64Range(0, 1).Draw(rt, "difficulty")
		blocked := rapid.SampledFrom(blocks).Draw(rt, "blocked")
		streak := rapid.IntRange(0, 6).Draw(rt, "streak")
		ret, err := mgr.CallHook(ai.DefaultScriptScope, ai.HookChooseAttackDirection,
			chooseArgs(d, reason, diff, blocked, streak)...)
		require.NoError(rt, err)
		if ret == lua.LNil {
			return
		}
		name, ok := ret.(lua.LString)
		if !ok {
			rt.Fatalf("non-string result %v", ret)
		}
		got, err := direction.Parse(string(name))
		if err != nil || got == direction.None {
			rt.Fatalf("invalid direction %q", name)
		}
	})
}

func TestContentDescribeFighter(t *testing.T) {
	mgr := contentManager(t, dice.NewCryptoSource())
	mgr.GetFighter = func(id string) *scripting.FighterInfo {
		if id != "opp" {
			return nil
		}
		return &scripting.FighterInfo{ID: "opp", Name: "Brute", Role: "opponent", Health01: 1, Stamina01: 0.5, Blocking: true, BlockDirection: "Up"}
	}
	ret, err := mgr.CallHook(ai.DefaultScriptScope, "describe_fighter", lua.LString("opp"))
	require.NoError(t, err)
	assert.Equal(t, lua.LString("opponent Brute hp=1.00 st=0.50 guarding Up"), ret)

	ret, err = mgr.CallHook(ai.DefaultScriptScope, "describe_fighter", lua.LString("nobody"))
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}
