package ai_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/slapfight/internal/game/ai"
)

func writeStyle(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestDefaultStyles_Valid(t *testing.T) {
	for _, s := range ai.DefaultStyles() {
		assert.NoError(t, s.Validate(), s.ID)
	}
}

func TestStyle_Apply(t *testing.T) {
	p := ai.DefaultPolicy()
	styles := ai.DefaultStyles()

	assert.Equal(t, p, styles[1].Apply(p))

	safe := styles[0].Apply(p)
	assert.InDelta(t, 0.95, safe.BlockChance, 1e-9)
	assert.InDelta(t, 0.7, safe.FastBlockChance, 1e-9)
	assert.InDelta(t, 0.43, safe.ReactFromWindup, 1e-9)

	p.BlockChance = 0.1
	aggro := styles[2].Apply(p)
	assert.Zero(t, aggro.BlockChance)
}

func TestStyle_ValidateRejects(t *testing.T) {
	assert.Error(t, (&ai.Style{}).Validate())
	assert.Error(t, (&ai.Style{ID: "x", FalseWindupChance: 1.5}).Validate())
	assert.Error(t, (&ai.Style{ID: "x", ReactDelta: -2}).Validate())
}

func TestLoadStyles(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "turtle.yaml", `style:
  id: turtle
  description: never stops blocking
  block_chance_delta: 0.2
  false_windup_chance: 0
  script: turtle
`)
	writeStyle(t, dir, "notes.txt", "ignored")
	styles, err := ai.LoadStyles(dir)
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.Equal(t, "turtle", styles[0].ID)
	assert.Equal(t, "turtle", styles[0].Script)
	assert.InDelta(t, 0.2, styles[0].BlockChanceDelta, 1e-9)
}

func TestLoadStyles_Errors(t *testing.T) {
	_, err := ai.LoadStyles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeStyle(t, dir, "bad.yaml", "id: orphan\n")
	_, err = ai.LoadStyles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing top-level 'style' key")

	dir = t.TempDir()
	writeStyle(t, dir, "range.yaml", "style:\n  id: wild\n  false_windup_chance: 3\n")
	_, err = ai.LoadStyles(dir)
	assert.Error(t, err)
}

func TestStyleRegistry(t *testing.T) {
	r, err := ai.NewStyleRegistryFromDir("")
	require.NoError(t, err)
	assert.Equal(t, []string{ai.StyleAggro, ai.StyleBalanced, ai.StyleSafe}, r.IDs())

	s, ok := r.Get(ai.StyleSafe)
	require.True(t, ok)
	assert.Equal(t, ai.StyleSafe, s.ID)
	_, ok = r.Get("nope")
	assert.False(t, ok)

	assert.Error(t, r.Register(&ai.Style{ID: ai.StyleSafe}))

	_, err = ai.NewStyleRegistryFromDir(t.TempDir())
	assert.Error(t, err)
}
