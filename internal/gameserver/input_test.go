package gameserver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/gameserver"
)

type pointerCall struct {
	phase gesture.Phase
	x, y  float64
}

type pointerLog struct{ calls []pointerCall }

func (p *pointerLog) HandlePointer(phase gesture.Phase, x, y float64) {
	p.calls = append(p.calls, pointerCall{phase, x, y})
}

func TestParsePhase(t *testing.T) {
	for name, want := range map[string]gesture.Phase{
		"begin":  gesture.PhaseBegin,
		"Move":   gesture.PhaseMove,
		" END ":  gesture.PhaseEnd,
		"cancel": gesture.PhaseCancel,
	} {
		got, err := gameserver.ParsePhase(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := gameserver.ParsePhase("hover")
	assert.Error(t, err)
}

func TestParseInput_SortsStably(t *testing.T) {
	doc := []byte(`
input:
  - {at: 2.0, phase: end, x: 3, y: 0}
  - {at: 1.0, phase: begin, x: 0, y: 0}
  - {at: 1.0, phase: move, x: 1, y: 0}
`)
	events, err := gameserver.ParseInput(doc)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, gesture.PhaseBegin, events[0].Phase)
	assert.Equal(t, gesture.PhaseMove, events[1].Phase)
	assert.Equal(t, gesture.PhaseEnd, events[2].Phase)
	assert.Equal(t, 3.0, events[2].X)
}

func TestParseInput_Errors(t *testing.T) {
	_, err := gameserver.ParseInput([]byte("input: ["))
	assert.Error(t, err)
	_, err = gameserver.ParseInput([]byte("input:\n  - {at: 1, phase: hover}\n"))
	assert.ErrorContains(t, err, "event 0")
	_, err = gameserver.ParseInput([]byte("input:\n  - {at: -1, phase: begin}\n"))
	assert.ErrorContains(t, err, "at must be >= 0")
}

func TestLoadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input:\n  - {at: 0.5, phase: begin, x: 1, y: 2}\n"), 0o644))
	events, err := gameserver.LoadInput(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2.0, events[0].Y)

	_, err = gameserver.LoadInput(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInput_SampleFile(t *testing.T) {
	events, err := gameserver.LoadInput(filepath.Join("..", "..", "content", "input", "sample.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestInputFeed_DispatchRelativeToOrigin(t *testing.T) {
	feed := gameserver.NewInputFeed([]gameserver.PointerEvent{
		{At: 0.5, Phase: gesture.PhaseBegin},
		{At: 1.0, Phase: gesture.PhaseMove, X: 10},
		{At: 1.0, Phase: gesture.PhaseEnd, X: 20},
	})
	feed.Rewind(10)
	sink := &pointerLog{}

	assert.Zero(t, feed.Dispatch(10.4, sink))
	assert.Equal(t, 1, feed.Dispatch(10.5, sink))
	assert.Equal(t, 2, feed.Remaining())
	assert.Equal(t, 2, feed.Dispatch(12, sink))
	assert.True(t, feed.Done())
	require.Len(t, sink.calls, 3)
	assert.Equal(t, 20.0, sink.calls[2].x)

	feed.Rewind(0)
	assert.False(t, feed.Done())
	assert.Equal(t, 3, feed.Remaining())
}

func TestInputFeed_DeliversEachEventOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		events := make([]gameserver.PointerEvent, n)
		at := 0.0
		for i := range events {
			at += rapid.Float64Range(0, 1).Draw(t, "gap")
			events[i] = gameserver.PointerEvent{At: at, Phase: gesture.PhaseMove, X: float64(i)}
		}
		feed := gameserver.NewInputFeed(events)
		sink := &pointerLog{}
		now := 0.0
		for !feed.Done() {
			now += rapid.Float64Range(0.01, 2).Draw(t, "dt")
			feed.Dispatch(now, sink)
		}
		if len(sink.calls) != n {
			t.Fatalf("delivered %d of %d events", len(sink.calls), n)
		}
		for i, c := range sink.calls {
			if c.x != float64(i) {
				t.Fatalf("event %d delivered out of order", i)
			}
		}
	})
}
