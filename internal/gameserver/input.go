package gameserver

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/slapfight/internal/game/gesture"
)

// PointerEvent is one scripted pointer sample.
type PointerEvent struct {
	// At is the match time in seconds at which the sample is delivered.
	At    float64       `yaml:"at"`
	X     float64       `yaml:"x"`
	Y     float64       `yaml:"y"`
	Phase gesture.Phase `yaml:"-"`
	// PhaseName is "begin", "move", "end", or "cancel".
	PhaseName string `yaml:"phase"`
}

type yamlInputFile struct {
	Input []PointerEvent `yaml:"input"`
}

// ParsePhase returns the gesture phase named s.
func ParsePhase(s string) (gesture.Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "begin":
		return gesture.PhaseBegin, nil
	case "move":
		return gesture.PhaseMove, nil
	case "end":
		return gesture.PhaseEnd, nil
	case "cancel":
		return gesture.PhaseCancel, nil
	}
	return gesture.PhaseCancel, fmt.Errorf("unknown pointer phase %q", s)
}

// ParseInput decodes a scripted input document.
//
// Postcondition: events are sorted by At, stable for equal times.
func ParseInput(data []byte) ([]PointerEvent, error) {
	var f yamlInputFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("gameserver.ParseInput: %w", err)
	}
	for i := range f.Input {
		ev := &f.Input[i]
		p, err := ParsePhase(ev.PhaseName)
		if err != nil {
			return nil, fmt.Errorf("gameserver.ParseInput: event %d: %w", i, err)
		}
		if ev.At < 0 {
			return nil, fmt.Errorf("gameserver.ParseInput: event %d: at must be >= 0, got %v", i, ev.At)
		}
		ev.Phase = p
	}
	sort.SliceStable(f.Input, func(i, j int) bool { return f.Input[i].At < f.Input[j].At })
	return f.Input, nil
}

// LoadInput reads a scripted input file.
func LoadInput(path string) ([]PointerEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gameserver.LoadInput: reading %q: %w", path, err)
	}
	return ParseInput(data)
}

// PointerSink receives pointer samples. *fighter.Fighter satisfies it.
type PointerSink interface {
	HandlePointer(phase gesture.Phase, x, y float64)
}

// InputFeed replays scripted events in time order. Times are relative to
// the feed's origin, set when the match starts.
type InputFeed struct {
	events []PointerEvent
	next   int
	origin float64
}

// NewInputFeed returns a feed over events.
//
// Precondition: events are sorted by At.
func NewInputFeed(events []PointerEvent) *InputFeed {
	return &InputFeed{events: events}
}

// Rewind restarts the feed with origin as time zero.
func (f *InputFeed) Rewind(origin float64) {
	f.next = 0
	f.origin = origin
}

// Dispatch delivers every event due at or before now to sink and returns
// the number delivered.
func (f *InputFeed) Dispatch(now float64, sink PointerSink) int {
	n := 0
	for f.next < len(f.events) && f.origin+f.events[f.next].At <= now {
		ev := f.events[f.next]
		sink.HandlePointer(ev.Phase, ev.X, ev.Y)
		f.next++
		n++
	}
	return n
}

// Done reports whether every event has been delivered.
func (f *InputFeed) Done() bool { return f.next >= len(f.events) }

// Remaining returns the undelivered event count.
func (f *InputFeed) Remaining() int { return len(f.events) - f.next }
