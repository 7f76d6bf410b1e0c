package pose

import (
	"math"
	"sync"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Timeline is a headless Player that advances clip time by explicit steps.
//
// Invariant: Progress01 is always in [0, 1].
type Timeline struct {
	mu          sync.Mutex
	clipSeconds float64

	state    State
	time01   float64
	speed    float64
	blend    *gween.Tween
	weight   float64
	previous State
}

// NewTimeline returns a Timeline whose clips last clipSeconds at speed 1.
//
// Precondition: clipSeconds > 0; non-positive values fall back to 1.
func NewTimeline(clipSeconds float64) *Timeline {
	if clipSeconds <= 0 {
		clipSeconds = 1
	}
	return &Timeline{clipSeconds: clipSeconds, weight: 1}
}

func (t *Timeline) set(s State, start, speed float64) {
	t.previous = t.state
	t.state = s
	t.time01 = clamp01(start)
	t.speed = speed
}

// PlayWindup implements Player.
func (t *Timeline) PlayWindup(dir direction.Direction, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(State{Category: CategoryWindup, Direction: dir}, progress, 0)
}

// PlaySlap implements Player.
func (t *Timeline) PlaySlap(dir direction.Direction, start, speed float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(State{Category: CategorySlap, Direction: dir}, start, math.Max(0, speed))
}

// PlayBlock implements Player.
func (t *Timeline) PlayBlock(dir direction.Direction, hold float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(State{Category: CategoryBlock, Direction: dir}, hold, 0)
}

// PlayIdle implements Player.
func (t *Timeline) PlayIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(State{Category: CategoryIdle}, 0, 0)
}

// Crossfade implements Player. The blend weight ramps from 0 to 1 over seconds.
func (t *Timeline) Crossfade(state State, seconds, start float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	speed := 0.0
	if state.Category == CategorySlap {
		speed = 1
	}
	t.set(state, start, speed)
	if seconds <= 0 {
		t.blend = nil
		t.weight = 1
		return
	}
	t.blend = gween.New(0, 1, float32(seconds), ease.Linear)
	t.weight = 0
}

// Advance steps playback by dt seconds.
func (t *Timeline) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.blend != nil {
		w, done := t.blend.Update(float32(dt))
		t.weight = float64(w)
		if done {
			t.blend = nil
			t.weight = 1
		}
	}
	if t.speed > 0 {
		t.time01 = clamp01(t.time01 + dt*t.speed/t.clipSeconds)
	}
}

// Progress01 implements Player.
func (t *Timeline) Progress01() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.time01
}

// IsCategory implements Player.
func (t *Timeline) IsCategory(c Category) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Category == c
}

// Current returns the active pose and the pose it replaced.
func (t *Timeline) Current() (current, previous State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.previous
}

// BlendWeight returns the weight of the current pose in an active crossfade.
func (t *Timeline) BlendWeight() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.weight
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
