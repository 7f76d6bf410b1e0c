package gesture

import (
	"math"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Phase is the lifecycle marker of a pointer sample.
type Phase int

const (
	PhaseBegin Phase = iota
	PhaseMove
	PhaseEnd
	PhaseCancel
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhaseMove:
		return "move"
	case PhaseEnd:
		return "end"
	case PhaseCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Sample is the per-frame measurement produced by Tracker.Sample.
type Sample struct {
	FrameDX, FrameDY float64
	TotalDX, TotalDY float64
	DT               float64
	SpeedCm          float64
}

// FrameLen returns the length of the frame delta.
func (s Sample) FrameLen() float64 { return math.Hypot(s.FrameDX, s.FrameDY) }

// TotalLen returns the length of the displacement from the gesture start.
func (s Sample) TotalLen() float64 { return math.Hypot(s.TotalDX, s.TotalDY) }

// Tracker accumulates one pointer gesture at a time.
//
// Invariant: reverse measures are only accumulated while an axis is locked.
type Tracker struct {
	cfg Config
	m   Metrics

	active         bool
	startX, startY float64
	lastX, lastY   float64
	lastT          float64

	lastSpeedCm float64
	maxSpeedCm  float64

	axis           direction.Direction
	maxProjectedPx float64
	reverseAccumPx float64
	reverseCurCm   float64
	reverseSmooth  float64
	reversePeakCm  float64
	reverseHeld    float64
}

// NewTracker returns an idle Tracker using cfg.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, m: cfg.Metrics()}
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Metrics returns the derived pixel constants.
func (t *Tracker) Metrics() Metrics { return t.m }

// Active reports whether a gesture is in progress.
func (t *Tracker) Active() bool { return t.active }

// Begin starts a new gesture at (x, y) and time now, discarding the previous one.
// A locked axis survives Begin so a carried windup can still be reversed.
func (t *Tracker) Begin(x, y, now float64) {
	t.active = true
	t.startX, t.startY = x, y
	t.lastX, t.lastY = x, y
	t.lastT = now
	t.lastSpeedCm = 0
	t.maxSpeedCm = 0
	t.maxProjectedPx = 0
	t.resetReverse()
}

// End terminates the gesture.
func (t *Tracker) End() {
	t.active = false
}

// Rebase moves the gesture origin to (x, y) without touching speed tracking.
func (t *Tracker) Rebase(x, y float64) {
	t.startX, t.startY = x, y
}

// Lock fixes the axis used for reverse tracking and resets its measures.
func (t *Tracker) Lock(d direction.Direction) {
	t.axis = d
	t.maxProjectedPx = 0
	t.resetReverse()
}

// Unlock clears the reverse axis.
func (t *Tracker) Unlock() {
	t.axis = direction.None
	t.maxProjectedPx = 0
	t.resetReverse()
}

// Axis returns the locked axis, or None.
func (t *Tracker) Axis() direction.Direction { return t.axis }

func (t *Tracker) resetReverse() {
	t.reverseAccumPx = 0
	t.reverseCurCm = 0
	t.reverseSmooth = 0
	t.reversePeakCm = 0
	t.reverseHeld = 0
}

// Sample records the pointer at (x, y) and time now.
//
// Postcondition: speed and reverse measures reflect the new frame; the
// returned Sample carries frame and total displacement.
func (t *Tracker) Sample(x, y, now float64) Sample {
	dt := math.Max(minSampleDT, now-t.lastT)
	fdx, fdy := x-t.lastX, y-t.lastY
	speedPx := math.Hypot(fdx, fdy) / dt
	t.lastSpeedCm = speedPx / t.m.PxPerCm
	if t.lastSpeedCm > t.maxSpeedCm {
		t.maxSpeedCm = t.lastSpeedCm
	}
	t.trackReverse(fdx, fdy, dt)
	s := Sample{
		FrameDX: fdx, FrameDY: fdy,
		TotalDX: x - t.startX, TotalDY: y - t.startY,
		DT:      dt,
		SpeedCm: t.lastSpeedCm,
	}
	t.lastX, t.lastY = x, y
	t.lastT = now
	return s
}

func (t *Tracker) trackReverse(fdx, fdy, dt float64) {
	if t.axis == direction.None {
		t.reverseCurCm = 0
		t.reverseSmooth = moveTowards(t.reverseSmooth, 0, 20*dt)
		t.reverseAccumPx = 0
		return
	}
	reversePx := math.Max(0, -t.axis.Project(fdx, fdy))
	t.reverseAccumPx += reversePx
	cm := reversePx / dt / t.m.PxPerCm
	t.reverseCurCm = cm
	rate := clamp01(14 * dt)
	t.reverseSmooth += (cm - t.reverseSmooth) * rate
	if cm > t.reversePeakCm {
		t.reversePeakCm = cm
	}
}

// Classify returns the swipe direction for a sample, applying the deadzone.
// With useFrame set, a frame delta of at least half the deadzone takes
// precedence over the total displacement.
//
// Postcondition: returns None when the chosen delta is inside the deadzone.
func (t *Tracker) Classify(s Sample, useFrame bool) direction.Direction {
	dx, dy := s.TotalDX, s.TotalDY
	if useFrame && s.FrameLen() >= t.m.DeadzonePx*0.5 {
		dx, dy = s.FrameDX, s.FrameDY
	}
	if math.Hypot(dx, dy) < t.m.DeadzonePx {
		return direction.None
	}
	return direction.Classify(dx, dy)
}

// DistanceProgress returns the clamped projection of the total displacement
// along d, normalised by the attack or block required distance.
func (t *Tracker) DistanceProgress(s Sample, d direction.Direction, block bool) float64 {
	if d == direction.None {
		return 0
	}
	den := t.m.RequiredPx
	if block {
		den = t.m.BlockRequiredPx
	}
	return clamp01(d.Project(s.TotalDX, s.TotalDY) / math.Max(1, den))
}

// WindupProgress returns the raw windup for a sample along d: distance
// progress plus weighted speed progress, clamped. It also raises the peak
// projection used by reverse detection.
func (t *Tracker) WindupProgress(s Sample, d direction.Direction) float64 {
	if d == direction.None {
		return 0
	}
	if p := d.Project(s.TotalDX, s.TotalDY); p > t.maxProjectedPx {
		t.maxProjectedPx = p
	}
	dist := t.DistanceProgress(s, d, false)
	speed := t.cfg.SpeedProgress(s.SpeedCm) * clamp01(t.cfg.SpeedWeightInWindup)
	return clamp01(dist + speed)
}

// ReverseReached reports whether motion against the locked axis has crossed
// the reverse threshold, either as distance back from the peak projection
// while moving backwards this frame, or as accumulated reverse distance.
func (t *Tracker) ReverseReached(s Sample) bool {
	if t.axis == direction.None {
		return false
	}
	current := t.axis.Project(s.TotalDX, s.TotalDY)
	movingBack := t.axis.Project(s.FrameDX, s.FrameDY) < 0
	byProjection := movingBack && t.maxProjectedPx-current >= t.m.ReverseThreshold
	byAccum := t.reverseAccumPx >= t.m.ReverseThreshold
	return byProjection || byAccum
}

// ReverseIntentional reports whether the reverse speed clears the minimum.
func (t *Tracker) ReverseIntentional() bool {
	return math.Max(t.reverseCurCm, t.reverseSmooth) >= math.Max(0, t.cfg.MinReverseSpeedCmPerSec)
}

// ReverseIntent evaluates the full slap trigger for a sample: the reverse
// threshold, and unless AlwaysTriggerOnReverse is set, the speed gate held
// for MinReverseHoldSeconds.
//
// Postcondition: the hold timer resets whenever intent is absent.
func (t *Tracker) ReverseIntent(s Sample) bool {
	intent := t.ReverseReached(s)
	if !t.cfg.AlwaysTriggerOnReverse {
		intent = intent && t.ReverseIntentional()
	}
	if !intent {
		t.reverseHeld = 0
		return false
	}
	t.reverseHeld += s.DT
	required := 0.0
	if !t.cfg.AlwaysTriggerOnReverse {
		required = math.Max(0, t.cfg.MinReverseHoldSeconds)
	}
	return t.reverseHeld >= required
}

// ReleaseSpeedCm returns the speed used to power a slap: the smoothed reverse
// speed, else the instantaneous reverse speed, else the last swipe speed.
func (t *Tracker) ReleaseSpeedCm() float64 {
	speed := math.Max(0, t.reverseCurCm)
	if t.reverseSmooth > 0.01 {
		speed = t.reverseSmooth
	}
	if speed <= 0.01 {
		speed = math.Max(0, t.lastSpeedCm)
	}
	return speed
}

// LastSpeedCm returns the most recent swipe speed in cm/s.
func (t *Tracker) LastSpeedCm() float64 { return t.lastSpeedCm }

// MaxSpeedCm returns the peak swipe speed of the current gesture.
func (t *Tracker) MaxSpeedCm() float64 { return t.maxSpeedCm }

// ReversePeakCm returns the peak reverse speed since the axis was locked.
func (t *Tracker) ReversePeakCm() float64 { return t.reversePeakCm }

func moveTowards(v, target, maxDelta float64) float64 {
	if math.Abs(target-v) <= maxDelta {
		return target
	}
	if target > v {
		return v + maxDelta
	}
	return v - maxDelta
}
