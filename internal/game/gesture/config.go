// Package gesture converts a stream of pointer samples into swipe direction,
// distance progress, speed, and reverse-swipe signals.
//
// Coordinates are screen pixels with y growing upward. The tracker knows
// nothing about fighters or roles; callers lock an axis and read signals.
package gesture

import "math"

const cmPerInch = 2.54

// minSampleDT is the floor applied to the time between samples.
const minSampleDT = 1.0 / 120.0

// Config holds the physical tuning of gesture interpretation.
type Config struct {
	// DPI is the device pixel density; values <= 0 fall back to FallbackDPI.
	DPI         float64 `mapstructure:"dpi"`
	FallbackDPI float64 `mapstructure:"fallback_dpi"`
	// DeadzonePx is the minimum displacement before a direction is chosen.
	DeadzonePx float64 `mapstructure:"deadzone_px"`
	// SwipeDistanceCm is the forward swipe length that reaches full windup.
	SwipeDistanceCm float64 `mapstructure:"swipe_distance_cm"`
	// BlockSwipeDistanceCm is the swipe length that reaches full block hold.
	BlockSwipeDistanceCm float64 `mapstructure:"block_swipe_distance_cm"`
	// ReverseDistanceFactor divides the required distance to get the reverse threshold.
	ReverseDistanceFactor float64 `mapstructure:"reverse_distance_factor"`
	MinReverseDistanceCm  float64 `mapstructure:"min_reverse_distance_cm"`
	// AlwaysTriggerOnReverse skips the reverse speed and hold gate.
	AlwaysTriggerOnReverse  bool    `mapstructure:"always_trigger_on_reverse"`
	MinReverseSpeedCmPerSec float64 `mapstructure:"min_reverse_speed_cm_per_sec"`
	MinReverseHoldSeconds   float64 `mapstructure:"min_reverse_hold_seconds"`
	SpeedMinCmPerSec        float64 `mapstructure:"speed_min_cm_per_sec"`
	SpeedMaxCmPerSec        float64 `mapstructure:"speed_max_cm_per_sec"`
	// SpeedWeightInWindup scales the speed contribution to windup progress.
	SpeedWeightInWindup float64 `mapstructure:"speed_weight_in_windup"`
}

// DefaultConfig returns the shipped gesture tuning.
func DefaultConfig() Config {
	return Config{
		FallbackDPI:             160,
		DeadzonePx:              20,
		SwipeDistanceCm:         3.5,
		BlockSwipeDistanceCm:    2,
		ReverseDistanceFactor:   3,
		MinReverseDistanceCm:    0.2,
		AlwaysTriggerOnReverse:  true,
		MinReverseSpeedCmPerSec: 18,
		MinReverseHoldSeconds:   0.06,
		SpeedMinCmPerSec:        2.4,
		SpeedMaxCmPerSec:        432,
		SpeedWeightInWindup:     0.2,
	}
}

// Metrics are the pixel constants derived from a Config and a pixel density.
type Metrics struct {
	PxPerCm          float64
	RequiredPx       float64
	BlockRequiredPx  float64
	DeadzonePx       float64
	ReverseThreshold float64
}

// Metrics derives the pixel constants for c.
//
// Postcondition: every returned distance is >= 1.
func (c Config) Metrics() Metrics {
	dpi := c.DPI
	if dpi <= 0 {
		dpi = c.FallbackDPI
	}
	if dpi <= 0 {
		dpi = 160
	}
	pxPerCm := dpi / cmPerInch
	required := math.Max(1, c.SwipeDistanceCm*pxPerCm)
	block := math.Max(1, c.BlockSwipeDistanceCm*pxPerCm)
	reverse := required / math.Max(1, c.ReverseDistanceFactor)
	minReverse := math.Max(1, math.Max(0.01, c.MinReverseDistanceCm)*pxPerCm)
	return Metrics{
		PxPerCm:          pxPerCm,
		RequiredPx:       required,
		BlockRequiredPx:  block,
		DeadzonePx:       math.Max(math.Max(c.DeadzonePx, 2), dpi*0.02),
		ReverseThreshold: math.Max(reverse, minReverse),
	}
}

// SpeedProgress normalises a swipe speed in cm/s into [0, 1].
func (c Config) SpeedProgress(speedCm float64) float64 {
	return clamp01((speedCm - c.SpeedMinCmPerSec) / math.Max(0.01, c.SpeedMaxCmPerSec-c.SpeedMinCmPerSec))
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
