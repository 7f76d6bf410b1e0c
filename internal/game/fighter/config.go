package fighter

import (
	"math"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Config holds attack and block tuning shared by human and AI fighters.
type Config struct {
	MaxHealth  float64 `mapstructure:"max_health"`
	MaxStamina float64 `mapstructure:"max_stamina"`

	MinWindupForSlap        float64 `mapstructure:"min_windup_for_slap"`
	SwipeSpeedResponse      float64 `mapstructure:"swipe_speed_response"`
	SpeedMinCmPerSec        float64 `mapstructure:"speed_min_cm_per_sec"`
	SpeedMaxCmPerSec        float64 `mapstructure:"speed_max_cm_per_sec"`
	SlapSpeedMax            float64 `mapstructure:"slap_speed_max"`
	MinPlayableSlapSpeed    float64 `mapstructure:"min_playable_slap_speed"`
	SideSpeedMultiplier     float64 `mapstructure:"side_speed_multiplier"`
	UpSpeedMultiplier       float64 `mapstructure:"up_speed_multiplier"`
	UppercutSpeedMultiplier float64 `mapstructure:"uppercut_speed_multiplier"`
	DiagonalSpeedMultiplier float64 `mapstructure:"diagonal_speed_multiplier"`

	// AISideUppercutMaxStart caps the clip start offset of AI side and uppercut slaps.
	AISideUppercutMaxStart float64 `mapstructure:"ai_side_uppercut_max_start"`
	AIUpSlapStart          float64 `mapstructure:"ai_up_slap_start"`

	SlapClipSeconds     float64 `mapstructure:"slap_clip_seconds"`
	ReturnStartProgress float64 `mapstructure:"return_start_progress"`
	SlapReturnSeconds   float64 `mapstructure:"slap_return_seconds"`
	WindupReturnSeconds float64 `mapstructure:"windup_return_seconds"`
	SlapWindowSeconds   float64 `mapstructure:"slap_window_seconds"`
	HandReleaseSeconds  float64 `mapstructure:"hand_release_seconds"`

	BlockReleaseSeconds      float64 `mapstructure:"block_release_seconds"`
	HardLockTargetHold       float64 `mapstructure:"hard_lock_target_hold"`
	HardLockRaiseSeconds     float64 `mapstructure:"hard_lock_raise_seconds"`
	ReacquireCooldownSeconds float64 `mapstructure:"reacquire_cooldown_seconds"`
}

// DefaultConfig returns the shipped fighter tuning.
func DefaultConfig() Config {
	return Config{
		MaxHealth:                DefaultMaxHealth,
		MaxStamina:               DefaultMaxStamina,
		MinWindupForSlap:         0.5,
		SwipeSpeedResponse:       1.76,
		SpeedMinCmPerSec:         2.4,
		SpeedMaxCmPerSec:         432,
		SlapSpeedMax:             7.35,
		MinPlayableSlapSpeed:     0.05,
		SideSpeedMultiplier:      1,
		UpSpeedMultiplier:        1,
		UppercutSpeedMultiplier:  1,
		DiagonalSpeedMultiplier:  1,
		AISideUppercutMaxStart:   0.35,
		AIUpSlapStart:            0,
		SlapClipSeconds:          1,
		ReturnStartProgress:      0.98,
		SlapReturnSeconds:        0.25,
		WindupReturnSeconds:      1,
		SlapWindowSeconds:        1.5,
		HandReleaseSeconds:       0.35,
		BlockReleaseSeconds:      0.16,
		HardLockTargetHold:       1,
		HardLockRaiseSeconds:     0.18,
		ReacquireCooldownSeconds: 0.7,
	}
}

// SlapPower converts a release speed in cm/s into normalised slap power.
//
// Postcondition: result is in [0.01, 1].
func (c Config) SlapPower(speedCm float64) float64 {
	adjusted := math.Max(0, speedCm) * math.Max(0.01, c.SwipeSpeedResponse)
	norm := clamp01((adjusted - c.SpeedMinCmPerSec) / math.Max(0.01, c.SpeedMaxCmPerSec-c.SpeedMinCmPerSec))
	return math.Min(1, math.Max(0.01, norm))
}

// PlaybackSpeed returns the slap clip speed multiplier for power and dir.
func (c Config) PlaybackSpeed(power float64, dir direction.Direction) float64 {
	return math.Max(c.MinPlayableSlapSpeed, c.SlapSpeedMax*power) * c.directionMultiplier(dir)
}

func (c Config) directionMultiplier(dir direction.Direction) float64 {
	switch {
	case dir.IsSide():
		return math.Max(0.01, c.SideSpeedMultiplier)
	case dir == direction.Up:
		return math.Max(0.01, c.UpSpeedMultiplier)
	case dir == direction.Down:
		return math.Max(0.01, c.UppercutSpeedMultiplier)
	default:
		return math.Max(0.01, c.DiagonalSpeedMultiplier)
	}
}

// SlapStart returns the normalised clip offset a slap starts from given the
// hand progress at release. A full windup plays the whole swing.
func (c Config) SlapStart(dir direction.Direction, hand float64, ai bool) float64 {
	start := clamp01(1 - clamp01(hand))
	if !ai {
		return start
	}
	switch {
	case dir == direction.Up:
		return clamp01(c.AIUpSlapStart)
	case dir.IsSide() || dir == direction.Down:
		return math.Min(start, clamp01(c.AISideUppercutMaxStart))
	default:
		return start
	}
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
