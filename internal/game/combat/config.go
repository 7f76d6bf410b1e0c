package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Resolve progress is always clamped to this range.
const (
	minResolveProgress = 0.5
	maxResolveProgress = 0.98
)

// Config holds arbitration tuning.
type Config struct {
	// DamageScale converts windup01+power01 into a damage percent.
	DamageScale float64 `mapstructure:"damage_scale"`
	// ExhaustedDamageScale multiplies damage from an attacker with no stamina.
	ExhaustedDamageScale float64 `mapstructure:"exhausted_damage_scale"`
	// BoomDamagePercent is the damage percent labelled "BOOM".
	BoomDamagePercent float64 `mapstructure:"boom_damage_percent"`

	PerfectMinHold        float64 `mapstructure:"perfect_min_hold"`
	PerfectMaxHoldSeconds float64 `mapstructure:"perfect_max_hold_seconds"`

	PerDirectionResolve     bool    `mapstructure:"per_direction_resolve"`
	SideResolveProgress     float64 `mapstructure:"side_resolve_progress"`
	DiagonalResolveProgress float64 `mapstructure:"diagonal_resolve_progress"`
	UpResolveProgress       float64 `mapstructure:"up_resolve_progress"`
	DownResolveProgress     float64 `mapstructure:"down_resolve_progress"`
	BlockedResolveProgress  float64 `mapstructure:"blocked_resolve_progress"`
	LegacyResolveProgress   float64 `mapstructure:"legacy_resolve_progress"`

	// StaminaDrainSeconds is the time a continuous drain takes to empty a full pool.
	StaminaDrainSeconds float64 `mapstructure:"stamina_drain_seconds"`
	// DrainWindupThreshold is the attacker windup above which stamina drains.
	DrainWindupThreshold float64 `mapstructure:"drain_windup_threshold"`
	// IntroSeconds delays the first attack after the match starts.
	IntroSeconds float64 `mapstructure:"intro_seconds"`
}

// DefaultConfig returns the shipped arbitration tuning.
func DefaultConfig() Config {
	return Config{
		DamageScale:             10,
		ExhaustedDamageScale:    0.5,
		BoomDamagePercent:       15,
		PerfectMinHold:          0.98,
		PerfectMaxHoldSeconds:   1.0,
		PerDirectionResolve:     true,
		SideResolveProgress:     0.80,
		DiagonalResolveProgress: 0.80,
		UpResolveProgress:       0.80,
		DownResolveProgress:     0.80,
		BlockedResolveProgress:  0.60,
		LegacyResolveProgress:   0.80,
		StaminaDrainSeconds:     10,
		DrainWindupThreshold:    0.01,
		IntroSeconds:            1.2,
	}
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []string
	if c.DamageScale < 0 {
		errs = append(errs, fmt.Sprintf("damage_scale must be >= 0, got %v", c.DamageScale))
	}
	if c.ExhaustedDamageScale < 0 || c.ExhaustedDamageScale > 1 {
		errs = append(errs, fmt.Sprintf("exhausted_damage_scale must be within [0,1], got %v", c.ExhaustedDamageScale))
	}
	if c.PerfectMinHold < 0 || c.PerfectMinHold > 1 {
		errs = append(errs, fmt.Sprintf("perfect_min_hold must be within [0,1], got %v", c.PerfectMinHold))
	}
	if c.PerfectMaxHoldSeconds < 0 {
		errs = append(errs, fmt.Sprintf("perfect_max_hold_seconds must be >= 0, got %v", c.PerfectMaxHoldSeconds))
	}
	if c.StaminaDrainSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("stamina_drain_seconds must be > 0, got %v", c.StaminaDrainSeconds))
	}
	if c.IntroSeconds < 0 {
		errs = append(errs, fmt.Sprintf("intro_seconds must be >= 0, got %v", c.IntroSeconds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("combat.Config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolveProgress returns the attacker slap progress at which a hit in dir
// resolves. Blocked hits resolve earlier than full-extension hits.
//
// Postcondition: result lies in [0.5, 0.98].
func (c Config) ResolveProgress(dir direction.Direction, blocked bool) float64 {
	v := c.LegacyResolveProgress
	switch {
	case blocked:
		v = c.BlockedResolveProgress
	case !c.PerDirectionResolve:
	case dir.IsSide():
		v = c.SideResolveProgress
	case dir.IsDiagonal():
		v = c.DiagonalResolveProgress
	case dir == direction.Up:
		v = c.UpResolveProgress
	case dir == direction.Down:
		v = c.DownResolveProgress
	}
	if v < minResolveProgress {
		return minResolveProgress
	}
	if v > maxResolveProgress {
		return maxResolveProgress
	}
	return v
}
