package ai

import (
	"fmt"
	"strings"
)

// Span is a closed [Min, Max] interval sampled uniformly.
type Span struct {
	Min float64 `yaml:"min" mapstructure:"min"`
	Max float64 `yaml:"max" mapstructure:"max"`
}

// Policy holds every threshold and duration the decision engine uses.
// Durations are seconds; windup and hold values are normalised [0,1].
type Policy struct {
	BlockChance            float64 `yaml:"block_chance" mapstructure:"block_chance"`
	FastBlockSpeed         float64 `yaml:"fast_block_speed" mapstructure:"fast_block_speed"`
	SlowBlockSpeed         float64 `yaml:"slow_block_speed" mapstructure:"slow_block_speed"`
	FastBlockChance        float64 `yaml:"fast_block_chance" mapstructure:"fast_block_chance"`
	ReactFromWindup        float64 `yaml:"react_from_windup" mapstructure:"react_from_windup"`
	HoldAfterSlapStart     float64 `yaml:"hold_after_slap_start" mapstructure:"hold_after_slap_start"`
	ReleaseGrace           float64 `yaml:"release_grace" mapstructure:"release_grace"`
	MinCommit              float64 `yaml:"min_commit" mapstructure:"min_commit"`
	ReleaseWindupThreshold float64 `yaml:"release_windup_threshold" mapstructure:"release_windup_threshold"`
	ThreatMemory           float64 `yaml:"threat_memory" mapstructure:"threat_memory"`
	NoDrop                 float64 `yaml:"no_drop" mapstructure:"no_drop"`
	HardLatch              float64 `yaml:"hard_latch" mapstructure:"hard_latch"`
	CalmReleaseDelay       float64 `yaml:"calm_release_delay" mapstructure:"calm_release_delay"`
	ThreatTail             float64 `yaml:"threat_tail" mapstructure:"threat_tail"`
	NeutralWindup          float64 `yaml:"neutral_windup" mapstructure:"neutral_windup"`

	FeintMinDuration        float64 `yaml:"feint_min_duration" mapstructure:"feint_min_duration"`
	FeintMinWindup          float64 `yaml:"feint_min_windup" mapstructure:"feint_min_windup"`
	FeintsForMistake        int     `yaml:"feints_for_mistake" mapstructure:"feints_for_mistake"`
	FeintMistakeChance      float64 `yaml:"feint_mistake_chance" mapstructure:"feint_mistake_chance"`
	LowStaminaForMistake    float64 `yaml:"low_stamina_for_mistake" mapstructure:"low_stamina_for_mistake"`
	MistakeMaxIncomingPower float64 `yaml:"mistake_max_incoming_power" mapstructure:"mistake_max_incoming_power"`
	MistakeOpen             float64 `yaml:"mistake_open" mapstructure:"mistake_open"`

	PendingArm             float64 `yaml:"pending_arm" mapstructure:"pending_arm"`
	ReraiseCooldown        float64 `yaml:"reraise_cooldown" mapstructure:"reraise_cooldown"`
	PendingReraiseSuppress float64 `yaml:"pending_reraise_suppress" mapstructure:"pending_reraise_suppress"`
	RaiseDelayPenalty      float64 `yaml:"raise_delay_penalty" mapstructure:"raise_delay_penalty"`
	FeintReblockSuppress   float64 `yaml:"feint_reblock_suppress" mapstructure:"feint_reblock_suppress"`

	Windup            Span    `yaml:"windup" mapstructure:"windup"`
	Hold              Span    `yaml:"hold" mapstructure:"hold"`
	Cooldown          Span    `yaml:"cooldown" mapstructure:"cooldown"`
	Failsafe          float64 `yaml:"failsafe" mapstructure:"failsafe"`
	TriggerMultiplier float64 `yaml:"trigger_multiplier" mapstructure:"trigger_multiplier"`
	// SwipeSpeedLow and SwipeSpeedHigh bound the AI release speed in cm/s;
	// each span is interpolated by difficulty from Min to Max.
	SwipeSpeedLow  Span `yaml:"swipe_speed_low" mapstructure:"swipe_speed_low"`
	SwipeSpeedHigh Span `yaml:"swipe_speed_high" mapstructure:"swipe_speed_high"`

	GreedyVulnerability     float64 `yaml:"greedy_vulnerability" mapstructure:"greedy_vulnerability"`
	GreedyMistakeScale      float64 `yaml:"greedy_mistake_scale" mapstructure:"greedy_mistake_scale"`
	GreedyRaiseDelayPenalty float64 `yaml:"greedy_raise_delay_penalty" mapstructure:"greedy_raise_delay_penalty"`
}

// DefaultPolicy returns the shipped tuning.
func DefaultPolicy() Policy {
	return Policy{
		BlockChance:            0.8,
		FastBlockSpeed:         3.5,
		SlowBlockSpeed:         1.5,
		FastBlockChance:        0.5,
		ReactFromWindup:        0.55,
		HoldAfterSlapStart:     0.25,
		ReleaseGrace:           0.10,
		MinCommit:              0.22,
		ReleaseWindupThreshold: 0.06,
		ThreatMemory:           0.18,
		NoDrop:                 0.28,
		HardLatch:              0.35,
		CalmReleaseDelay:       0.25,
		ThreatTail:             0.22,
		NeutralWindup:          0.02,

		FeintMinDuration:        0.12,
		FeintMinWindup:          0.2,
		FeintsForMistake:        3,
		FeintMistakeChance:      0.5,
		LowStaminaForMistake:    0.5,
		MistakeMaxIncomingPower: 0.5,
		MistakeOpen:             0.16,

		PendingArm:             0.08,
		ReraiseCooldown:        0.2,
		PendingReraiseSuppress: 0.35,
		RaiseDelayPenalty:      0.5,
		FeintReblockSuppress:   0.7,

		Windup:            Span{Min: 0.9, Max: 1.5},
		Hold:              Span{Min: 0.05, Max: 0.1},
		Cooldown:          Span{Min: 0.2, Max: 0.6},
		Failsafe:          2.0,
		TriggerMultiplier: 3,
		SwipeSpeedLow:     Span{Min: 5, Max: 18},
		SwipeSpeedHigh:    Span{Min: 12, Max: 35},

		GreedyVulnerability:     0.6,
		GreedyMistakeScale:      1.8,
		GreedyRaiseDelayPenalty: 0.08,
	}
}

// Validate reports every out-of-range field.
//
// Postcondition: nil means all probabilities lie in [0,1], all durations are
// non-negative, and every span has Min <= Max.
func (p Policy) Validate() error {
	var errs []string
	probs := map[string]float64{
		"block_chance":               p.BlockChance,
		"fast_block_chance":          p.FastBlockChance,
		"react_from_windup":          p.ReactFromWindup,
		"feint_mistake_chance":       p.FeintMistakeChance,
		"low_stamina_for_mistake":    p.LowStaminaForMistake,
		"mistake_max_incoming_power": p.MistakeMaxIncomingPower,
		"feint_min_windup":           p.FeintMinWindup,
	}
	for _, name := range sortedKeys(probs) {
		if v := probs[name]; v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0,1], got %v", name, v))
		}
	}
	durations := map[string]float64{
		"hold_after_slap_start":    p.HoldAfterSlapStart,
		"release_grace":            p.ReleaseGrace,
		"min_commit":               p.MinCommit,
		"threat_memory":            p.ThreatMemory,
		"no_drop":                  p.NoDrop,
		"hard_latch":               p.HardLatch,
		"calm_release_delay":       p.CalmReleaseDelay,
		"threat_tail":              p.ThreatTail,
		"feint_min_duration":       p.FeintMinDuration,
		"mistake_open":             p.MistakeOpen,
		"pending_arm":              p.PendingArm,
		"reraise_cooldown":         p.ReraiseCooldown,
		"pending_reraise_suppress": p.PendingReraiseSuppress,
		"raise_delay_penalty":      p.RaiseDelayPenalty,
		"feint_reblock_suppress":   p.FeintReblockSuppress,
		"greedy_vulnerability":     p.GreedyVulnerability,
	}
	for _, name := range sortedKeys(durations) {
		if durations[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %v", name, durations[name]))
		}
	}
	if p.FastBlockSpeed <= 0 || p.SlowBlockSpeed <= 0 {
		errs = append(errs, "block speeds must be > 0")
	}
	if p.FeintsForMistake < 1 {
		errs = append(errs, fmt.Sprintf("feints_for_mistake must be >= 1, got %d", p.FeintsForMistake))
	}
	if p.Failsafe <= 0 {
		errs = append(errs, fmt.Sprintf("failsafe must be > 0, got %v", p.Failsafe))
	}
	if p.TriggerMultiplier <= 0 {
		errs = append(errs, fmt.Sprintf("trigger_multiplier must be > 0, got %v", p.TriggerMultiplier))
	}
	spans := []struct {
		name string
		s    Span
	}{
		{"windup", p.Windup}, {"hold", p.Hold}, {"cooldown", p.Cooldown},
		{"swipe_speed_low", p.SwipeSpeedLow}, {"swipe_speed_high", p.SwipeSpeedHigh},
	}
	for _, sp := range spans {
		if sp.s.Min < 0 || sp.s.Min > sp.s.Max {
			errs = append(errs, fmt.Sprintf("%s must satisfy 0 <= min <= max, got [%v,%v]", sp.name, sp.s.Min, sp.s.Max))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ai.Policy: %s", strings.Join(errs, "; "))
	}
	return nil
}
