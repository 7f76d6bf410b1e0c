// Package config provides Viper-based configuration loading for the slap
// fight simulator.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/combat"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
	"github.com/cory-johannsen/slapfight/internal/game/gesture"
	"github.com/cory-johannsen/slapfight/internal/settings"
)

// EnvPrefix prefixes every environment override, e.g. SLAPFIGHT_LOGGING_LEVEL.
const EnvPrefix = "SLAPFIGHT"

// Simulation modes.
const (
	ModeAIvsAI   = "ai_vs_ai"
	ModeScripted = "scripted"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// MatchConfig names the fighters and paces the tick loop.
type MatchConfig struct {
	PlayerName   string `mapstructure:"player_name"`
	OpponentName string `mapstructure:"opponent_name"`
	// TickInterval is the wall-clock period of the realtime tick loop.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Seed fixes the random source; 0 uses crypto randomness.
	Seed uint64 `mapstructure:"seed"`
}

// AIConfig selects and tunes the opponent.
type AIConfig struct {
	// Advanced enables adaptive difficulty, feints, and habit tracking.
	Advanced bool `mapstructure:"advanced"`
	// Style is the style ID used for the opponent.
	Style string `mapstructure:"style"`
	// StylesDir holds style YAML files; empty uses the built-in styles.
	StylesDir string    `mapstructure:"styles_dir"`
	Policy    ai.Policy `mapstructure:"policy"`
}

// ScriptingConfig holds Lua hook settings.
type ScriptingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ScriptsDir holds one subdirectory per scope plus an optional "global".
	ScriptsDir       string `mapstructure:"scripts_dir"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// SettingsConfig locates the preference store.
type SettingsConfig struct {
	AppName string `mapstructure:"app_name"`
	// Difficulty overrides the stored preference when non-empty.
	Difficulty string `mapstructure:"difficulty"`
}

// TraceConfig controls the JSONL session trace.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	// FrameInterval is the spacing of frame snapshots in seconds; 0 disables them.
	FrameInterval float64 `mapstructure:"frame_interval"`
}

// SimulationConfig drives the headless simulator.
type SimulationConfig struct {
	// Mode is "ai_vs_ai" or "scripted".
	Mode    string `mapstructure:"mode"`
	Matches int    `mapstructure:"matches"`
	// StepSeconds is the simulated time advanced per tick.
	StepSeconds float64 `mapstructure:"step_seconds"`
	// MaxMatchSeconds ends a match that has not produced a KO.
	MaxMatchSeconds float64 `mapstructure:"max_match_seconds"`
	// InputFile is the scripted gesture file used in scripted mode.
	InputFile string `mapstructure:"input_file"`
	// Realtime paces ticks with MatchConfig.TickInterval instead of running flat out.
	Realtime bool `mapstructure:"realtime"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Match      MatchConfig      `mapstructure:"match"`
	Gesture    gesture.Config   `mapstructure:"gesture"`
	Fighter    fighter.Config   `mapstructure:"fighter"`
	Combat     combat.Config    `mapstructure:"combat"`
	AI         AIConfig         `mapstructure:"ai"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Settings   SettingsConfig   `mapstructure:"settings"`
	Trace      TraceConfig      `mapstructure:"trace"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Match: MatchConfig{
			PlayerName:   "Player",
			OpponentName: "Opponent",
			TickInterval: 16 * time.Millisecond,
		},
		Gesture: gesture.DefaultConfig(),
		Fighter: fighter.DefaultConfig(),
		Combat:  combat.DefaultConfig(),
		AI: AIConfig{
			Advanced: true,
			Style:    ai.StyleBalanced,
			Policy:   ai.DefaultPolicy(),
		},
		Scripting: ScriptingConfig{
			ScriptsDir:       "content/scripts",
			InstructionLimit: 100_000,
		},
		Settings: SettingsConfig{AppName: "slapfight"},
		Trace:    TraceConfig{Dir: "fight_logs"},
		Simulation: SimulationConfig{
			Mode:            ModeAIvsAI,
			Matches:         1,
			StepSeconds:     1.0 / 60.0,
			MaxMatchSeconds: 300,
		},
	}
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateMatch(c.Match),
		validateGesture(c.Gesture),
		validateFighter(c.Fighter),
		c.Combat.Validate(),
		validateAI(c.AI),
		validateScripting(c.Scripting),
		validateSettings(c.Settings),
		validateTrace(c.Trace),
		validateSimulation(c.Simulation),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateMatch(m MatchConfig) error {
	var errs []string
	if m.PlayerName == "" {
		errs = append(errs, "match.player_name must not be empty")
	}
	if m.OpponentName == "" {
		errs = append(errs, "match.opponent_name must not be empty")
	}
	if m.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("match.tick_interval must be > 0, got %s", m.TickInterval))
	}
	return joined(errs)
}

func validateGesture(g gesture.Config) error {
	var errs []string
	if g.FallbackDPI <= 0 {
		errs = append(errs, fmt.Sprintf("gesture.fallback_dpi must be > 0, got %v", g.FallbackDPI))
	}
	if g.DeadzonePx < 0 {
		errs = append(errs, "gesture.deadzone_px must not be negative")
	}
	if g.SwipeDistanceCm <= 0 || g.BlockSwipeDistanceCm <= 0 {
		errs = append(errs, "gesture.swipe_distance_cm and gesture.block_swipe_distance_cm must be > 0")
	}
	if g.ReverseDistanceFactor <= 0 {
		errs = append(errs, fmt.Sprintf("gesture.reverse_distance_factor must be > 0, got %v", g.ReverseDistanceFactor))
	}
	if g.SpeedMaxCmPerSec <= g.SpeedMinCmPerSec {
		errs = append(errs, "gesture.speed_max_cm_per_sec must exceed gesture.speed_min_cm_per_sec")
	}
	return joined(errs)
}

func validateFighter(f fighter.Config) error {
	var errs []string
	if f.MaxHealth <= 0 {
		errs = append(errs, fmt.Sprintf("fighter.max_health must be > 0, got %v", f.MaxHealth))
	}
	if f.MaxStamina <= 0 {
		errs = append(errs, fmt.Sprintf("fighter.max_stamina must be > 0, got %v", f.MaxStamina))
	}
	if f.MinWindupForSlap < 0 || f.MinWindupForSlap > 1 {
		errs = append(errs, fmt.Sprintf("fighter.min_windup_for_slap must be within [0,1], got %v", f.MinWindupForSlap))
	}
	if f.SpeedMaxCmPerSec <= f.SpeedMinCmPerSec {
		errs = append(errs, "fighter.speed_max_cm_per_sec must exceed fighter.speed_min_cm_per_sec")
	}
	if f.SlapClipSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("fighter.slap_clip_seconds must be > 0, got %v", f.SlapClipSeconds))
	}
	if f.HardLockTargetHold < 0 || f.HardLockTargetHold > 1 {
		errs = append(errs, fmt.Sprintf("fighter.hard_lock_target_hold must be within [0,1], got %v", f.HardLockTargetHold))
	}
	if f.ReacquireCooldownSeconds < 0 || f.BlockReleaseSeconds < 0 || f.HardLockRaiseSeconds < 0 {
		errs = append(errs, "fighter block timings must not be negative")
	}
	return joined(errs)
}

func validateAI(a AIConfig) error {
	var errs []string
	if a.Style == "" {
		errs = append(errs, "ai.style must not be empty")
	}
	if err := a.Policy.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	return joined(errs)
}

func validateScripting(s ScriptingConfig) error {
	var errs []string
	if s.Enabled && s.ScriptsDir == "" {
		errs = append(errs, "scripting.scripts_dir must not be empty when scripting is enabled")
	}
	if s.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit))
	}
	return joined(errs)
}

func validateSettings(s SettingsConfig) error {
	var errs []string
	if s.AppName == "" {
		errs = append(errs, "settings.app_name must not be empty")
	}
	if s.Difficulty != "" {
		if _, err := settings.ParseDifficulty(s.Difficulty); err != nil {
			errs = append(errs, fmt.Sprintf("settings.difficulty must be easy, normal, hard, or 0-2, got %q", s.Difficulty))
		}
	}
	return joined(errs)
}

func validateTrace(t TraceConfig) error {
	var errs []string
	if t.Enabled && t.Dir == "" {
		errs = append(errs, "trace.dir must not be empty when tracing is enabled")
	}
	if t.FrameInterval < 0 {
		errs = append(errs, "trace.frame_interval must not be negative")
	}
	return joined(errs)
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	switch s.Mode {
	case ModeAIvsAI:
	case ModeScripted:
		if s.InputFile == "" {
			errs = append(errs, "simulation.input_file must not be empty in scripted mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("simulation.mode must be one of [%s, %s], got %q", ModeAIvsAI, ModeScripted, s.Mode))
	}
	if s.Matches < 1 {
		errs = append(errs, fmt.Sprintf("simulation.matches must be >= 1, got %d", s.Matches))
	}
	if s.StepSeconds <= 0 || s.StepSeconds > 0.25 {
		errs = append(errs, fmt.Sprintf("simulation.step_seconds must be within (0, 0.25], got %v", s.StepSeconds))
	}
	if s.MaxMatchSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.max_match_seconds must be > 0, got %v", s.MaxMatchSeconds))
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := NewViper()
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying every default and the
// SLAPFIGHT_ environment overrides.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every leaf of Default() so that env overrides and
// partial files both resolve against the shipped values.
func setDefaults(v *viper.Viper) error {
	d := Default()
	var tree map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &tree})
	if err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if err := dec.Decode(d); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	for key, val := range flatten("", tree) {
		v.SetDefault(key, val)
	}
	// Durations decode back from their string form.
	v.SetDefault("match.tick_interval", d.Match.TickInterval.String())
	return nil
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := m[k].(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = m[k]
	}
	return out
}

// ErrNoConfig is returned by Resolve when neither a flag nor the environment
// names a config file.
var ErrNoConfig = errors.New("config: no config file given")

// Resolve returns flagPath when set, otherwise the path in SLAPFIGHT_CONFIG.
func Resolve(flagPath string, getenv func(string) string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if p := getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	return "", ErrNoConfig
}
