package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in style IDs.
const (
	StyleSafe     = "safe"
	StyleBalanced = "balanced"
	StyleAggro    = "aggro"
)

// Style adjusts the Policy for one opponent personality.
//
// Invariant: ID is non-empty and FalseWindupChance lies in [0,1].
type Style struct {
	ID                string  `yaml:"id"`
	Description       string  `yaml:"description"`
	BlockChanceDelta  float64 `yaml:"block_chance_delta"`
	FastChanceDelta   float64 `yaml:"fast_chance_delta"`
	ReactDelta        float64 `yaml:"react_delta"`
	FalseWindupChance float64 `yaml:"false_windup_chance"`
	// Script names the scripting scope consulted for direction overrides;
	// empty uses the default scope.
	Script string `yaml:"script"`
}

// Validate checks required fields and ranges.
func (s *Style) Validate() error {
	if s.ID == "" {
		return errors.New("ai.Style: ID must not be empty")
	}
	if s.FalseWindupChance < 0 || s.FalseWindupChance > 1 {
		return fmt.Errorf("ai.Style %q: false_windup_chance must be within [0,1], got %v", s.ID, s.FalseWindupChance)
	}
	for name, v := range map[string]float64{
		"block_chance_delta": s.BlockChanceDelta,
		"fast_chance_delta":  s.FastChanceDelta,
		"react_delta":        s.ReactDelta,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("ai.Style %q: %s must be within [-1,1], got %v", s.ID, name, v)
		}
	}
	return nil
}

// Apply returns p with the style deltas applied and clamped.
func (s *Style) Apply(p Policy) Policy {
	p.BlockChance = clamp01(p.BlockChance + s.BlockChanceDelta)
	p.FastBlockChance = clamp01(p.FastBlockChance + s.FastChanceDelta)
	p.ReactFromWindup = clamp01(p.ReactFromWindup + s.ReactDelta)
	return p
}

// DefaultStyles returns the built-in safe, balanced, and aggro styles.
func DefaultStyles() []*Style {
	return []*Style{
		{ID: StyleSafe, Description: "blocks early and rarely feints", BlockChanceDelta: 0.15, FastChanceDelta: 0.2, ReactDelta: -0.12, FalseWindupChance: 0.04},
		{ID: StyleBalanced, Description: "shipped tuning", FalseWindupChance: 0.08},
		{ID: StyleAggro, Description: "reacts late and feints often", BlockChanceDelta: -0.2, FastChanceDelta: -0.15, ReactDelta: 0.1, FalseWindupChance: 0.2},
	}
}

// yamlStyleFile wraps the YAML top-level key.
type yamlStyleFile struct {
	Style *Style `yaml:"style"`
}

// LoadStyles reads all *.yaml files from dir and returns parsed Styles.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if dir contains no .yaml files.
func LoadStyles(dir string) ([]*Style, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadStyles: reading %q: %w", dir, err)
	}
	var styles []*Style
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadStyles: reading %s: %w", e.Name(), err)
		}
		var f yamlStyleFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ai.LoadStyles: parsing %s: %w", e.Name(), err)
		}
		if f.Style == nil {
			return nil, fmt.Errorf("ai.LoadStyles: %s missing top-level 'style' key", e.Name())
		}
		if err := f.Style.Validate(); err != nil {
			return nil, err
		}
		styles = append(styles, f.Style)
	}
	return styles, nil
}

// StyleRegistry indexes Styles by ID.
//
// Invariant: each style ID is registered at most once.
type StyleRegistry struct {
	styles map[string]*Style
}

// NewStyleRegistry returns an empty StyleRegistry.
func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{styles: make(map[string]*Style)}
}

// NewStyleRegistryFromDir loads dir into a registry, or the built-in styles
// when dir is empty.
func NewStyleRegistryFromDir(dir string) (*StyleRegistry, error) {
	styles := DefaultStyles()
	if dir != "" {
		loaded, err := LoadStyles(dir)
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("ai.NewStyleRegistryFromDir: no styles in %q", dir)
		}
		styles = loaded
	}
	r := NewStyleRegistry()
	for _, s := range styles {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register stores s.
//
// Precondition: s must not be nil.
// Postcondition: returns error on ID collision or validation failure.
func (r *StyleRegistry) Register(s *Style) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.styles[s.ID]; exists {
		return fmt.Errorf("ai.StyleRegistry: style %q already registered", s.ID)
	}
	r.styles[s.ID] = s
	return nil
}

// Get returns the style with id, or false if not registered.
func (r *StyleRegistry) Get(id string) (*Style, bool) {
	s, ok := r.styles[id]
	return s, ok
}

// IDs returns the registered style IDs in lexical order.
func (r *StyleRegistry) IDs() []string {
	ids := make([]string, 0, len(r.styles))
	for id := range r.styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
