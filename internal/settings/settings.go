// Package settings persists player preferences across runs.
package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quasilyte/gdata"
	"go.uber.org/zap"
)

// DifficultyKey is the storage item holding the selected difficulty.
const DifficultyKey = "selected_difficulty"

// Difficulty is the player's preferred opponent strength.
type Difficulty int

const (
	Easy Difficulty = iota
	Normal
	Hard
)

// String returns the difficulty label.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Hard:
		return "Hard"
	default:
		return "Normal"
	}
}

// Normalize maps undefined values to Normal.
func (d Difficulty) Normalize() Difficulty {
	switch d {
	case Easy, Hard:
		return d
	default:
		return Normal
	}
}

// Value returns the starting adaptive difficulty in [0,1].
func (d Difficulty) Value() float64 {
	switch d.Normalize() {
	case Easy:
		return 0.2
	case Hard:
		return 0.8
	default:
		return 0.5
	}
}

// ParseDifficulty accepts a label or its numeric value, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "0":
		return Easy, nil
	case "normal", "1":
		return Normal, nil
	case "hard", "2":
		return Hard, nil
	}
	return Normal, fmt.Errorf("settings.ParseDifficulty: unknown difficulty %q", s)
}

// Storage is the item store backing a Store. *gdata.Manager satisfies it.
type Storage interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

// Store reads and writes preferences.
type Store struct {
	storage Storage
	logger  *zap.Logger
}

// Open returns a Store backed by the per-user gdata directory for appName.
//
// Precondition: appName must be non-empty.
func Open(appName string, logger *zap.Logger) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("settings.Open: %w", err)
	}
	return NewStore(m, logger), nil
}

// NewStore wraps storage.
//
// Precondition: storage must be non-nil.
// Postcondition: a nil logger is replaced by a no-op logger.
func NewStore(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: storage, logger: logger}
}

// Difficulty returns the stored difficulty. A missing, unreadable, or
// undefined value yields Normal.
func (s *Store) Difficulty() Difficulty {
	data, err := s.storage.LoadItem(DifficultyKey)
	if err != nil {
		s.logger.Warn("loading difficulty preference", zap.Error(err))
		return Normal
	}
	if len(data) == 0 {
		return Normal
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		s.logger.Debug("ignoring malformed difficulty preference", zap.ByteString("value", data))
		return Normal
	}
	return Difficulty(raw).Normalize()
}

// SetDifficulty stores d, normalized.
func (s *Store) SetDifficulty(d Difficulty) error {
	d = d.Normalize()
	if err := s.storage.SaveItem(DifficultyKey, []byte(strconv.Itoa(int(d)))); err != nil {
		return fmt.Errorf("settings.SetDifficulty: %w", err)
	}
	s.logger.Info("difficulty preference saved", zap.Stringer("difficulty", d))
	return nil
}
