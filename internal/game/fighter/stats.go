package fighter

const (
	// DefaultMaxHealth is the health pool of a fighter built with zero config.
	DefaultMaxHealth = 500.0
	// DefaultMaxStamina is the stamina pool of a fighter built with zero config.
	DefaultMaxStamina = 200.0
)

// Stats holds a fighter's health and stamina pools.
//
// Invariant: 0 <= Health <= MaxHealth and 0 <= Stamina <= MaxStamina.
type Stats struct {
	MaxHealth  float64
	Health     float64
	MaxStamina float64
	Stamina    float64
}

// NewStats returns full pools of the given size.
//
// Precondition: non-positive maxima fall back to the defaults.
func NewStats(maxHealth, maxStamina float64) *Stats {
	if maxHealth <= 0 {
		maxHealth = DefaultMaxHealth
	}
	if maxStamina <= 0 {
		maxStamina = DefaultMaxStamina
	}
	return &Stats{MaxHealth: maxHealth, Health: maxHealth, MaxStamina: maxStamina, Stamina: maxStamina}
}

// SpendStamina removes up to amount stamina.
//
// Postcondition: returns the amount actually removed; negative amounts remove nothing.
func (s *Stats) SpendStamina(amount float64) float64 {
	if amount <= 0 || s.Stamina <= 0 {
		return 0
	}
	applied := min(amount, s.Stamina)
	s.Stamina -= applied
	return applied
}

// RecoverStamina adds up to amount stamina without exceeding MaxStamina.
//
// Postcondition: returns the amount actually added.
func (s *Stats) RecoverStamina(amount float64) float64 {
	if amount <= 0 || s.Stamina >= s.MaxStamina {
		return 0
	}
	applied := min(amount, s.MaxStamina-s.Stamina)
	s.Stamina += applied
	return applied
}

// TakeDamage removes up to amount health.
//
// Postcondition: returns the amount actually removed; Health never drops below 0.
func (s *Stats) TakeDamage(amount float64) float64 {
	if amount <= 0 || s.Health <= 0 {
		return 0
	}
	applied := min(amount, s.Health)
	s.Health -= applied
	return applied
}

// IsAlive reports whether Health is above zero.
func (s *Stats) IsAlive() bool { return s.Health > 0 }

// Health01 returns Health as a fraction of MaxHealth.
func (s *Stats) Health01() float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	return s.Health / s.MaxHealth
}

// Stamina01 returns Stamina as a fraction of MaxStamina.
func (s *Stats) Stamina01() float64 {
	if s.MaxStamina <= 0 {
		return 0
	}
	return s.Stamina / s.MaxStamina
}

// ResetToFull refills both pools.
func (s *Stats) ResetToFull() {
	s.Health = s.MaxHealth
	s.Stamina = s.MaxStamina
}
