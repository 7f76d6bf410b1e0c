package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged rolls.
// All rolls are logged at debug level with their purpose and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil. A nil logger disables logging.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Unit returns a uniform float in [0, 1) and logs it under purpose.
func (r *Roller) Unit(purpose string) float64 {
	v := Unit(r.src)
	r.logger.Debug("dice roll",
		zap.String("purpose", purpose),
		zap.Float64("value", v),
	)
	return v
}

// Range returns a uniform float in [lo, hi) and logs it under purpose.
func (r *Roller) Range(purpose string, lo, hi float64) float64 {
	v := Range(r.src, lo, hi)
	r.logger.Debug("dice range",
		zap.String("purpose", purpose),
		zap.Float64("lo", lo),
		zap.Float64("hi", hi),
		zap.Float64("value", v),
	)
	return v
}

// Chance reports whether a roll succeeds against probability p and logs it.
func (r *Roller) Chance(purpose string, p float64) bool {
	ok := Chance(r.src, p)
	r.logger.Debug("dice chance",
		zap.String("purpose", purpose),
		zap.Float64("p", p),
		zap.Bool("hit", ok),
	)
	return ok
}

// Intn returns a uniform int in [0, n) and logs it under purpose.
//
// Precondition: n > 0.
func (r *Roller) Intn(purpose string, n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice intn",
		zap.String("purpose", purpose),
		zap.Int("n", n),
		zap.Int("value", v),
	)
	return v
}

// Weighted picks an index proportionally to weights and logs it.
//
// Postcondition: returns -1 when no weight is positive.
func (r *Roller) Weighted(purpose string, weights []float64) int {
	i := Weighted(r.src, weights)
	r.logger.Debug("dice weighted",
		zap.String("purpose", purpose),
		zap.Float64s("weights", weights),
		zap.Int("index", i),
	)
	return i
}
