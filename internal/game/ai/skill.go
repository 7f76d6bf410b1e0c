package ai

import "math"

// Window sizes and weights for the adaptive skill estimate.
const (
	fastWindow     = 6
	slowWindow     = 16
	slowWeight     = 0.65
	fastWeight     = 0.35
	difficultyRise = 0.35
	difficultyFall = 0.12
	// damageForFullScore is the health damage that scores a player attack as 1.
	damageForFullScore = 60.0
)

// SkillBand labels a skill estimate.
type SkillBand int

const (
	BandNovice SkillBand = iota
	BandMid
	BandPro
)

// String returns the band name.
func (b SkillBand) String() string {
	switch b {
	case BandNovice:
		return "Novice"
	case BandMid:
		return "Mid"
	case BandPro:
		return "Pro"
	default:
		return "Unknown"
	}
}

// BandFor returns the band of a skill estimate.
func BandFor(skill float64) SkillBand {
	switch {
	case skill < 0.35:
		return BandNovice
	case skill < 0.7:
		return BandMid
	default:
		return BandPro
	}
}

// Tuning is the difficulty-derived part of the defense policy.
type Tuning struct {
	React      float64
	RaiseDelay float64
	Mistake    float64
	LatchExtra float64
}

// TuningFor derives the defense tuning for difficulty d in [0,1].
func TuningFor(d float64) Tuning {
	return Tuning{
		React:      lerp(0.70, 0.52, d),
		RaiseDelay: lerp(0.45, 0.22, d),
		Mistake:    math.Max(0.03, lerp(0.22, 0.05, d)),
		LatchExtra: lerp(0.15, 0.35, d),
	}
}

// Skill estimates the human player's skill from exchange scores and moves
// the engine's difficulty toward it.
//
// Invariant: Difficulty and every score lie in [0,1].
type Skill struct {
	fast       []float64
	slow       []float64
	difficulty float64
	exchanges  int
}

// NewSkill returns a Skill starting at difficulty.
func NewSkill(difficulty float64) *Skill {
	return &Skill{difficulty: clamp01(difficulty)}
}

// RecordAttack scores a player attack by the health damage it dealt.
func (s *Skill) RecordAttack(damage float64) {
	s.record(clamp01(damage / damageForFullScore))
}

// RecordDefense scores a player defense.
func (s *Skill) RecordDefense(blocked, perfect bool) {
	switch {
	case perfect:
		s.record(1)
	case blocked:
		s.record(0.75)
	default:
		s.record(0)
	}
}

func (s *Skill) record(score float64) {
	s.fast = pushWindow(s.fast, score, fastWindow)
	s.slow = pushWindow(s.slow, score, slowWindow)
	s.exchanges++
	target := s.Estimate()
	rate := difficultyFall
	if target > s.difficulty {
		rate = difficultyRise
	}
	s.difficulty = clamp01(s.difficulty + (target-s.difficulty)*rate)
}

func pushWindow(w []float64, v float64, size int) []float64 {
	w = append(w, v)
	if len(w) > size {
		w = w[len(w)-size:]
	}
	return w
}

func mean(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}

// Estimate returns the blended skill estimate, or the difficulty before any
// exchange was recorded.
func (s *Skill) Estimate() float64 {
	if s.exchanges == 0 {
		return s.difficulty
	}
	return clamp01(slowWeight*mean(s.slow) + fastWeight*mean(s.fast))
}

// Difficulty returns the current difficulty.
func (s *Skill) Difficulty() float64 { return s.difficulty }

// Exchanges returns the number of recorded exchanges.
func (s *Skill) Exchanges() int { return s.exchanges }
