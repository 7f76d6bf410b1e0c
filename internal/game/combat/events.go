package combat

import (
	"sync"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
	"github.com/cory-johannsen/slapfight/internal/game/fighter"
)

// Event kinds.
const (
	KindSlapFired      = "slap_fired"
	KindHitResolved    = "hit_resolved"
	KindStaminaDrained = "stamina_drained"
	KindMatchEnded     = "match_ended"
)

// Event is one record on the Bus.
type Event interface {
	Kind() string
}

// SlapFired reports a slap seen by the arbiter. Accepted is false when the
// slap came from the wrong side or while a hit was already pending.
type SlapFired struct {
	MatchID    string
	AttackerID string
	Attacker   string
	Accepted   bool
	Slap       fighter.SlapEvent
}

// Kind implements Event.
func (SlapFired) Kind() string { return KindSlapFired }

// HitResolved reports one resolved hit. Damage is in health points;
// BlockDirection is the defender's held block direction, or None. Stamina
// fields are the attacker's, at fire time and at resolution.
type HitResolved struct {
	MatchID        string
	AttackerID     string
	DefenderID     string
	Direction      direction.Direction
	BlockDirection direction.Direction
	Blocked        bool
	Perfect        bool
	DamagePercent  float64
	Damage         float64
	StaminaBefore  float64
	StaminaAfter   float64
	HealthBefore   float64
	HealthAfter    float64
	Verdict        string
	At             float64
}

// Kind implements Event.
func (HitResolved) Kind() string { return KindHitResolved }

// StaminaDrained reports stamina spent on one tick.
type StaminaDrained struct {
	MatchID string
	ActorID string
	Reason  string
	Amount  float64
	Before  float64
	After   float64
	At      float64
}

// Kind implements Event.
func (StaminaDrained) Kind() string { return KindStaminaDrained }

// MatchEnded reports the end of a match. WinnerID is empty on a double KO.
type MatchEnded struct {
	MatchID  string
	Outcome  Outcome
	WinnerID string
	Hits     int
	At       float64
}

// Kind implements Event.
func (MatchEnded) Kind() string { return KindMatchEnded }

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to every subscriber synchronously, in subscription
// order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers h for every later Publish.
//
// Precondition: h must be non-nil.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every subscriber before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
