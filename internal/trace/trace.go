// Package trace writes a JSONL record of a fight session: one JSON object per
// line for every slap, hit, stamina drain, state change, and AI decision.
package trace

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/slapfight/internal/game/combat"
)

// Record types.
const (
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
	TypeSlapFired    = "slap_fired"
	TypeHitResolved  = "hit_resolved"
	TypeStaminaDrain = "stamina_drain"
	TypeCombatEvent  = "combat_event"
	TypeStatChange   = "stat_change"
	TypeAIDecision   = "ai_decision"
	TypeFrame        = "frame"
)

// statEpsilon is the smallest stat change worth a record.
const statEpsilon = 0.01

// Options configures a Recorder.
type Options struct {
	// FrameInterval is the spacing of frame snapshots in seconds; 0 disables them.
	FrameInterval float64
	// Clock stamps the utc field. Defaults to time.Now.
	Clock func() time.Time
}

// Snapshot is the per-tick state a Recorder diffs against the previous one.
type Snapshot struct {
	At            float64
	Started       bool
	Waiting       bool
	PlayerTurn    bool
	PlayerHealth  float64
	PlayerStamina float64
	AIHealth      float64
	AIStamina     float64
	AIReason      string
}

// Summary counts what a session produced.
type Summary struct {
	Slaps   int
	Hits    int
	Blocked int
	Perfect int
	Damage  float64
}

// Recorder writes trace records. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	log     *zap.Logger
	out     zapcore.WriteSyncer
	closer  func() error
	session string
	match   string
	opts    Options

	last      Snapshot
	hasLast   bool
	nextFrame float64
	summary   Summary
	ended     bool
}

// New returns a Recorder writing to out. An empty sessionID gets a new UUID.
//
// Precondition: out must be non-nil.
func New(out zapcore.WriteSyncer, sessionID string, opts Options) *Recorder {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey:     "type",
		TimeKey:        "utc",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, out, zapcore.DebugLevel)
	clock := opts.Clock
	log := zap.New(core, zap.WithClock(clockFunc(clock))).With(zap.String("session", sessionID))
	return &Recorder{
		log:     log,
		out:     out,
		closer:  func() error { return nil },
		session: sessionID,
		opts:    opts,
	}
}

// Open creates dir if needed and a new trace file inside it named after the
// session start time and session ID.
//
// Postcondition: the caller must Close the Recorder.
func Open(dir, sessionID string, opts Options) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace.Open: creating %q: %w", dir, err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("fight_%s_%s.jsonl", time.Now().UTC().Format("20060102_150405"), short)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("trace.Open: %w", err)
	}
	r := New(zapcore.AddSync(f), sessionID, opts)
	r.closer = f.Close
	return r, nil
}

// SessionID returns the session identifier stamped on every record.
func (r *Recorder) SessionID() string { return r.session }

// Summary returns the counts so far.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Start writes the session_start record and binds later records to matchID.
func (r *Recorder) Start(matchID, player, opponent string, difficulty float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.match = matchID
	r.hasLast = false
	r.nextFrame = 0
	r.write(TypeSessionStart,
		zap.String("player", player),
		zap.String("ai", opponent),
		zap.Float64("difficulty", difficulty),
	)
}

// Handle records a combat event. Its signature matches combat.Handler.
func (r *Recorder) Handle(ev combat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e := ev.(type) {
	case combat.SlapFired:
		if e.Accepted {
			r.summary.Slaps++
		}
		r.write(TypeSlapFired,
			zap.String("actor", e.Attacker),
			zap.String("actor_id", e.AttackerID),
			zap.Bool("accepted", e.Accepted),
			zap.Stringer("direction", e.Slap.Direction),
			zap.Float64("windup01", e.Slap.Windup01),
			zap.Float64("power01", e.Slap.SlapPower01),
			zap.Float64("at", e.Slap.At),
		)
	case combat.HitResolved:
		r.summary.Hits++
		r.summary.Damage += e.Damage
		if e.Blocked {
			r.summary.Blocked++
		}
		if e.Perfect {
			r.summary.Perfect++
		}
		r.write(TypeHitResolved,
			zap.String("attacker_id", e.AttackerID),
			zap.String("defender_id", e.DefenderID),
			zap.Stringer("direction", e.Direction),
			zap.Stringer("block_direction", e.BlockDirection),
			zap.Bool("blocked", e.Blocked),
			zap.Bool("perfect", e.Perfect),
			zap.Float64("damage_percent", e.DamagePercent),
			zap.Float64("damage", e.Damage),
			zap.Float64("health_before", e.HealthBefore),
			zap.Float64("health_after", e.HealthAfter),
			zap.String("verdict", e.Verdict),
			zap.Float64("at", e.At),
		)
	case combat.StaminaDrained:
		r.write(TypeStaminaDrain,
			zap.String("actor_id", e.ActorID),
			zap.String("reason", e.Reason),
			zap.Float64("amount", e.Amount),
			zap.Float64("before", e.Before),
			zap.Float64("after", e.After),
			zap.Float64("at", e.At),
		)
	case combat.MatchEnded:
		r.write(TypeCombatEvent,
			zap.String("event", "game_over"),
			zap.String("details", resultLabel(e)),
			zap.Float64("at", e.At),
		)
	}
}

func resultLabel(e combat.MatchEnded) string {
	switch {
	case e.Outcome == combat.OutcomeDoubleKO:
		return "double_ko"
	case e.WinnerID == "":
		return "unknown"
	default:
		return "winner " + e.WinnerID
	}
}

// Sample diffs s against the previous snapshot and records state flips,
// stat changes, AI decision changes, and periodic frames.
func (r *Recorder) Sample(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasLast {
		r.hasLast = true
		r.last = s
		r.frame(s)
		return
	}
	prev := r.last
	r.last = s
	if s.Started != prev.Started {
		r.combatEvent(s.At, "battle_state", pick(s.Started, "started", "stopped"))
	}
	if s.Waiting != prev.Waiting {
		r.combatEvent(s.At, "hit_resolution", pick(s.Waiting, "waiting", "resolved"))
	}
	if s.PlayerTurn != prev.PlayerTurn {
		r.combatEvent(s.At, "turn", pick(s.PlayerTurn, "player_attacker", "ai_attacker"))
	}
	r.stat(s.At, "player_health", prev.PlayerHealth, s.PlayerHealth)
	r.stat(s.At, "player_stamina", prev.PlayerStamina, s.PlayerStamina)
	r.stat(s.At, "ai_health", prev.AIHealth, s.AIHealth)
	r.stat(s.At, "ai_stamina", prev.AIStamina, s.AIStamina)
	if s.AIReason != prev.AIReason && s.AIReason != "" {
		r.write(TypeAIDecision, zap.String("reason", s.AIReason), zap.Float64("at", s.At))
	}
	if r.opts.FrameInterval > 0 && s.At >= r.nextFrame {
		r.frame(s)
	}
}

func (r *Recorder) frame(s Snapshot) {
	if r.opts.FrameInterval <= 0 {
		return
	}
	r.nextFrame = s.At + r.opts.FrameInterval
	r.write(TypeFrame,
		zap.Float64("at", s.At),
		zap.Bool("started", s.Started),
		zap.Bool("waiting", s.Waiting),
		zap.Bool("player_turn", s.PlayerTurn),
		zap.Float64("player_health", s.PlayerHealth),
		zap.Float64("player_stamina", s.PlayerStamina),
		zap.Float64("ai_health", s.AIHealth),
		zap.Float64("ai_stamina", s.AIStamina),
	)
}

func (r *Recorder) combatEvent(at float64, name, details string) {
	r.write(TypeCombatEvent, zap.String("event", name), zap.String("details", details), zap.Float64("at", at))
}

func (r *Recorder) stat(at float64, metric string, before, after float64) {
	if math.Abs(after-before) < statEpsilon {
		return
	}
	r.write(TypeStatChange,
		zap.String("metric", metric),
		zap.Float64("value", after),
		zap.Float64("delta", after-before),
		zap.Float64("at", at),
	)
}

// End writes the session_end record once.
func (r *Recorder) End(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.ended = true
	r.write(TypeSessionEnd,
		zap.String("reason", reason),
		zap.Int("slaps", r.summary.Slaps),
		zap.Int("hits", r.summary.Hits),
		zap.Int("blocked", r.summary.Blocked),
		zap.Int("perfect", r.summary.Perfect),
		zap.Float64("damage", r.summary.Damage),
	)
}

// Close ends the session if needed, flushes, and releases the output.
func (r *Recorder) Close() error {
	r.End("closed")
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.out.Sync(); err != nil {
		return fmt.Errorf("trace.Close: sync: %w", err)
	}
	if err := r.closer(); err != nil {
		return fmt.Errorf("trace.Close: %w", err)
	}
	return nil
}

func (r *Recorder) write(typ string, fields ...zap.Field) {
	if r.match != "" {
		fields = append(fields, zap.String("match", r.match))
	}
	r.log.Info(typ, fields...)
}

func pick(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

type clockFunc func() time.Time

func (c clockFunc) Now() time.Time { return c() }

func (c clockFunc) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }
