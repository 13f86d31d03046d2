// Package engine advances autonomous vehicles one tick at a time.
//
// UpdateVehicle is the heart of the package: given a vehicle and a snapshot
// of the world it decides whether to stop, slow, reroute or detour, moves the
// vehicle along its route and wears down its battery and tires. Navigation
// decisions are also appended to a bounded log that UIs can poll.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/internal/planner"
	"github.com/avnav/fleetsim/internal/queue"
	"github.com/avnav/fleetsim/pkg/core"
)

// DefaultLogCapacity is the number of log entries kept.
const DefaultLogCapacity = 100

// Tick is the world snapshot one vehicle update reads.
type Tick struct {
	Traffic     []core.TrafficCondition
	Pedestrians []core.Pedestrian
	// Vehicles is the pre-tick state of every vehicle, indexed like the
	// scheduler's vehicle list. It may be nil.
	Vehicles []core.Vehicle
	// Selected is the index of the vehicle that runs vehicle-ahead and
	// collision checks, or -1.
	Selected int
	DeltaMs  float64
}

func (t Tick) isSelected(index int) bool {
	return t.Vehicles != nil && index >= 0 && index == t.Selected && index < len(t.Vehicles)
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlanner sets the route planner.
func WithPlanner(p *planner.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

// WithLogger sets the structured logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSeed makes every random draw reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMapVariant sets the initial map.
func WithMapVariant(m core.MapVariant) Option {
	return func(e *Engine) { e.variant = m }
}

// WithLogCapacity sets how many log entries are kept.
func WithLogCapacity(n int) Option {
	return func(e *Engine) { e.logs = queue.NewRing[core.LogEntry](n) }
}

// Engine owns the map selection, the random source, the decision log and
// the arrival callback. All methods are safe for concurrent use; log
// appends are serialized so entries stay in chronological order.
type Engine struct {
	planner *planner.Planner
	logger  *slog.Logger
	now     func() time.Time

	logMu sync.Mutex
	logs  *queue.Ring[core.LogEntry]
	seq   uint64

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.RWMutex
	variant  core.MapVariant
	onArrive func(core.Vehicle)
}

// New creates an engine on the warehouse map.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		logs:    queue.NewRing[core.LogEntry](DefaultLogCapacity),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		variant: core.MapWarehouse,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.planner == nil {
		e.planner = planner.New(planner.WithLogger(e.logger))
	}
	return e
}

// Planner returns the route planner the engine uses.
func (e *Engine) Planner() *planner.Planner { return e.planner }

// SetMapVariant switches the map used by subsequent updates.
func (e *Engine) SetMapVariant(m core.MapVariant) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variant = m
}

// MapVariant returns the current map.
func (e *Engine) MapVariant() core.MapVariant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.variant
}

func (e *Engine) layout() *obstacle.Layout {
	return e.planner.Layout(e.MapVariant())
}

// SetDestinationReachedCallback registers fn to be called once per arrival.
// fn runs on the goroutine that performed the update.
func (e *Engine) SetDestinationReachedCallback(fn func(core.Vehicle)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onArrive = fn
}

func (e *Engine) arrived(v core.Vehicle) {
	e.mu.RLock()
	fn := e.onArrive
	e.mu.RUnlock()
	if fn != nil {
		fn(v.Clone())
	}
}

// record appends a log entry.
func (e *Engine) record(vehicleID string, event core.EventCode, at core.Position, format string, args ...any) {
	details := fmt.Sprintf(format, args...)

	e.logMu.Lock()
	e.seq++
	entry := core.LogEntry{
		Seq:       e.seq,
		Timestamp: e.now(),
		VehicleID: vehicleID,
		Event:     event,
		Details:   details,
		Position:  at,
	}
	e.logs.Push(entry)
	e.logMu.Unlock()

	e.logger.Debug("vehicle event", "vehicle", vehicleID, "event", string(event), "details", details)
}

// Logs returns the retained log entries, newest first.
func (e *Engine) Logs() []core.LogEntry {
	return e.logs.Newest()
}

// LogsSince returns the retained entries with a sequence number above seq,
// oldest first.
func (e *Engine) LogsSince(seq uint64) []core.LogEntry {
	all := e.logs.Oldest()
	for i, entry := range all {
		if entry.Seq > seq {
			return all[i:]
		}
	}
	return nil
}

// ClearLogs drops every retained entry.
func (e *Engine) ClearLogs() {
	e.logs.Clear()
}

func (e *Engine) randFloat() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) randIntn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// randRange draws uniformly from [lo, hi).
func (e *Engine) randRange(lo, hi float64) float64 {
	return lo + e.randFloat()*(hi-lo)
}
