package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avnav/fleetsim/internal/engine"
	"github.com/avnav/fleetsim/internal/util"
	"github.com/avnav/fleetsim/internal/worker"
	"github.com/avnav/fleetsim/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/avnav/fleetsim/internal/sim"

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultParallelism  = 4

	cityFleetSize      = 5
	warehouseFleetSize = 1
	fleetOrigin        = 100.0
	fleetSpacing       = 100.0
	fleetPerRow        = 7
)

// ErrUnknownVehicle is returned by commands naming a vehicle that is not in
// the world.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder records every tick through m.
func WithRecorder(m *worker.Manager) Option {
	return func(r *Runner) { r.recorder = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithParallelism caps concurrent vehicle updates per tick.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithAutoRoam makes idle city vehicles pick a new destination.
func WithAutoRoam(on bool) Option {
	return func(r *Runner) { r.autoRoam = on }
}

// WithTickInterval sets the wall-clock time between ticks in Run.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithSpeedMultiplier scales the simulated time per tick.
func WithSpeedMultiplier(f float64) Option {
	return func(r *Runner) {
		if f > 0 {
			r.speed = f
		}
	}
}

// WithFleetSize overrides the number of vehicles created on reset.
// Zero keeps the map default.
func WithFleetSize(n int) Option {
	return func(r *Runner) { r.fleetSize = n }
}

// WithTrafficCount sets how many traffic zones a reset generates.
func WithTrafficCount(n int) Option {
	return func(r *Runner) { r.trafficCount = n }
}

// WithSelected sets the vehicle index selected after a reset.
func WithSelected(i int) Option {
	return func(r *Runner) { r.initialSelected = i }
}

// WithMeter sets the meter for tick metrics. Defaults to the global one.
func WithMeter(m metric.Meter) Option {
	return func(r *Runner) { r.meter = m }
}

// WithArrivalHandler registers fn to run once per vehicle arrival. It is
// called from the update goroutines.
func WithArrivalHandler(fn func(core.Vehicle)) Option {
	return func(r *Runner) { r.onArrive = fn }
}

// WithClock overrides the time stamped on recorded samples.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner owns the world and advances it with the engine.
type Runner struct {
	engine   *engine.Engine
	recorder *worker.Manager
	logger   *slog.Logger
	meter    metric.Meter
	now      func() time.Time
	onArrive func(core.Vehicle)

	parallelism     int
	autoRoam        bool
	tickInterval    time.Duration
	fleetSize       int
	trafficCount    int
	initialSelected int

	ticks    metric.Int64Counter
	reroutes metric.Int64Counter
	arrivals metric.Int64Counter
	duration metric.Float64Histogram

	// read by LogAttrs without taking mu
	curMap   atomic.Value
	curTick  atomic.Uint64
	lastTook atomic.Int64
	rerouted atomic.Uint64

	mu          sync.Mutex
	world       World
	speed       float64
	nextVehicle int
	pedCounter  int
}

// New creates a runner and resets the world to the engine's current map.
func New(e *engine.Engine, opts ...Option) (*Runner, error) {
	r := &Runner{
		engine:       e,
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
		parallelism:  DefaultParallelism,
		tickInterval: DefaultTickInterval,
		speed:        1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.meter == nil {
		r.meter = otel.Meter(instrumentationName)
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}

	e.SetDestinationReachedCallback(func(v core.Vehicle) {
		r.arrivals.Add(context.Background(), 1)
		if r.onArrive != nil {
			r.onArrive(v)
		}
	})

	r.mu.Lock()
	r.reset(e.MapVariant())
	r.mu.Unlock()
	return r, nil
}

func (r *Runner) initMetrics() error {
	var err error
	if r.ticks, err = r.meter.Int64Counter("sim.ticks",
		metric.WithDescription("Total simulation ticks")); err != nil {
		return fmt.Errorf("creating ticks counter: %w", err)
	}
	if r.reroutes, err = r.meter.Int64Counter("sim.reroutes",
		metric.WithDescription("Total vehicle reroutes")); err != nil {
		return fmt.Errorf("creating reroutes counter: %w", err)
	}
	if r.arrivals, err = r.meter.Int64Counter("sim.arrivals",
		metric.WithDescription("Total vehicles that reached their destination")); err != nil {
		return fmt.Errorf("creating arrivals counter: %w", err)
	}
	if r.duration, err = r.meter.Float64Histogram("sim.tick.duration",
		metric.WithDescription("Time spent computing one tick"),
		metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("creating tick duration histogram: %w", err)
	}
	return nil
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// TickInterval is the wall-clock time between ticks in Run.
func (r *Runner) TickInterval() time.Duration { return r.tickInterval }

// World returns a copy of the current world.
func (r *Runner) World() World {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Clone()
}

// Reroutes is the number of reroutes applied since the runner was created.
func (r *Runner) Reroutes() uint64 {
	return r.rerouted.Load()
}

// LastTickDuration is how long the latest Step took.
func (r *Runner) LastTickDuration() time.Duration {
	return time.Duration(r.lastTook.Load())
}

// LogAttrs returns the map and tick for log records. It never blocks on a
// running tick.
func (r *Runner) LogAttrs() []slog.Attr {
	m, _ := r.curMap.Load().(core.MapVariant)
	return []slog.Attr{
		slog.String("map", string(m)),
		slog.Uint64("tick", r.curTick.Load()),
	}
}

// Reset rebuilds the world on map m: a fresh fleet, new traffic and
// pedestrians, the first vehicle selected and an empty log.
func (r *Runner) Reset(m core.MapVariant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(m)
}

func (r *Runner) reset(m core.MapVariant) {
	r.engine.SetMapVariant(m)

	n := r.fleetSize
	if n <= 0 {
		n = defaultFleetSize(m)
	}
	vehicles := make([]core.Vehicle, 0, n)
	for i := range n {
		vehicles = append(vehicles, r.engine.CreateVehicle(util.PadID("AV", i+1), fleetStart(i), nil))
	}
	r.nextVehicle = n

	traffic := r.engine.GenerateTrafficConditions(r.trafficCount)
	peds := r.engine.GeneratePedestrians()
	r.pedCounter = len(peds)

	selected := r.initialSelected
	if selected < 0 || selected >= n {
		selected = 0
	}

	r.world = World{
		Map:         m,
		Vehicles:    vehicles,
		Traffic:     traffic,
		Pedestrians: peds,
		Selected:    selected,
	}
	r.engine.ClearLogs()
	r.publish()
	r.logger.Info("world reset", "map", string(m), "vehicles", n)
}

func defaultFleetSize(m core.MapVariant) int {
	if m == core.MapCity {
		return cityFleetSize
	}
	return warehouseFleetSize
}

func fleetStart(i int) core.Position {
	return core.Position{
		X: fleetOrigin + float64(i%fleetPerRow)*fleetSpacing,
		Y: fleetOrigin + float64(i/fleetPerRow)*fleetSpacing,
	}
}

func (r *Runner) publish() {
	r.curMap.Store(r.world.Map)
	r.curTick.Store(uint64(r.world.Tick))
}

// deltaMs is the simulated time covered by one tick.
func (r *Runner) deltaMs() float64 {
	return float64(r.tickInterval) / float64(time.Millisecond) * r.speed
}

// Step advances the world by one tick. Every vehicle is updated against the
// same pre-tick snapshot. On error the world is left unchanged.
func (r *Runner) Step(ctx context.Context) (World, error) {
	if err := ctx.Err(); err != nil {
		return World{}, err
	}
	started := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.autoRoam && r.world.Map == core.MapCity {
		r.roam()
	}

	snapshot := r.world.Clone()
	t := engine.Tick{
		Traffic:     snapshot.Traffic,
		Pedestrians: snapshot.Pedestrians,
		Vehicles:    snapshot.Vehicles,
		Selected:    snapshot.Selected,
		DeltaMs:     r.deltaMs(),
	}

	next := make([]core.Vehicle, len(snapshot.Vehicles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i := range snapshot.Vehicles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			next[i] = r.engine.UpdateVehicle(snapshot.Vehicles[i], t, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return r.world.Clone(), fmt.Errorf("tick %d: %w", r.world.Tick+1, err)
	}

	rerouted := 0
	for i, v := range next {
		if wasRerouted(snapshot.Vehicles[i], v) {
			rerouted++
		}
	}

	r.world.Vehicles = next
	r.world.Pedestrians = r.engine.UpdatePedestrians(snapshot.Pedestrians, t.DeltaMs)
	r.world.Tick++
	r.publish()

	took := time.Since(started)
	r.lastTook.Store(int64(took))
	attrs := metric.WithAttributes(attribute.String("map", string(r.world.Map)))
	r.ticks.Add(ctx, 1, attrs)
	if rerouted > 0 {
		r.rerouted.Add(uint64(rerouted))
		r.reroutes.Add(ctx, int64(rerouted), attrs)
	}
	r.duration.Record(ctx, float64(took)/float64(time.Millisecond), attrs)

	r.record()
	return r.world.Clone(), nil
}

// wasRerouted reports whether the tick from prev to next replaced the route
// for a reroute. A deferred reroute keeps the old route and does not count.
func wasRerouted(prev, next core.Vehicle) bool {
	return next.LastDecision.Kind == core.DecisionRerouting && !slices.Equal(prev.Route, next.Route)
}

// roam gives idle city vehicles a new random destination. The selected
// vehicle and vehicles heading to charge are left alone.
func (r *Runner) roam() {
	for i, v := range r.world.Vehicles {
		if i == r.world.Selected || v.LowBatteryMode {
			continue
		}
		if v.IsMoving && !v.Arrived() {
			continue
		}
		candidate := r.engine.AssignRandomDestination(v, r.world.Traffic, r.world.Pedestrians)
		if len(candidate.Route) > 1 {
			r.world.Vehicles[i] = candidate
		}
	}
}

// record forwards the tick to the recorder. Failures are only logged.
func (r *Runner) record() {
	if r.recorder == nil || r.recorder.Run() == nil {
		return
	}
	logs := r.engine.LogsSince(r.recorder.LastSeq())
	if err := r.recorder.RecordTick(r.world.Tick, r.now(), r.world.Map, r.world.Vehicles, logs); err != nil {
		r.logger.Warn("failed to record tick", "error", err)
	}
}

// Run steps the world every tick interval until ctx is done or maxTicks
// ticks have run. maxTicks <= 0 runs until cancelled.
func (r *Runner) Run(ctx context.Context, maxTicks int) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}
