// Package planner finds cost-weighted routes across a map with A*.
//
// The search expands eight fixed-length moves from continuous points rather
// than snapping to a grid, so nodes are deduplicated by their exact
// coordinates. Edge costs fold in traffic, pedestrians and the vehicle's own
// condition; see EdgeCost.
package planner

import (
	"container/heap"
	"log/slog"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	DefaultStepSize      = 5.0
	DefaultMaxIterations = 500_000

	// BuildingBuffer is the margin around city buildings the search keeps.
	BuildingBuffer = 20.0
	// goalTolerance is measured in steps.
	goalTolerance = 5.0
	// goalSnap is the distance under which the exact goal is not appended.
	goalSnap = 1.0
)

// Request carries everything one search depends on.
type Request struct {
	Start       core.Position
	Goal        core.Position
	Traffic     []core.TrafficCondition
	Pedestrians []core.Pedestrian
	Params      core.VehicleParameters
	Map         core.MapVariant
}

// Option configures a Planner.
type Option func(*Planner)

// WithStepSize sets the move length.
func WithStepSize(step float64) Option {
	return func(p *Planner) {
		if step > 0 {
			p.step = step
		}
	}
}

// WithMaxIterations caps the number of nodes popped per search.
func WithMaxIterations(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// WithLayout replaces the obstacle layout used for l.Variant.
func WithLayout(l *obstacle.Layout) Option {
	return func(p *Planner) {
		p.layouts[l.Variant] = l
	}
}

// WithLogger sets the logger used for search diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Planner is stateless between calls and safe for concurrent use.
type Planner struct {
	step          float64
	maxIterations int
	layouts       map[core.MapVariant]*obstacle.Layout
	logger        *slog.Logger
}

// New creates a planner over the static map layouts.
func New(opts ...Option) *Planner {
	p := &Planner{
		step:          DefaultStepSize,
		maxIterations: DefaultMaxIterations,
		layouts: map[core.MapVariant]*obstacle.Layout{
			core.MapCity:      obstacle.City(),
			core.MapWarehouse: obstacle.Warehouse(),
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StepSize returns the move length.
func (p *Planner) StepSize() float64 { return p.step }

// Layout returns the obstacle layout searched for a variant.
func (p *Planner) Layout(m core.MapVariant) *obstacle.Layout {
	if l, ok := p.layouts[m]; ok {
		return l
	}
	return p.layouts[core.MapWarehouse]
}

type node struct {
	pos    core.Position
	g      float64
	parent int32
}

type openItem struct {
	f   float64
	seq uint64
	idx int32
}

// openSet orders by f, then by insertion so equal-cost ties are stable.
type openSet []openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any) { *o = append(*o, x.(openItem)) }
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}

// searchResult is the raw lattice path before smoothing.
type searchResult struct {
	path []core.Position
	g    float64
	f    float64
}

// FindPath returns a smoothed route from req.Start to req.Goal, or nil when
// no route exists within the iteration cap. The first point is the start and
// the last is the exact goal.
func (p *Planner) FindPath(req Request) []core.Position {
	res, ok := p.search(req)
	if !ok {
		return nil
	}
	return p.finish(res.path, req)
}

func (p *Planner) search(req Request) (searchResult, bool) {
	layout := p.Layout(req.Map)
	tolerance := goalTolerance * p.step

	arena := []node{{pos: req.Start, parent: -1}}
	open := &openSet{{f: geo.Heuristic(req.Start, req.Goal), idx: 0}}
	gScore := map[core.Position]float64{req.Start: 0}
	closed := make(map[core.Position]struct{})
	var seq uint64 = 1

	for iterations := 0; open.Len() > 0 && iterations < p.maxIterations; iterations++ {
		cur := heap.Pop(open).(openItem)
		n := arena[cur.idx]

		if _, done := closed[n.pos]; done {
			continue
		}

		if p.reachesGoal(n.pos, req.Goal, tolerance, layout) {
			return searchResult{path: reconstruct(arena, cur.idx), g: n.g, f: cur.f}, true
		}

		closed[n.pos] = struct{}{}

		for _, next := range p.neighbors(n.pos, layout) {
			if _, done := closed[next]; done {
				continue
			}

			g := n.g + p.edgeCost(n.pos, next, req, layout)
			if old, seen := gScore[next]; seen && g >= old {
				continue
			}
			gScore[next] = g

			arena = append(arena, node{pos: next, g: g, parent: cur.idx})
			heap.Push(open, openItem{f: g + geo.Heuristic(next, req.Goal), seq: seq, idx: int32(len(arena) - 1)})
			seq++
		}
	}

	p.logger.Debug("no path found",
		"start", req.Start, "goal", req.Goal, "map", req.Map, "expanded", len(closed))
	return searchResult{}, false
}

// reachesGoal reports whether the route may end at pos: close enough to the
// goal and with a clear, drivable straight leg onto it.
func (p *Planner) reachesGoal(pos, goal core.Position, tolerance float64, layout *obstacle.Layout) bool {
	d := geo.Distance(pos, goal)
	if d >= tolerance {
		return false
	}
	return d <= goalSnap || (p.clearSegment(pos, goal, nil, layout) && layout.SegmentDrivable(pos, goal))
}

func reconstruct(arena []node, idx int32) []core.Position {
	var path []core.Position
	for i := idx; i >= 0; i = arena[i].parent {
		path = append(path, arena[i].pos)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// finish appends the exact goal and smooths the route.
func (p *Planner) finish(path []core.Position, req Request) []core.Position {
	if geo.Distance(path[len(path)-1], req.Goal) > goalSnap {
		path = append(path, req.Goal)
	}
	return p.Smooth(path, req)
}

// neighbors returns the admissible moves from pos in a fixed order.
func (p *Planner) neighbors(pos core.Position, layout *obstacle.Layout) []core.Position {
	out := make([]core.Position, 0, 8)

	insideBuilding := layout.Variant == core.MapCity && layout.IsInAnyBuilding(pos, BuildingBuffer)
	// Moves out of a storage margin are allowed; moves that start clear
	// must stay clear along their whole length.
	clearStart := !layout.IsInAnyStorageUnit(pos, obstacle.StorageGap)

	for dx := -1.0; dx <= 1; dx++ {
		for dy := -1.0; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			next := core.Position{X: pos.X + dx*p.step, Y: pos.Y + dy*p.step}
			if !geo.InBounds(next, layout.Width, layout.Height) {
				continue
			}

			switch layout.Variant {
			case core.MapCity:
				// Once inside a building the search may move freely to get out.
				if !insideBuilding && layout.IsInAnyBuilding(next, BuildingBuffer) {
					continue
				}
			default:
				if layout.IsInAnyStorageUnit(next, obstacle.StorageGap) ||
					segmentHitsStorage(pos, next, layout) ||
					(clearStart && !layout.SegmentDrivable(pos, next)) {
					continue
				}
			}

			out = append(out, next)
		}
	}
	return out
}

const segmentSamples = 10

func segmentHitsStorage(a, b core.Position, layout *obstacle.Layout) bool {
	for i := 1; i <= segmentSamples; i++ {
		if layout.IsInAnyStorageUnit(geo.Lerp(a, b, float64(i)/segmentSamples), obstacle.StorageGap) {
			return true
		}
	}
	return false
}
