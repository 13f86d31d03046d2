// Package obstacle defines the static rectangles of each map variant and the
// membership queries the planner and the engine run against them.
package obstacle

import (
	"math"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/paulmach/orb"
)

const (
	// MapWidth and MapHeight bound every map variant.
	MapWidth  = 800.0
	MapHeight = 600.0

	// SpawnBuffer keeps placed agents and retargeted waypoints off obstacle edges.
	SpawnBuffer = 10.0
	// StorageGap is the clearance vehicles keep from storage units.
	StorageGap = 8.0
	// BuildingMotionGap is the building margin every move is checked against.
	BuildingMotionGap = 10.0
	// TourOffset is how far left of a storage unit a tour stops.
	TourOffset = 12.0
)

// Rect is a named axis-aligned obstacle or road corridor.
type Rect struct {
	ID    string
	Name  string
	Bound orb.Bound
}

// NewRect builds a rectangle from its top-left corner and size.
func NewRect(id, name string, x, y, w, h float64) Rect {
	return Rect{
		ID:    id,
		Name:  name,
		Bound: orb.Bound{Min: orb.Point{x, y}, Max: orb.Point{x + w, y + h}},
	}
}

// Contains reports whether p lies inside r grown by buffer. Edges are inclusive.
func (r Rect) Contains(p core.Position, buffer float64) bool {
	return r.Bound.Pad(buffer).Contains(orb.Point{p.X, p.Y})
}

// Geo returns r in the geometry package's representation.
func (r Rect) Geo() geo.Rect {
	return geo.Rect{
		X:      r.Bound.Min[0],
		Y:      r.Bound.Min[1],
		Width:  r.Bound.Max[0] - r.Bound.Min[0],
		Height: r.Bound.Max[1] - r.Bound.Min[1],
	}
}

// Center returns the middle of r.
func (r Rect) Center() core.Position {
	c := r.Bound.Center()
	return core.Position{X: c[0], Y: c[1]}
}

// Corners returns the corners of r grown by pad, clockwise from the top-left.
func (r Rect) Corners(pad float64) [4]core.Position {
	b := r.Bound.Pad(pad)
	return [4]core.Position{
		{X: b.Min[0], Y: b.Min[1]},
		{X: b.Max[0], Y: b.Min[1]},
		{X: b.Max[0], Y: b.Max[1]},
		{X: b.Min[0], Y: b.Max[1]},
	}
}

// SegmentHits reports whether segment a-b touches r grown by buffer.
func (r Rect) SegmentHits(a, b core.Position, buffer float64) bool {
	if r.Contains(a, buffer) || r.Contains(b, buffer) {
		return true
	}
	c := r.Corners(buffer)
	for i := range c {
		if geo.SegmentsIntersect(a, b, c[i], c[(i+1)%4]) {
			return true
		}
	}
	return false
}

// Approach returns the tour stop in front of a storage unit: TourOffset left
// of its left edge, vertically centred.
func (r Rect) Approach() core.Position {
	return core.Position{X: r.Bound.Min[0] - TourOffset, Y: r.Center().Y}
}

// Layout is the full obstacle set of one map variant. Layouts are read-only
// after construction and safe for concurrent use.
type Layout struct {
	Variant      core.MapVariant
	Width        float64
	Height       float64
	Buildings    []Rect
	Roads        []Rect
	StorageUnits []Rect
}

// IsOnAnyRoad reports whether p lies on a road corridor.
func (l *Layout) IsOnAnyRoad(p core.Position) bool {
	for _, r := range l.Roads {
		if r.Contains(p, 0) {
			return true
		}
	}
	return false
}

// IsInAnyBuilding reports whether p lies inside a building grown by buffer.
func (l *Layout) IsInAnyBuilding(p core.Position, buffer float64) bool {
	for _, r := range l.Buildings {
		if r.Contains(p, buffer) {
			return true
		}
	}
	return false
}

// IsInAnyStorageUnit reports whether p lies within gap of a storage unit.
func (l *Layout) IsInAnyStorageUnit(p core.Position, gap float64) bool {
	for _, r := range l.StorageUnits {
		if r.Contains(p, gap) {
			return true
		}
	}
	return false
}

// Blockers returns the rectangles vehicles may not enter on this variant.
func (l *Layout) Blockers() []Rect {
	if l.Variant == core.MapCity {
		return l.Buildings
	}
	return l.StorageUnits
}

// Blocked reports whether p is inside any blocker grown by buffer.
func (l *Layout) Blocked(p core.Position, buffer float64) bool {
	for _, r := range l.Blockers() {
		if r.Contains(p, buffer) {
			return true
		}
	}
	return false
}

// MotionGap is the blocker margin a moving vehicle keeps on this variant.
func (l *Layout) MotionGap() float64 {
	if l.Variant == core.MapCity {
		return BuildingMotionGap
	}
	return StorageGap
}

// SegmentDrivable reports whether the straight move a-b stays outside every
// blocker grown by MotionGap. The test is exact, so any sampling of the
// segment is clear as well.
func (l *Layout) SegmentDrivable(a, b core.Position) bool {
	gap := l.MotionGap()
	for _, r := range l.Blockers() {
		if r.SegmentHits(a, b, gap) {
			return false
		}
	}
	return true
}

// Clear reports whether p is on the map and at least SpawnBuffer from every blocker.
func (l *Layout) Clear(p core.Position) bool {
	return geo.InBounds(p, l.Width, l.Height) && !l.Blocked(p, SpawnBuffer)
}

// Placeable reports whether an agent may be placed at p. City placements
// must also be on a road.
func (l *Layout) Placeable(p core.Position) bool {
	if !l.Clear(p) {
		return false
	}
	if l.Variant == core.MapCity && len(l.Roads) > 0 {
		return l.IsOnAnyRoad(p)
	}
	return true
}

// Clearance is the distance from p to the nearest blocker edge.
func (l *Layout) Clearance(p core.Position) float64 {
	best := math.Hypot(l.Width, l.Height)
	for _, r := range l.Blockers() {
		best = math.Min(best, geo.DistanceToRect(p, r.Geo()))
	}
	return best
}

// FirstBlockerOnSegment returns the blocker grown by buffer that segment a-b
// touches closest to a.
func (l *Layout) FirstBlockerOnSegment(a, b core.Position, buffer float64) (Rect, bool) {
	var (
		found Rect
		ok    bool
		best  = math.Inf(1)
	)
	for _, r := range l.Blockers() {
		if !r.SegmentHits(a, b, buffer) {
			continue
		}
		if d := geo.DistanceToRect(a, r.Geo()); d < best {
			best, found, ok = d, r, true
		}
	}
	return found, ok
}

// StorageUnit looks up a storage unit by ID.
func (l *Layout) StorageUnit(id string) (Rect, bool) {
	for _, r := range l.StorageUnits {
		if r.ID == id {
			return r, true
		}
	}
	return Rect{}, false
}

// NearestValid returns the placeable candidate closest to p. Candidates are
// road centre lines on city maps and a 10-unit lattice elsewhere.
func (l *Layout) NearestValid(p core.Position) (core.Position, bool) {
	var (
		best  core.Position
		found bool
		bestD = math.Inf(1)
	)
	consider := func(c core.Position) {
		if !l.Placeable(c) {
			return
		}
		if d := geo.Distance(p, c); d < bestD {
			best, bestD, found = c, d, true
		}
	}

	if l.Variant == core.MapCity && len(l.Roads) > 0 {
		for _, r := range l.Roads {
			c := r.Center()
			w := r.Bound.Max[0] - r.Bound.Min[0]
			h := r.Bound.Max[1] - r.Bound.Min[1]
			if w >= h {
				for x := r.Bound.Min[0]; x <= r.Bound.Max[0]; x += 10 {
					consider(core.Position{X: x, Y: c.Y})
				}
			} else {
				for y := r.Bound.Min[1]; y <= r.Bound.Max[1]; y += 10 {
					consider(core.Position{X: c.X, Y: y})
				}
			}
		}
		return best, found
	}

	for x := 5.0; x < l.Width; x += 10 {
		for y := 5.0; y < l.Height; y += 10 {
			consider(core.Position{X: x, Y: y})
		}
	}
	return best, found
}
