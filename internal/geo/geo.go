// Package geo holds the planar geometry used by the planner and the engine.
// Every function is pure and safe for concurrent use.
package geo

import (
	"math"

	"github.com/avnav/fleetsim/pkg/core"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, Width, Height float64
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b core.Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Heuristic is the octile distance, exact for 8-way movement on a grid.
func Heuristic(a, b core.Position) float64 {
	dx := math.Abs(a.X - b.X)
	dy := math.Abs(a.Y - b.Y)
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

// PointInRect reports whether p lies in r grown by buffer on every side.
// Edges are inclusive.
func PointInRect(p core.Position, r Rect, buffer float64) bool {
	return p.X >= r.X-buffer &&
		p.X <= r.X+r.Width+buffer &&
		p.Y >= r.Y-buffer &&
		p.Y <= r.Y+r.Height+buffer
}

// DistanceToRect is zero inside r and the Euclidean gap to r otherwise.
func DistanceToRect(p core.Position, r Rect) float64 {
	dx := math.Max(math.Max(r.X-p.X, 0), p.X-(r.X+r.Width))
	dy := math.Max(math.Max(r.Y-p.Y, 0), p.Y-(r.Y+r.Height))
	return math.Hypot(dx, dy)
}

func cross(o, a, b core.Position) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(p, q, r core.Position) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

func orientation(p, q, r core.Position) int {
	v := cross(p, q, r)
	switch {
	case math.Abs(v) < Epsilon:
		return 0
	case v > 0:
		return 1
	default:
		return 2
	}
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 share a point.
// Touching endpoints and collinear overlap count as intersections.
func SegmentsIntersect(a1, a2, b1, b2 core.Position) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a1, b1, a2) {
		return true
	}
	if o2 == 0 && onSegment(a1, b2, a2) {
		return true
	}
	if o3 == 0 && onSegment(b1, a1, b2) {
		return true
	}
	return o4 == 0 && onSegment(b1, a2, b2)
}

// closestOnSegment projects p onto a-b, clamped to the segment.
func closestOnSegment(p, a, b core.Position) core.Position {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 < Epsilon {
		return a
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return core.Position{X: a.X + t*dx, Y: a.Y + t*dy}
}

// PointSegmentDistance returns the distance from p to segment a-b.
func PointSegmentDistance(p, a, b core.Position) float64 {
	return Distance(p, closestOnSegment(p, a, b))
}

// MinDistanceBetweenSegments returns the smallest distance between any point
// of p1-p2 and any point of q1-q2. It is symmetric in its two segments.
func MinDistanceBetweenSegments(p1, p2, q1, q2 core.Position) float64 {
	if SegmentsIntersect(p1, p2, q1, q2) {
		return 0
	}
	// Without an intersection the minimum is attained at an endpoint.
	return math.Min(
		math.Min(PointSegmentDistance(p1, q1, q2), PointSegmentDistance(p2, q1, q2)),
		math.Min(PointSegmentDistance(q1, p1, p2), PointSegmentDistance(q2, p1, p2)),
	)
}

// Direction returns the unit vector from a to b, or zeros when they coincide.
func Direction(from, to core.Position) (float64, float64, bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	l := math.Hypot(dx, dy)
	if l < Epsilon {
		return 0, 0, false
	}
	return dx / l, dy / l, true
}

// MoveToward steps from toward to by at most maxDist without overshooting.
func MoveToward(from, to core.Position, maxDist float64) core.Position {
	d := Distance(from, to)
	if d <= maxDist || d < Epsilon {
		return to
	}
	if maxDist <= 0 {
		return from
	}
	f := maxDist / d
	return core.Position{X: from.X + (to.X-from.X)*f, Y: from.Y + (to.Y-from.Y)*f}
}

// Lerp interpolates between a and b at t in [0,1].
func Lerp(a, b core.Position, t float64) core.Position {
	return core.Position{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// InBounds reports whether p lies in [0,w) x [0,h).
func InBounds(p core.Position, w, h float64) bool {
	return p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h
}
