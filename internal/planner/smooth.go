package planner

import (
	"math"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	// CityLOSBuffer is the building margin of a city line of sight.
	CityLOSBuffer = 5.0
	// maxLookahead bounds how many points one shortcut may skip per pass.
	maxLookahead = 3
)

// Smooth removes intermediate points that have line of sight past them.
// Each pass jumps from the current anchor to the farthest of the next
// maxLookahead points it can see and drive to, but never straight onto the
// final point.
// Passes repeat until nothing changes, so smoothing a smoothed path is a
// no-op. The first and last points are always kept.
func (p *Planner) Smooth(path []core.Position, req Request) []core.Position {
	out := make([]core.Position, len(path))
	copy(out, path)
	if len(out) <= 2 {
		return out
	}

	layout := p.Layout(req.Map)
	for {
		next := p.smoothPass(out, req.Traffic, layout)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
}

func (p *Planner) smoothPass(path []core.Position, traffic []core.TrafficCondition, layout *obstacle.Layout) []core.Position {
	n := len(path)
	out := []core.Position{path[0]}

	for current := 0; current < n-1; {
		farthest := current + 1
		for i := current + 2; i < n; i++ {
			if i-current > maxLookahead || i == n-1 {
				break
			}
			if !p.clearSegment(path[current], path[i], traffic, layout) ||
				!layout.SegmentDrivable(path[current], path[i]) {
				break
			}
			farthest = i
		}
		out = append(out, path[farthest])
		current = farthest
	}

	return out
}

// HasLineOfSight samples a-b at step resolution and reports whether every
// interior sample is on the map and clear of the variant's obstacles.
func (p *Planner) HasLineOfSight(a, b core.Position, m core.MapVariant) bool {
	return p.clearSegment(a, b, nil, p.Layout(m))
}

func (p *Planner) clearSegment(a, b core.Position, traffic []core.TrafficCondition, layout *obstacle.Layout) bool {
	steps := int(math.Ceil(geo.Distance(a, b) / p.step))
	for i := 1; i < steps; i++ {
		q := geo.Lerp(a, b, float64(i)/float64(steps))
		if !geo.InBounds(q, layout.Width, layout.Height) {
			return false
		}
		if layout.Variant == core.MapCity {
			if layout.IsInAnyBuilding(q, CityLOSBuffer) {
				return false
			}
		} else if layout.IsInAnyStorageUnit(q, obstacle.StorageGap) {
			return false
		}
		// Shortcuts stay out of high-severity zones.
		for _, t := range traffic {
			if t.Severity == core.SeverityHigh && geo.Distance(q, t.Position) <= t.AffectedRadius {
				return false
			}
		}
	}
	return true
}
