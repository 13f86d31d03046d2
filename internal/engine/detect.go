package engine

import (
	"math"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	// Detection cone ahead of a vehicle.
	detectionRange = 80.0
	coneHalfWidth  = 15.0

	stopDistance = 8.0
	// pedestrianHorizonMs is how far ahead paths are projected when looking
	// for a crossing pedestrian.
	pedestrianHorizonMs = 1000.0

	collisionStepMs   = 100.0
	collisionWindowMs = 2000.0
	collisionDistance = 30.0

	// minPredictionSpeed keeps stopped vehicles projecting forward.
	minPredictionSpeed = 0.1

	pathSamples        = 20
	lookaheadWaypoints = 5
)

type pedestrianOutcome int

const (
	pedestrianNone pedestrianOutcome = iota
	pedestrianDetected
	pedestrianSlow
	pedestrianStop
)

type pedestrianCheck struct {
	outcome  pedestrianOutcome
	id       string
	distance float64
}

// inCone reports whether p lies in the detection cone starting at from and
// facing (dx, dy), and returns its distance.
func inCone(from core.Position, dx, dy float64, p core.Position) (float64, bool) {
	rx, ry := p.X-from.X, p.Y-from.Y
	dist := math.Hypot(rx, ry)
	if dist > detectionRange {
		return dist, false
	}
	if rx*dx+ry*dy < 0 {
		return dist, false
	}
	return dist, math.Abs(rx*dy-ry*dx) < coneHalfWidth
}

// heading returns the unit direction toward the next waypoint.
func heading(v core.Vehicle) (float64, float64, bool) {
	if v.CurrentRouteIndex+1 >= len(v.Route) {
		return 0, 0, false
	}
	return geo.Direction(v.Position, v.Route[v.CurrentRouteIndex+1])
}

// checkPedestrians classifies the most urgent pedestrian in front of v.
func checkPedestrians(v core.Vehicle, peds []core.Pedestrian) pedestrianCheck {
	dx, dy, ok := heading(v)
	if !ok {
		return pedestrianCheck{}
	}
	speed := math.Max(v.Parameters.Speed, minPredictionSpeed)
	reach := speed * pedestrianHorizonMs / 1000
	vehicleEnd := core.Position{X: v.Position.X + dx*reach, Y: v.Position.Y + dy*reach}

	var best pedestrianCheck
	for _, ped := range peds {
		if dist, ahead := inCone(v.Position, dx, dy, ped.Position); ahead {
			if dist <= stopDistance {
				return pedestrianCheck{outcome: pedestrianStop, id: ped.ID, distance: dist}
			}
			if best.outcome < pedestrianSlow || dist < best.distance {
				best = pedestrianCheck{outcome: pedestrianSlow, id: ped.ID, distance: dist}
			}
			continue
		}

		if best.outcome >= pedestrianDetected {
			continue
		}
		px, py, moving := geo.Direction(ped.Position, ped.Destination)
		if !moving {
			continue
		}
		step := ped.Speed * pedestrianHorizonMs / 1000
		pedEnd := core.Position{X: ped.Position.X + px*step, Y: ped.Position.Y + py*step}
		if geo.SegmentsIntersect(v.Position, vehicleEnd, ped.Position, pedEnd) {
			best = pedestrianCheck{
				outcome:  pedestrianDetected,
				id:       ped.ID,
				distance: geo.Distance(v.Position, ped.Position),
			}
		}
	}
	return best
}

// vehicleAhead returns the nearest other vehicle in the detection cone.
func vehicleAhead(v core.Vehicle, others []core.Vehicle, self int) (core.Vehicle, bool) {
	dx, dy, ok := heading(v)
	if !ok {
		return core.Vehicle{}, false
	}
	var (
		found core.Vehicle
		hit   bool
		best  = math.Inf(1)
	)
	for i, o := range others {
		if i == self || o.ID == v.ID {
			continue
		}
		if dist, ahead := inCone(v.Position, dx, dy, o.Position); ahead && dist < best {
			found, best, hit = o, dist, true
		}
	}
	return found, hit
}

// trafficAt returns the first zone whose radius contains p.
func trafficAt(p core.Position, traffic []core.TrafficCondition) (core.TrafficCondition, bool) {
	for _, z := range traffic {
		if geo.Distance(p, z.Position) <= z.AffectedRadius {
			return z, true
		}
	}
	return core.TrafficCondition{}, false
}

// PredictVehiclePosition walks v along its remaining route for ms
// milliseconds at its current speed. Stopped vehicles still creep forward at
// a tiny speed so that a projection always has a direction.
func PredictVehiclePosition(v core.Vehicle, ms float64) core.Position {
	speed := math.Max(v.Parameters.Speed, minPredictionSpeed)
	remaining := speed * ms / 1000
	pos := v.Position
	for i := v.CurrentRouteIndex + 1; i < len(v.Route) && remaining > 0; i++ {
		d := geo.Distance(pos, v.Route[i])
		if d >= remaining {
			return geo.MoveToward(pos, v.Route[i], remaining)
		}
		remaining -= d
		pos = v.Route[i]
	}
	return pos
}

// predictCollision projects v and every other vehicle forward in fixed steps
// and reports the first vehicle whose projected track comes too close.
func predictCollision(v core.Vehicle, others []core.Vehicle, self int) (core.Vehicle, float64, bool) {
	for i, o := range others {
		if i == self || o.ID == v.ID {
			continue
		}
		prevSelf, prevOther := v.Position, o.Position
		for ms := collisionStepMs; ms <= collisionWindowMs; ms += collisionStepMs {
			nextSelf := PredictVehiclePosition(v, ms)
			nextOther := PredictVehiclePosition(o, ms)
			if geo.MinDistanceBetweenSegments(prevSelf, nextSelf, prevOther, nextOther) < collisionDistance {
				return o, ms, true
			}
			prevSelf, prevOther = nextSelf, nextOther
		}
	}
	return core.Vehicle{}, 0, false
}

// vehiclesAsPedestrians turns other vehicles into blocking obstacles the
// planner steers around.
func vehiclesAsPedestrians(others []core.Vehicle, self int) []core.Pedestrian {
	out := make([]core.Pedestrian, 0, len(others))
	for i, o := range others {
		if i == self {
			continue
		}
		out = append(out, core.Pedestrian{
			ID:          o.ID,
			Position:    o.Position,
			Destination: o.Position,
			IsBlocking:  true,
		})
	}
	return out
}

// segmentBlocked samples a-b and reports whether any sample falls inside a
// blocker grown by buffer.
func segmentBlocked(a, b core.Position, layout *obstacle.Layout, buffer float64) bool {
	for i := 0; i <= pathSamples; i++ {
		if layout.Blocked(geo.Lerp(a, b, float64(i)/pathSamples), buffer) {
			return true
		}
	}
	return false
}

// buildingAhead returns the index of the first of the next few waypoints
// whose leg from the previous point enters a building, or -1.
func buildingAhead(v core.Vehicle, layout *obstacle.Layout, gap float64) int {
	from := v.Position
	end := min(len(v.Route), v.CurrentRouteIndex+1+lookaheadWaypoints)
	for i := v.CurrentRouteIndex + 1; i < end; i++ {
		if segmentBlocked(from, v.Route[i], layout, gap) {
			return i
		}
		from = v.Route[i]
	}
	return -1
}
