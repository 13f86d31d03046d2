package engine

import (
	"fmt"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	waypointReach = 1.0

	// Speed ranges drawn when an obstacle forces a vehicle to slow down.
	pedestrianSlowMin = 8.0
	pedestrianSlowMax = 12.0
	obstacleSlowMin   = 15.0
	obstacleSlowMax   = 25.0

	tirePressureFloor = 60.0
	tireWearJitter    = 0.05
)

// UpdateVehicle advances v by one tick and returns the new state. The input
// is not modified. index is v's position in t.Vehicles.
//
// Checks run in a fixed order: pedestrians, slow-downs for vehicles and
// traffic, reroute triggers, building lookahead (city), collision prediction
// for the selected vehicle, then motion, wear and arrival. A pedestrian stop
// or an unrecoverable blockage ends the tick early.
func (e *Engine) UpdateVehicle(in core.Vehicle, t Tick, index int) core.Vehicle {
	v := in.Clone()
	variant := e.MapVariant()
	layout := e.planner.Layout(variant)

	if len(v.Route) == 0 {
		v.Route = []core.Position{v.Position}
		v.CurrentRouteIndex = 0
	}
	if v.CurrentRouteIndex < 0 || v.CurrentRouteIndex >= len(v.Route) {
		e.record(v.ID, core.EventInvalidState, v.Position,
			"route index %d out of range for %d waypoints", v.CurrentRouteIndex, len(v.Route))
		v.CurrentRouteIndex = max(0, min(v.CurrentRouteIndex, len(v.Route)-1))
		v.IsMoving = false
		return v
	}

	var (
		decided    bool
		overridden bool
		override   float64
	)
	slowTo := func(speed float64) {
		if !overridden || speed < override {
			override, overridden = speed, true
		}
	}

	switch ped := checkPedestrians(v, t.Pedestrians); ped.outcome {
	case pedestrianStop:
		v.Parameters.Speed = 0
		v.IsMoving = false
		e.transition(&v, core.StoppedForPedestrian(), core.EventPedestrianStop,
			"stopped for pedestrian %s %.1f units ahead", ped.id, ped.distance)
		return v
	case pedestrianSlow:
		slowTo(e.randRange(pedestrianSlowMin, pedestrianSlowMax))
		e.transition(&v, core.SlowingForPedestrian(), core.EventPedestrianSlow,
			"slowing for pedestrian %s %.1f units ahead", ped.id, ped.distance)
		decided = true
	case pedestrianDetected:
		e.transition(&v, core.PedestrianAhead(), core.EventPedestrianDetected,
			"pedestrian %s about to cross", ped.id)
		decided = true
	}

	if t.isSelected(index) && variant == core.MapCity {
		if other, ok := vehicleAhead(v, t.Vehicles, index); ok {
			slowTo(e.randRange(obstacleSlowMin, obstacleSlowMax))
			e.logger.Debug("vehicle ahead", "vehicle", v.ID, "other", other.ID)
		}
	}
	if z, ok := trafficAt(v.Position, t.Traffic); ok {
		slowTo(e.randRange(obstacleSlowMin, obstacleSlowMax))
		e.logger.Debug("in traffic zone", "vehicle", v.ID, "severity", z.Severity.String())
	}

	if dec := e.shouldReroute(v, t, variant); dec.Needed {
		route, notes := dec.Route, dec.notes
		if !dec.Precomputed {
			route, notes = e.rebuildRoute(v, t.Traffic, t.Pedestrians, variant)
		}
		switch {
		case len(route) > 1:
			e.writeNotes(v, notes)
			e.applyRoute(&v, route, dec.Reason, dec.Event, dec.Details)
			decided = true
		case dec.Precomputed:
			e.writeNotes(v, notes)
			e.halt(&v, core.CauseBuilding, "no route around the building")
			return v
		default:
			// Retried every tick; logged once.
			if v.LastDecision != core.RerouteDeferred(dec.Reason) {
				e.writeNotes(v, notes)
				e.record(v.ID, dec.Event, v.Position, "%s", dec.Details)
				e.record(v.ID, core.EventRerouteDeferred, v.Position,
					"no alternative route for %s, keeping current route", dec.Reason)
			}
			v.LastDecision = core.RerouteDeferred(dec.Reason)
			decided = true
		}
	}

	gap := layout.MotionGap()

	if variant == core.MapCity && !v.Arrived() {
		if i := buildingAhead(v, layout, gap); i >= 0 {
			route, notes := e.rebuildRoute(v, t.Traffic, t.Pedestrians, variant)
			e.writeNotes(v, notes)
			if len(route) <= 1 {
				e.halt(&v, core.CauseBuilding, fmt.Sprintf("building between waypoints %d and %d", i-1, i))
				return v
			}
			e.applyRoute(&v, route, core.ReasonBuildingInPath, core.EventBuildingAvoid,
				fmt.Sprintf("building ahead of waypoint %d", i))
			decided = true
		}
	}

	if t.isSelected(index) && !v.Arrived() {
		if other, ms, ok := predictCollision(v, t.Vehicles, index); ok {
			peds := append(append([]core.Pedestrian(nil), t.Pedestrians...), vehiclesAsPedestrians(t.Vehicles, index)...)
			route, notes := e.rebuildRoute(v, t.Traffic, peds, variant)
			e.writeNotes(v, notes)
			if len(route) <= 1 {
				e.halt(&v, core.CauseCollisionRisk, fmt.Sprintf("no route clear of %s", other.ID))
				return v
			}
			e.applyRoute(&v, route, core.ReasonCollisionRisk, core.EventCollisionAvoid,
				fmt.Sprintf("predicted conflict with %s in %.0f ms", other.ID, ms))
			decided = true
		}
	}

	if !v.Arrived() {
		v.IsMoving = true
		target := v.Route[v.CurrentRouteIndex+1]
		speed := v.Parameters.Speed
		if overridden {
			speed = override
		} else if speed <= 0 {
			speed = DerivedSpeed(v.Parameters)
		}
		next := geo.MoveToward(v.Position, target, speed*t.DeltaMs/1000)

		if segmentBlocked(v.Position, next, layout, gap) {
			if variant != core.MapCity {
				v.IsMoving = false
				e.transition(&v, core.Unreachable(core.CauseStorageUnit), core.EventStorageUnitBlocked,
					"storage unit between %s and %s", v.Position, target)
				return v
			}
			route, notes := e.rebuildRoute(v, t.Traffic, t.Pedestrians, variant)
			e.writeNotes(v, notes)
			if len(route) <= 1 {
				e.halt(&v, core.CauseBuilding, "building blocks the next move")
				return v
			}
			e.applyRoute(&v, route, core.ReasonBuildingInPath, core.EventBuildingAvoid, "building blocks the next move")
			return v
		}

		from := v.Position
		moved := geo.Distance(from, next)
		v.Position = next
		v.TotalDistance += moved
		if geo.Distance(next, target) < waypointReach {
			v.CurrentRouteIndex++
			v.LastDecision = core.ReachedWaypoint(v.CurrentRouteIndex)
		} else if !decided && resumes(v.LastDecision) {
			v.LastDecision = core.Moving()
		}
		e.wear(&v, from, moved, t.Traffic)
		if overridden {
			v.Parameters.Speed = override
		}
	}

	if v.Arrived() {
		wasMoving := v.IsMoving
		v.IsMoving = false
		v.Parameters.Speed = 0
		if wasMoving {
			e.transition(&v, core.DestinationReached(), core.EventDestinationReached,
				"arrived at %s", v.Destination())
			e.arrived(v)
		}
	}
	return v
}

// resumes reports whether a plain Moving decision replaces d once the
// condition behind d has passed.
func resumes(d core.Decision) bool {
	switch d.Kind {
	case core.DecisionRerouting, core.DecisionReachedWaypoint, core.DecisionMoving:
		return false
	default:
		return true
	}
}

// transition sets v's decision and logs event when the decision changed.
func (e *Engine) transition(v *core.Vehicle, d core.Decision, event core.EventCode, format string, args ...any) {
	if v.LastDecision != d {
		e.record(v.ID, event, v.Position, format, args...)
	}
	v.LastDecision = d
}

func (e *Engine) applyRoute(v *core.Vehicle, route []core.Position, reason core.RerouteReason, event core.EventCode, details string) {
	v.Route = route
	v.CurrentRouteIndex = 0
	v.IsMoving = len(route) > 1
	e.transition(v, core.Rerouting(reason), event, "%s", details)
}

func (e *Engine) halt(v *core.Vehicle, cause core.UnreachableCause, details string) {
	v.IsMoving = false
	e.transition(v, core.Unreachable(cause), core.EventUnreachable, "%s", details)
}

func (e *Engine) writeNotes(v core.Vehicle, notes []note) {
	for _, n := range notes {
		e.record(v.ID, n.event, v.Position, "%s", n.details)
	}
}

// wear applies mileage, battery drain and tire wear for a move of moved
// units starting at from, then re-derives the speed.
func (e *Engine) wear(v *core.Vehicle, from core.Position, moved float64, traffic []core.TrafficCondition) {
	p := &v.Parameters
	p.Mileage += moved / 1000

	rate := p.FuelConsumptionPerBlock
	for _, z := range traffic {
		if geo.Distance(from, z.Position) > z.AffectedRadius {
			continue
		}
		switch z.Severity {
		case core.SeverityHigh:
			rate *= 1.8
		case core.SeverityMedium:
			rate *= 1.4
		default:
			rate *= 1.1
		}
	}
	p.BatteryPercentage = max(0, p.BatteryPercentage-rate*moved/100)

	if moved > 0 {
		p.TirePressure = max(tirePressureFloor, p.TirePressure-(e.randFloat()*tireWearJitter+moved/10000))
	}
	p.Speed = DerivedSpeed(*p)
}

// DerivedSpeed is the speed a vehicle drives at given its condition.
func DerivedSpeed(p core.VehicleParameters) float64 {
	switch {
	case p.BatteryPercentage < 15:
		return max(10, p.InitialSpeed*0.5)
	case p.BatteryPercentage < 30:
		return max(15, p.InitialSpeed*0.7)
	case p.TirePressure < 75:
		return max(20, p.InitialSpeed*0.8)
	case p.TirePressure < 85:
		return max(25, p.InitialSpeed*0.9)
	default:
		return p.InitialSpeed
	}
}
