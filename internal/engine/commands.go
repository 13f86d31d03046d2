package engine

import (
	"errors"
	"fmt"

	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/internal/planner"
	"github.com/avnav/fleetsim/pkg/core"
)

// ErrUnknownStorageUnit is returned for storage tours naming a unit the
// current map does not have.
var ErrUnknownStorageUnit = errors.New("unknown storage unit")

const (
	drainedBatteryMin    = 5
	drainedBatterySpread = 16
)

// AppendWaypoint extends v's route to p. The leg from the current route end
// is planned; when no plan exists p is appended as is.
func (e *Engine) AppendWaypoint(in core.Vehicle, p core.Position) core.Vehicle {
	v := in.Clone()
	if len(v.Route) == 0 {
		v.Route = []core.Position{v.Position}
		v.CurrentRouteIndex = 0
	}
	last := v.Route[len(v.Route)-1]
	seg := e.planner.FindPath(planner.Request{
		Start:  last,
		Goal:   p,
		Params: v.Parameters,
		Map:    e.MapVariant(),
	})
	if len(seg) > 1 {
		v.Route = append(v.Route, seg[1:]...)
	} else {
		v.Route = append(v.Route, p)
	}
	v.IsMoving = true
	e.record(v.ID, core.EventWaypointAdded, v.Position, "waypoint %s added, %d points remaining", p, len(v.Route)-1-v.CurrentRouteIndex)
	v.LastDecision = core.WaypointAdded()
	return v
}

// SetRoute replaces v's waypoints and plans through them.
func (e *Engine) SetRoute(in core.Vehicle, waypoints []core.Position, traffic []core.TrafficCondition, peds []core.Pedestrian) core.Vehicle {
	v := e.planThrough(in, waypoints, traffic, peds)
	e.record(v.ID, core.EventWaypointAdded, v.Position, "route set through %d waypoints", len(waypoints))
	v.LastDecision = core.WaypointAdded()
	return v
}

// DrainFuel simulates a sudden battery loss: the battery drops to a random
// level between 5 and 20 percent, the vehicle enters low-battery mode and
// heads for the charging station.
func (e *Engine) DrainFuel(in core.Vehicle, traffic []core.TrafficCondition, peds []core.Pedestrian) core.Vehicle {
	variant := e.MapVariant()
	station := obstacle.ChargeStation(variant)

	v := in.Clone()
	v.Parameters.BatteryPercentage = float64(drainedBatteryMin + e.randIntn(drainedBatterySpread))
	v.Parameters.Speed = DerivedSpeed(v.Parameters)
	v.LowBatteryMode = true
	v = e.planThrough(v, []core.Position{station}, traffic, peds)

	e.record(v.ID, core.EventFuelDrained, v.Position, "battery drained to %.0f%%, heading to charge station at %s",
		v.Parameters.BatteryPercentage, station)
	v.LastDecision = core.Rerouting(core.ReasonChargeStation)
	return v
}

// AssignRandomDestination sends v to a random placeable point.
func (e *Engine) AssignRandomDestination(in core.Vehicle, traffic []core.TrafficCondition, peds []core.Pedestrian) core.Vehicle {
	dest, _ := e.place(e.layout())
	v := e.planThrough(in, []core.Position{dest}, traffic, peds)
	e.record(v.ID, core.EventNewDestination, v.Position, "new destination %s", dest)
	v.LastDecision = core.Rerouting(core.ReasonRoam)
	return v
}

// RouteViaStorageUnits sends v past the named storage units in order,
// stopping in front of each.
func (e *Engine) RouteViaStorageUnits(in core.Vehicle, ids []string, traffic []core.TrafficCondition, peds []core.Pedestrian) (core.Vehicle, error) {
	layout := e.layout()
	stops := make([]core.Position, 0, len(ids))
	for _, id := range ids {
		r, ok := layout.StorageUnit(id)
		if !ok {
			return in, fmt.Errorf("%w: %s", ErrUnknownStorageUnit, id)
		}
		stops = append(stops, r.Approach())
	}
	v := e.planThrough(in, stops, traffic, peds)
	e.record(v.ID, core.EventStorageTour, v.Position, "storage tour via %v", ids)
	v.LastDecision = core.Rerouting(core.ReasonStorageTour)
	return v, nil
}

// planThrough replaces v's route with a plan from its position through
// waypoints. When nothing can be planned the raw waypoints are kept.
func (e *Engine) planThrough(in core.Vehicle, waypoints []core.Position, traffic []core.TrafficCondition, peds []core.Pedestrian) core.Vehicle {
	v := in.Clone()
	v.Route = append([]core.Position{v.Position}, waypoints...)
	v.CurrentRouteIndex = 0

	route, notes := e.rebuildRoute(v, traffic, peds, e.MapVariant())
	e.writeNotes(v, notes)
	if len(route) > 1 {
		v.Route = route
	}
	v.IsMoving = len(v.Route) > 1
	return v
}
