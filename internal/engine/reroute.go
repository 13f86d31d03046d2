package engine

import (
	"fmt"
	"math"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/internal/planner"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	criticalBattery  = 15.0
	lowTirePressure  = 75.0
	trafficLookahead = 150.0
	trafficCorridor  = 10.0
	trafficScoreMax  = 4
	pedestrianReach  = 30.0
	pedestrianPoints = 3

	// detourMargin pads detour corners beyond the storage gap.
	detourMargin = 4.0
	// Spiral search for a replacement waypoint.
	retargetMaxRadius = 60
	retargetAngleStep = 5
)

// RerouteDecision is the outcome of ShouldReroute.
type RerouteDecision struct {
	Needed  bool
	Reason  core.RerouteReason
	Event   core.EventCode
	Details string
	// Route is set when the decision had to plan to find out whether a
	// reroute is possible. Precomputed tells a failed plan apart from no plan.
	Route       []core.Position
	Precomputed bool

	notes []note
}

// note is a log entry produced while planning, recorded by the caller.
type note struct {
	event   core.EventCode
	details string
}

// ShouldReroute checks the reroute triggers in priority order and returns
// the first that fires. It does not modify v or write to the log.
//
// Battery and tire triggers latch: once the vehicle is already rerouting for
// that reason they stay quiet until its decision changes. In low-battery
// mode only the battery trigger is considered.
func (e *Engine) ShouldReroute(v core.Vehicle, t Tick) RerouteDecision {
	return e.shouldReroute(v, t, e.MapVariant())
}

func (e *Engine) shouldReroute(v core.Vehicle, t Tick, variant core.MapVariant) RerouteDecision {
	if v.Arrived() {
		return RerouteDecision{}
	}
	p := v.Parameters

	if p.BatteryPercentage < criticalBattery {
		if v.LastDecision != core.Rerouting(core.ReasonCriticalBattery) {
			return RerouteDecision{
				Needed:  true,
				Reason:  core.ReasonCriticalBattery,
				Event:   core.EventBatteryLow,
				Details: fmt.Sprintf("battery critical at %.1f%%", p.BatteryPercentage),
			}
		}
	}
	if v.LowBatteryMode {
		return RerouteDecision{}
	}

	if p.TirePressure < lowTirePressure && v.LastDecision != core.Rerouting(core.ReasonLowTirePressure) {
		return RerouteDecision{
			Needed:  true,
			Reason:  core.ReasonLowTirePressure,
			Event:   core.EventTirePressureLow,
			Details: fmt.Sprintf("tire pressure low at %.1f PSI", p.TirePressure),
		}
	}

	if z, ok := highTrafficAhead(v, t.Traffic); ok {
		return RerouteDecision{
			Needed:  true,
			Reason:  core.ReasonHighTrafficAhead,
			Event:   core.EventHighTrafficAvoid,
			Details: fmt.Sprintf("high traffic ahead at %s", z.Position),
		}
	}

	if score := trafficScore(v, t.Traffic); score >= trafficScoreMax {
		return RerouteDecision{
			Needed:  true,
			Reason:  core.ReasonTrafficAccumulation,
			Event:   core.EventTrafficAccumulation,
			Details: fmt.Sprintf("traffic score %d on the next %d waypoints", score, lookaheadWaypoints),
		}
	}

	if ped, ok := pedestrianOnRoute(v, t.Pedestrians); ok {
		return RerouteDecision{
			Needed:  true,
			Reason:  core.ReasonPedestrianBlocking,
			Event:   core.EventPedestrianReroute,
			Details: fmt.Sprintf("pedestrian %s blocking the route", ped.ID),
		}
	}

	if variant == core.MapCity {
		if i := waypointInBuilding(v, e.planner.Layout(variant)); i >= 0 {
			route, notes := e.rebuildRoute(v, t.Traffic, t.Pedestrians, variant)
			return RerouteDecision{
				Needed:      true,
				Reason:      core.ReasonBuildingInPath,
				Event:       core.EventBuildingAvoid,
				Details:     fmt.Sprintf("waypoint %d at %s inside a building", i, v.Route[i]),
				Route:       route,
				Precomputed: true,
				notes:       notes,
			}
		}
	}

	return RerouteDecision{}
}

// highTrafficAhead finds a high-severity zone in the corridor in front of v.
func highTrafficAhead(v core.Vehicle, traffic []core.TrafficCondition) (core.TrafficCondition, bool) {
	dx, dy, ok := heading(v)
	if !ok {
		return core.TrafficCondition{}, false
	}
	for _, z := range traffic {
		if z.Severity != core.SeverityHigh {
			continue
		}
		rx, ry := z.Position.X-v.Position.X, z.Position.Y-v.Position.Y
		along := rx*dx + ry*dy
		if along <= 0 || along > trafficLookahead {
			continue
		}
		if math.Abs(rx*dy-ry*dx) < trafficCorridor+z.AffectedRadius {
			return z, true
		}
	}
	return core.TrafficCondition{}, false
}

// trafficScore weighs the zones covering the next few waypoints.
func trafficScore(v core.Vehicle, traffic []core.TrafficCondition) int {
	score := 0
	end := min(len(v.Route), v.CurrentRouteIndex+1+lookaheadWaypoints)
	for _, wp := range v.Route[v.CurrentRouteIndex+1 : end] {
		for _, z := range traffic {
			if geo.Distance(wp, z.Position) > z.AffectedRadius {
				continue
			}
			switch z.Severity {
			case core.SeverityHigh:
				score += 3
			case core.SeverityMedium:
				score++
			}
		}
	}
	return score
}

// pedestrianOnRoute finds a pedestrian close to one of the next waypoints.
func pedestrianOnRoute(v core.Vehicle, peds []core.Pedestrian) (core.Pedestrian, bool) {
	end := min(len(v.Route), v.CurrentRouteIndex+1+pedestrianPoints)
	for _, wp := range v.Route[v.CurrentRouteIndex+1 : end] {
		for _, ped := range peds {
			if geo.Distance(wp, ped.Position) < pedestrianReach {
				return ped, true
			}
		}
	}
	return core.Pedestrian{}, false
}

// waypointInBuilding returns the index of the first remaining waypoint that
// is not clear of buildings, or -1.
func waypointInBuilding(v core.Vehicle, layout *obstacle.Layout) int {
	for i := v.CurrentRouteIndex + 1; i < len(v.Route); i++ {
		if layout.IsInAnyBuilding(v.Route[i], obstacle.SpawnBuffer) {
			return i
		}
	}
	return -1
}

// rebuildRoute plans from the vehicle's position through each remaining
// waypoint in turn. A waypoint the planner cannot reach is first detoured
// around (warehouse only), then replaced by the most open nearby point, and
// finally skipped. The result always starts at the vehicle's position; a
// single point means nothing could be planned.
func (e *Engine) rebuildRoute(v core.Vehicle, traffic []core.TrafficCondition, peds []core.Pedestrian, variant core.MapVariant) ([]core.Position, []note) {
	layout := e.planner.Layout(variant)
	route := []core.Position{v.Position}
	from := v.Position
	var notes []note

	if v.CurrentRouteIndex+1 >= len(v.Route) {
		return route, nil
	}
	for i, wp := range v.Route[v.CurrentRouteIndex+1:] {
		n := v.CurrentRouteIndex + 1 + i
		req := planner.Request{
			Start:       from,
			Goal:        wp,
			Traffic:     traffic,
			Pedestrians: peds,
			Params:      v.Parameters,
			Map:         variant,
		}

		// City waypoints hugging a building would keep tripping the
		// building checks even when reached, so move them out first.
		if variant == core.MapCity && !layout.Clear(wp) {
			if alt, ok := retarget(wp, layout); ok {
				notes = append(notes, note{core.EventWaypointRetarget,
					fmt.Sprintf("waypoint %d moved from %s to %s", n, wp, alt)})
				req.Goal = alt
			}
		}

		seg := e.planner.FindPath(req)
		if len(seg) == 0 && variant == core.MapWarehouse {
			if seg = e.detour(from, req.Goal, layout); len(seg) > 0 {
				notes = append(notes, note{core.EventDetour,
					fmt.Sprintf("detour around storage to waypoint %d", n)})
			}
		}
		if len(seg) == 0 && !layout.Clear(req.Goal) {
			if alt, ok := retarget(req.Goal, layout); ok {
				req.Goal = alt
				if seg = e.planner.FindPath(req); len(seg) > 0 {
					notes = append(notes, note{core.EventWaypointRetarget,
						fmt.Sprintf("waypoint %d moved from %s to %s", n, wp, alt)})
				}
			}
		}
		if len(seg) == 0 {
			notes = append(notes, note{core.EventWaypointSkipped,
				fmt.Sprintf("waypoint %d at %s unreachable, skipped", n, wp)})
			continue
		}

		route = append(route, seg[1:]...)
		from = route[len(route)-1]
	}
	return route, notes
}

// detour routes around the first storage unit between from and to by
// following the shorter side of its padded outline.
func (e *Engine) detour(from, to core.Position, layout *obstacle.Layout) []core.Position {
	r, ok := layout.FirstBlockerOnSegment(from, to, obstacle.StorageGap)
	if !ok {
		return nil
	}
	corners := r.Corners(obstacle.StorageGap + detourMargin)
	entry := nearestCorner(corners, from)
	exit := nearestCorner(corners, to)

	best := math.Inf(1)
	var route []core.Position
	for _, dir := range []int{1, -1} {
		candidate := []core.Position{from}
		for i := entry; ; i = (i + dir + len(corners)) % len(corners) {
			candidate = append(candidate, corners[i])
			if i == exit {
				break
			}
		}
		candidate = append(candidate, to)
		if !e.legsClear(candidate, layout) {
			continue
		}
		if l := geo.RouteLength(candidate); l < best {
			best, route = l, candidate
		}
	}
	return route
}

func nearestCorner(corners [4]core.Position, p core.Position) int {
	best, idx := math.Inf(1), 0
	for i, c := range corners {
		if d := geo.Distance(c, p); d < best {
			best, idx = d, i
		}
	}
	return idx
}

func (e *Engine) legsClear(route []core.Position, layout *obstacle.Layout) bool {
	for i := 1; i < len(route); i++ {
		if !geo.InBounds(route[i], layout.Width, layout.Height) {
			return false
		}
		if !e.planner.HasLineOfSight(route[i-1], route[i], layout.Variant) {
			return false
		}
	}
	return true
}

// retarget spirals out from an obstructed waypoint and returns the clear
// point with the most room on the first ring that has one.
func retarget(wp core.Position, layout *obstacle.Layout) (core.Position, bool) {
	if layout.Clear(wp) {
		return core.Position{}, false
	}
	for r := 1; r <= retargetMaxRadius; r++ {
		var (
			best    core.Position
			found   bool
			bestGap = -1.0
		)
		for a := 0; a < 360; a += retargetAngleStep {
			rad := float64(a) * math.Pi / 180
			q := core.Position{X: wp.X + float64(r)*math.Cos(rad), Y: wp.Y + float64(r)*math.Sin(rad)}
			if !layout.Clear(q) {
				continue
			}
			if gap := layout.Clearance(q); gap > bestGap {
				best, bestGap, found = q, gap, true
			}
		}
		if found {
			return best, true
		}
	}
	return core.Position{}, false
}
