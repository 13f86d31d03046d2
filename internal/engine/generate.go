package engine

import (
	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/internal/util"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	placementAttempts = 20

	DefaultTrafficCount = 5
	trafficRadiusMin    = 40.0
	trafficRadiusSpread = 60.0

	pedestrianCountMin    = 8
	pedestrianCountSpread = 5
	pedestrianSpeedMin    = 10.0
	pedestrianSpeedSpread = 10.0
	// pedestrianArrival is the distance at which a pedestrian picks a new
	// destination.
	pedestrianArrival = 10.0
)

// randomPoint draws a point on the map; on city maps it lands on a road.
func (e *Engine) randomPoint(layout *obstacle.Layout) core.Position {
	if layout.Variant == core.MapCity && len(layout.Roads) > 0 {
		r := layout.Roads[e.randIntn(len(layout.Roads))].Bound
		return core.Position{
			X: r.Min[0] + e.randFloat()*(r.Max[0]-r.Min[0]),
			Y: r.Min[1] + e.randFloat()*(r.Max[1]-r.Min[1]),
		}
	}
	return core.Position{X: e.randFloat() * layout.Width, Y: e.randFloat() * layout.Height}
}

// place draws random points until one is placeable. After too many misses
// it settles for the valid point nearest the last draw and reports false.
func (e *Engine) place(layout *obstacle.Layout) (core.Position, bool) {
	var p core.Position
	for range placementAttempts {
		p = e.randomPoint(layout)
		if layout.Placeable(p) {
			return p, true
		}
	}
	if q, ok := layout.NearestValid(p); ok {
		return q, false
	}
	return p, false
}

// CreateVehicle builds a vehicle with default parameters at start. A start
// that cannot hold a vehicle is moved to the nearest spot that can. The
// route is prefixed with the start when it does not already begin there.
func (e *Engine) CreateVehicle(id string, start core.Position, route []core.Position) core.Vehicle {
	layout := e.layout()
	pos := start
	if !layout.Placeable(start) {
		if q, ok := layout.NearestValid(start); ok {
			pos = q
			e.record(id, core.EventSpawnFallback, pos, "start %s blocked, placed at %s", start, pos)
		}
	}

	full := make([]core.Position, 0, len(route)+1)
	if len(route) == 0 || route[0] != pos {
		full = append(full, pos)
	}
	full = append(full, route...)

	v := core.Vehicle{
		ID:           id,
		Position:     pos,
		Parameters:   core.DefaultVehicleParameters(),
		Route:        full,
		LastDecision: core.Initialized(),
	}
	e.record(id, core.EventVehicleCreated, pos, "vehicle created with %d waypoints", len(full)-1)
	return v
}

// SpawnVehicle creates a vehicle at a random placeable point.
func (e *Engine) SpawnVehicle(id string) core.Vehicle {
	layout := e.layout()
	pos, ok := e.place(layout)
	if !ok {
		e.record(id, core.EventSpawnFallback, pos, "no free spot after %d attempts", placementAttempts)
	}
	return e.CreateVehicle(id, pos, nil)
}

// GenerateTrafficConditions places n random traffic zones. n <= 0 uses
// DefaultTrafficCount.
func (e *Engine) GenerateTrafficConditions(n int) []core.TrafficCondition {
	if n <= 0 {
		n = DefaultTrafficCount
	}
	layout := e.layout()
	out := make([]core.TrafficCondition, 0, n)
	for range n {
		pos, _ := e.place(layout)
		out = append(out, core.TrafficCondition{
			Position:       pos,
			Severity:       core.Severity(e.randIntn(3)),
			AffectedRadius: trafficRadiusMin + e.randFloat()*trafficRadiusSpread,
		})
	}
	e.record("", core.EventEnvironmentGenerated, core.Position{}, "%d traffic zones", n)
	return out
}

// GeneratePedestrians places a random crowd of blocking pedestrians, each
// heading to its own destination.
func (e *Engine) GeneratePedestrians() []core.Pedestrian {
	layout := e.layout()
	n := pedestrianCountMin + e.randIntn(pedestrianCountSpread)
	out := make([]core.Pedestrian, 0, n)
	for i := range n {
		pos, _ := e.place(layout)
		dest, _ := e.place(layout)
		out = append(out, core.Pedestrian{
			ID:          util.PadID("PED", i+1),
			Position:    pos,
			Destination: dest,
			Speed:       pedestrianSpeedMin + e.randFloat()*pedestrianSpeedSpread,
			IsBlocking:  true,
		})
	}
	e.record("", core.EventEnvironmentGenerated, core.Position{}, "%d pedestrians", n)
	return out
}

// UpdatePedestrians walks every pedestrian toward its destination for
// deltaMs milliseconds. Pedestrians close to their destination get a new
// one. The input slice is not modified.
func (e *Engine) UpdatePedestrians(peds []core.Pedestrian, deltaMs float64) []core.Pedestrian {
	layout := e.layout()
	out := make([]core.Pedestrian, len(peds))
	for i, ped := range peds {
		ped.Position = geo.MoveToward(ped.Position, ped.Destination, ped.Speed*deltaMs/1000)
		if geo.Distance(ped.Position, ped.Destination) < pedestrianArrival {
			ped.Destination, _ = e.place(layout)
		}
		out[i] = ped
	}
	return out
}
