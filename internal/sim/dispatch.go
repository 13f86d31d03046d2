package sim

import (
	"github.com/avnav/fleetsim/internal/dispatcher"
	"github.com/avnav/fleetsim/internal/parser"
)

// RegisterHandlers registers every world command with the dispatcher.
func (r *Runner) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Fleet - sync, callers want the resulting vehicle
	d.Register(":VEHICLE:CREATE:", r.handleVehicleCreate, dispatcher.Logged())
	d.Register(":VEHICLE:SELECT:", r.handleVehicleSelect, dispatcher.Logged())
	d.Register(":WAYPOINT:ADD:", r.handleWaypointAdd, dispatcher.Logged())
	d.Register(":ROUTE:SET:", r.handleRouteSet, dispatcher.Logged())
	d.Register(":ROUTE:STORAGE:", r.handleStorageTour, dispatcher.Logged())
	d.Register(":FUEL:DRAIN:", r.handleFuelDrain, dispatcher.Logged())

	// Environment
	d.Register(":TRAFFIC:GENERATE:", r.handleTrafficGenerate, dispatcher.Logged())
	d.Register(":TRAFFIC:ADD:", r.handleTrafficAdd, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(":TRAFFIC:CLEAR:", r.handleTrafficClear, dispatcher.Logged())
	d.Register(":PEDESTRIANS:GENERATE:", r.handlePedestriansGenerate, dispatcher.Logged())
	d.Register(":PEDESTRIAN:ADD:", r.handlePedestrianAdd, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(":PEDESTRIANS:CLEAR:", r.handlePedestriansClear, dispatcher.Logged())

	// Simulation
	d.Register(":MAP:SET:", r.handleMapSet, dispatcher.Logged())
	d.Register(":SPEED:SET:", r.handleSpeedSet, dispatcher.Logged())
}

func (r *Runner) handleVehicleCreate(e dispatcher.Event) (any, error) {
	req, err := parser.ParseVehicleCreate(e.Args)
	if err != nil {
		return nil, err
	}
	return r.CreateVehicle(req.ID, req.Start, req.Route)
}

func (r *Runner) handleVehicleSelect(e dispatcher.Event) (any, error) {
	id, err := parser.ParseVehicleRef(e.Args)
	if err != nil {
		return nil, err
	}
	return r.Select(id)
}

func (r *Runner) handleWaypointAdd(e dispatcher.Event) (any, error) {
	req, err := parser.ParseWaypointAdd(e.Args)
	if err != nil {
		return nil, err
	}
	return r.AppendWaypoint(req.VehicleID, req.Point)
}

func (r *Runner) handleRouteSet(e dispatcher.Event) (any, error) {
	req, err := parser.ParseRouteSet(e.Args)
	if err != nil {
		return nil, err
	}
	return r.SetRoute(req.VehicleID, req.Waypoints)
}

func (r *Runner) handleStorageTour(e dispatcher.Event) (any, error) {
	req, err := parser.ParseStorageTour(e.Args)
	if err != nil {
		return nil, err
	}
	return r.StorageTour(req.VehicleID, req.UnitIDs)
}

func (r *Runner) handleFuelDrain(e dispatcher.Event) (any, error) {
	id, err := parser.ParseVehicleRef(e.Args)
	if err != nil {
		return nil, err
	}
	return r.DrainFuel(id)
}

func (r *Runner) handleTrafficGenerate(e dispatcher.Event) (any, error) {
	n, err := parser.ParseCount(e.Args)
	if err != nil {
		return nil, err
	}
	return r.GenerateTraffic(n), nil
}

func (r *Runner) handleTrafficAdd(e dispatcher.Event) (any, error) {
	tc, err := parser.ParseTrafficAdd(e.Args)
	if err != nil {
		return nil, err
	}
	return r.AddTraffic(tc), nil
}

func (r *Runner) handleTrafficClear(dispatcher.Event) (any, error) {
	r.ClearTraffic()
	return nil, nil
}

func (r *Runner) handlePedestriansGenerate(dispatcher.Event) (any, error) {
	return r.GeneratePedestrians(), nil
}

func (r *Runner) handlePedestrianAdd(e dispatcher.Event) (any, error) {
	p, err := parser.ParsePedestrianAdd(e.Args)
	if err != nil {
		return nil, err
	}
	return r.AddPedestrian(p), nil
}

func (r *Runner) handlePedestriansClear(dispatcher.Event) (any, error) {
	r.ClearPedestrians()
	return nil, nil
}

func (r *Runner) handleMapSet(e dispatcher.Event) (any, error) {
	m, err := parser.ParseMap(e.Args)
	if err != nil {
		return nil, err
	}
	r.SetMap(m)
	return m, nil
}

func (r *Runner) handleSpeedSet(e dispatcher.Event) (any, error) {
	f, err := parser.ParseSpeedMultiplier(e.Args)
	if err != nil {
		return nil, err
	}
	return f, r.SetSpeedMultiplier(f)
}
