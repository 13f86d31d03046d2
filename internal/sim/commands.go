package sim

import (
	"errors"
	"fmt"

	"github.com/avnav/fleetsim/internal/util"
	"github.com/avnav/fleetsim/pkg/core"
)

// ErrDuplicateVehicle is returned when a vehicle ID is already taken.
var ErrDuplicateVehicle = errors.New("duplicate vehicle")

// CreateVehicle adds a vehicle. Without an ID the next free "AV-nnn" is
// used. Without a start it spawns at a random free spot and, unless a route
// is given, heads for a random destination.
func (r *Runner) CreateVehicle(id string, start *core.Position, route []core.Position) (core.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = r.nextVehicleID()
	} else if r.world.VehicleIndex(id) >= 0 {
		return core.Vehicle{}, fmt.Errorf("%w: %s", ErrDuplicateVehicle, id)
	}

	var v core.Vehicle
	switch {
	case start != nil:
		v = r.engine.CreateVehicle(id, *start, route)
	case len(route) > 0:
		v = r.engine.SpawnVehicle(id)
		v = r.engine.SetRoute(v, route, r.world.Traffic, r.world.Pedestrians)
	default:
		v = r.engine.SpawnVehicle(id)
		v = r.engine.AssignRandomDestination(v, r.world.Traffic, r.world.Pedestrians)
	}

	r.world.Vehicles = append(r.world.Vehicles, v)
	if r.world.Selected < 0 {
		r.world.Selected = len(r.world.Vehicles) - 1
	}
	return v.Clone(), nil
}

func (r *Runner) nextVehicleID() string {
	for {
		r.nextVehicle++
		id := util.PadID("AV", r.nextVehicle)
		if r.world.VehicleIndex(id) < 0 {
			return id
		}
	}
}

// GenerateTraffic replaces the traffic zones with n random ones.
func (r *Runner) GenerateTraffic(n int) []core.TrafficCondition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Traffic = r.engine.GenerateTrafficConditions(n)
	return append([]core.TrafficCondition(nil), r.world.Traffic...)
}

// AddTraffic adds one traffic zone.
func (r *Runner) AddTraffic(tc core.TrafficCondition) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Traffic = append(r.world.Traffic, tc)
	return len(r.world.Traffic)
}

// ClearTraffic removes every traffic zone.
func (r *Runner) ClearTraffic() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Traffic = nil
}

// GeneratePedestrians replaces the pedestrians with a random crowd.
func (r *Runner) GeneratePedestrians() []core.Pedestrian {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Pedestrians = r.engine.GeneratePedestrians()
	r.pedCounter = len(r.world.Pedestrians)
	return append([]core.Pedestrian(nil), r.world.Pedestrians...)
}

// AddPedestrian adds one pedestrian. An empty ID gets the next "PED-nnn".
func (r *Runner) AddPedestrian(p core.Pedestrian) core.Pedestrian {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = r.nextPedestrianID()
	}
	r.world.Pedestrians = append(r.world.Pedestrians, p)
	return p
}

func (r *Runner) nextPedestrianID() string {
	taken := make(map[string]bool, len(r.world.Pedestrians))
	for _, p := range r.world.Pedestrians {
		taken[p.ID] = true
	}
	for {
		r.pedCounter++
		id := util.PadID("PED", r.pedCounter)
		if !taken[id] {
			return id
		}
	}
}

// ClearPedestrians removes every pedestrian.
func (r *Runner) ClearPedestrians() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Pedestrians = nil
}

// SetMap switches map and resets the world.
func (r *Runner) SetMap(m core.MapVariant) {
	r.Reset(m)
}

// update applies fn to the vehicle with the given ID under the world lock.
func (r *Runner) update(id string, fn func(v core.Vehicle) (core.Vehicle, error)) (core.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.world.VehicleIndex(id)
	if i < 0 {
		return core.Vehicle{}, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	v, err := fn(r.world.Vehicles[i])
	if err != nil {
		return core.Vehicle{}, err
	}
	r.world.Vehicles[i] = v
	return v.Clone(), nil
}

// AppendWaypoint extends a vehicle's route to p.
func (r *Runner) AppendWaypoint(id string, p core.Position) (core.Vehicle, error) {
	return r.update(id, func(v core.Vehicle) (core.Vehicle, error) {
		return r.engine.AppendWaypoint(v, p), nil
	})
}

// SetRoute replaces a vehicle's route with one planned through waypoints.
func (r *Runner) SetRoute(id string, waypoints []core.Position) (core.Vehicle, error) {
	return r.update(id, func(v core.Vehicle) (core.Vehicle, error) {
		return r.engine.SetRoute(v, waypoints, r.world.Traffic, r.world.Pedestrians), nil
	})
}

// StorageTour routes a vehicle past the named storage units.
func (r *Runner) StorageTour(id string, units []string) (core.Vehicle, error) {
	return r.update(id, func(v core.Vehicle) (core.Vehicle, error) {
		return r.engine.RouteViaStorageUnits(v, units, r.world.Traffic, r.world.Pedestrians)
	})
}

// DrainFuel drops a vehicle's battery and sends it to charge.
func (r *Runner) DrainFuel(id string) (core.Vehicle, error) {
	return r.update(id, func(v core.Vehicle) (core.Vehicle, error) {
		return r.engine.DrainFuel(v, r.world.Traffic, r.world.Pedestrians), nil
	})
}

// Select focuses the vehicle with the given ID and returns its index.
func (r *Runner) Select(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.world.VehicleIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	r.world.Selected = i
	return i, nil
}

// SetSpeedMultiplier changes the simulated time per tick.
func (r *Runner) SetSpeedMultiplier(f float64) error {
	if f <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", f)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = f
	return nil
}

// SpeedMultiplier returns the current speed multiplier.
func (r *Runner) SpeedMultiplier() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}
