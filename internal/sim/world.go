// Package sim drives the engine over a whole fleet: it owns the world
// state, advances it tick by tick and exposes the command surface.
package sim

import (
	"github.com/avnav/fleetsim/pkg/core"
)

// World is everything the runner simulates. Values returned by the runner
// are deep copies.
type World struct {
	Map         core.MapVariant         `json:"map"`
	Tick        uint                    `json:"tick"`
	Vehicles    []core.Vehicle          `json:"vehicles"`
	Traffic     []core.TrafficCondition `json:"traffic"`
	Pedestrians []core.Pedestrian       `json:"pedestrians"`
	// Selected is the index of the vehicle under focus, or -1.
	Selected int `json:"selected"`
}

// Clone returns a copy of w that shares no memory with it.
func (w World) Clone() World {
	out := w
	out.Vehicles = cloneVehicles(w.Vehicles)
	if w.Traffic != nil {
		out.Traffic = append([]core.TrafficCondition(nil), w.Traffic...)
	}
	if w.Pedestrians != nil {
		out.Pedestrians = append([]core.Pedestrian(nil), w.Pedestrians...)
	}
	return out
}

// VehicleIndex returns the index of the vehicle with the given ID, or -1.
func (w World) VehicleIndex(id string) int {
	for i, v := range w.Vehicles {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Moving counts the vehicles currently driving.
func (w World) Moving() int {
	n := 0
	for _, v := range w.Vehicles {
		if v.IsMoving {
			n++
		}
	}
	return n
}

func cloneVehicles(in []core.Vehicle) []core.Vehicle {
	if in == nil {
		return nil
	}
	out := make([]core.Vehicle, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}
