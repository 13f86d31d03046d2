package parser

import (
	"fmt"

	"github.com/avnav/fleetsim/internal/util"
	"github.com/avnav/fleetsim/pkg/core"
)

// VehicleCreate asks for a new vehicle. An empty ID lets the world pick
// one; a nil Start spawns at a random free spot.
type VehicleCreate struct {
	ID    string
	Start *core.Position
	Route []core.Position
}

// WaypointAdd appends Point to a vehicle's route.
type WaypointAdd struct {
	VehicleID string
	Point     core.Position
}

// RouteSet replaces a vehicle's route with one planned through Waypoints.
type RouteSet struct {
	VehicleID string
	Waypoints []core.Position
}

// StorageTour sends a vehicle past the named storage units.
type StorageTour struct {
	VehicleID string
	UnitIDs   []string
}

// ParseVehicleCreate reads [id, start?, route?].
func ParseVehicleCreate(data []string) (VehicleCreate, error) {
	var req VehicleCreate
	req.ID = optionalArg(data, 0)

	if s := optionalArg(data, 1); s != "" {
		start, err := ParsePosition(s)
		if err != nil {
			return req, fmt.Errorf("error parsing vehicle start: %w", err)
		}
		req.Start = &start
	}

	if s := optionalArg(data, 2); s != "" {
		route, err := ParseRoute(s)
		if err != nil {
			return req, fmt.Errorf("error parsing vehicle route: %w", err)
		}
		req.Route = route
	}
	return req, nil
}

// ParseVehicleRef reads the vehicle ID at position 0.
func ParseVehicleRef(data []string) (string, error) {
	id, err := arg(data, 0, "vehicle id")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: vehicle id is empty", ErrMissingArg)
	}
	return id, nil
}

// ParseWaypointAdd reads [vehicleID, x, y] or [vehicleID, "x,y"].
func ParseWaypointAdd(data []string) (WaypointAdd, error) {
	var req WaypointAdd
	id, err := ParseVehicleRef(data)
	if err != nil {
		return req, err
	}
	req.VehicleID = id

	p, _, err := parseXY(data, 1, "waypoint")
	if err != nil {
		return req, fmt.Errorf("error parsing waypoint: %w", err)
	}
	req.Point = p
	return req, nil
}

// ParseRouteSet reads [vehicleID, polyline].
func ParseRouteSet(data []string) (RouteSet, error) {
	var req RouteSet
	id, err := ParseVehicleRef(data)
	if err != nil {
		return req, err
	}
	req.VehicleID = id

	s, err := arg(data, 1, "route")
	if err != nil {
		return req, err
	}
	route, err := ParseRoute(s)
	if err != nil {
		return req, fmt.Errorf("error parsing route: %w", err)
	}
	req.Waypoints = route
	return req, nil
}

// ParseStorageTour reads [vehicleID, units] where units is a JSON array
// or a comma separated list of storage unit IDs.
func ParseStorageTour(data []string) (StorageTour, error) {
	var req StorageTour
	id, err := ParseVehicleRef(data)
	if err != nil {
		return req, err
	}
	req.VehicleID = id

	units := util.SplitList(optionalArg(data, 1))
	for _, extra := range data[min(2, len(data)):] {
		units = append(units, util.SplitList(extra)...)
	}
	if len(units) == 0 {
		return req, fmt.Errorf("%w: storage unit ids", ErrMissingArg)
	}
	req.UnitIDs = units
	return req, nil
}
