// pkg/core/vehicle.go
package core

import "time"

// VehicleParameters holds the consumables and speeds of a vehicle.
// Battery and tire pressure only decrease during a run.
type VehicleParameters struct {
	BatteryPercentage       float64 `json:"batteryPercentage"`
	FuelConsumptionPerBlock float64 `json:"fuelConsumptionPerBlock"`
	TirePressure            float64 `json:"tirePressure"`
	Speed                   float64 `json:"speed"`
	InitialSpeed            float64 `json:"initialSpeed"`
	Mileage                 float64 `json:"mileage"`
	MaxBatteryCapacity      float64 `json:"maxBatteryCapacity"`
	MaxFuelCapacity         float64 `json:"maxFuelCapacity"`
}

// DefaultVehicleParameters returns the parameters every new vehicle starts with.
func DefaultVehicleParameters() VehicleParameters {
	return VehicleParameters{
		BatteryPercentage:       85,
		FuelConsumptionPerBlock: 0.5,
		TirePressure:            95,
		Speed:                   30,
		InitialSpeed:            30,
		Mileage:                 25000,
		MaxBatteryCapacity:      100,
		MaxFuelCapacity:         50,
	}
}

// Vehicle is an autonomous agent following Route.
// Route[0] is where the route was computed from and the last element is the
// destination. CurrentRouteIndex is the last waypoint reached.
type Vehicle struct {
	ID                string            `json:"id"`
	Position          Position          `json:"position"`
	Parameters        VehicleParameters `json:"parameters"`
	Route             []Position        `json:"route"`
	CurrentRouteIndex int               `json:"currentRouteIndex"`
	IsMoving          bool              `json:"isMoving"`
	LastDecision      Decision          `json:"lastDecision"`
	TotalDistance     float64           `json:"totalDistance"`
	LowBatteryMode    bool              `json:"lowBatteryMode"`
}

// Clone returns a copy that shares no memory with v.
func (v Vehicle) Clone() Vehicle {
	if v.Route != nil {
		route := make([]Position, len(v.Route))
		copy(route, v.Route)
		v.Route = route
	}
	return v
}

// Destination returns the final route point, or the vehicle position when
// the route is empty.
func (v Vehicle) Destination() Position {
	if len(v.Route) == 0 {
		return v.Position
	}
	return v.Route[len(v.Route)-1]
}

// Arrived reports whether the vehicle has reached the end of its route.
func (v Vehicle) Arrived() bool {
	return len(v.Route) == 0 || v.CurrentRouteIndex >= len(v.Route)-1
}

// VehicleState is a recorded sample of a vehicle at one tick.
type VehicleState struct {
	RunID        string     `json:"runId"`
	VehicleID    string     `json:"vehicleId"`
	Tick         uint       `json:"tick"`
	Time         time.Time  `json:"time"`
	Position     Position   `json:"position"`
	Speed        float64    `json:"speed"`
	Battery      float64    `json:"battery"`
	TirePressure float64    `json:"tirePressure"`
	Mileage      float64    `json:"mileage"`
	RouteIndex   int        `json:"routeIndex"`
	Route        []Position `json:"route,omitempty"`
	IsMoving     bool       `json:"isMoving"`
	Decision     string     `json:"decision"`
}

// StateOf samples v for recording.
func StateOf(runID string, tick uint, at time.Time, v Vehicle) VehicleState {
	return VehicleState{
		RunID:        runID,
		VehicleID:    v.ID,
		Tick:         tick,
		Time:         at,
		Position:     v.Position,
		Speed:        v.Parameters.Speed,
		Battery:      v.Parameters.BatteryPercentage,
		TirePressure: v.Parameters.TirePressure,
		Mileage:      v.Parameters.Mileage,
		RouteIndex:   v.CurrentRouteIndex,
		Route:        v.Clone().Route,
		IsMoving:     v.IsMoving,
		Decision:     v.LastDecision.String(),
	}
}
