// pkg/core/events.go
package core

import (
	"time"

	"github.com/google/uuid"
)

// EventCode identifies the kind of a log entry.
type EventCode string

const (
	EventPedestrianStop       EventCode = "PEDESTRIAN_STOP"
	EventPedestrianSlow       EventCode = "PEDESTRIAN_SLOW"
	EventPedestrianDetected   EventCode = "PEDESTRIAN_DETECTED"
	EventVehicleAhead         EventCode = "VEHICLE_AHEAD"
	EventTrafficZone          EventCode = "TRAFFIC_ZONE"
	EventBatteryLow           EventCode = "BATTERY_LOW"
	EventTirePressureLow      EventCode = "TIRE_PRESSURE_LOW"
	EventHighTrafficAvoid     EventCode = "HIGH_TRAFFIC_AVOID"
	EventTrafficAccumulation  EventCode = "TRAFFIC_ACCUMULATION"
	EventPedestrianReroute    EventCode = "PEDESTRIAN_REROUTE"
	EventBuildingAvoid        EventCode = "BUILDING_AVOID"
	EventCollisionAvoid       EventCode = "COLLISION_AVOID"
	EventReroute              EventCode = "REROUTE"
	EventRerouteDeferred      EventCode = "REROUTE_DEFERRED"
	EventDetour               EventCode = "DETOUR"
	EventWaypointRetarget     EventCode = "WAYPOINT_RETARGET"
	EventWaypointSkipped      EventCode = "WAYPOINT_SKIPPED"
	EventUnreachable          EventCode = "UNREACHABLE_DESTINATION"
	EventStorageUnitBlocked   EventCode = "STORAGE_UNIT_BLOCKED"
	EventDestinationReached   EventCode = "DESTINATION_REACHED"
	EventWaypointAdded        EventCode = "WAYPOINT_ADDED"
	EventFuelDrained          EventCode = "FUEL_DRAINED"
	EventSpawnFallback        EventCode = "SPAWN_FALLBACK"
	EventInvalidState         EventCode = "INVALID_STATE"
	EventNewDestination       EventCode = "NEW_DESTINATION"
	EventStorageTour          EventCode = "STORAGE_TOUR"
	EventVehicleCreated       EventCode = "VEHICLE_CREATED"
	EventEnvironmentGenerated EventCode = "ENVIRONMENT_GENERATED"
)

// LogEntry is one line of the engine's decision log.
// Seq increases by one for every entry the engine records.
type LogEntry struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	VehicleID string    `json:"vehicleId"`
	Event     EventCode `json:"event"`
	Details   string    `json:"details"`
	Position  Position  `json:"position"`
}

// Run describes one recorded simulation session.
type Run struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Map       MapVariant `json:"map"`
	Seed      int64      `json:"seed"`
	StartTime time.Time  `json:"startTime"`
}

// NewRun creates a run with a fresh random ID.
func NewRun(name string, m MapVariant, seed int64, start time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Name:      name,
		Map:       m,
		Seed:      seed,
		StartTime: start,
	}
}
