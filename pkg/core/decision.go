package core

import "fmt"

// DecisionKind tags the variant held by a Decision.
type DecisionKind int

const (
	DecisionInitialized DecisionKind = iota
	DecisionMoving
	DecisionReachedWaypoint
	DecisionStoppedForPedestrian
	DecisionSlowingForPedestrian
	DecisionPedestrianAhead
	DecisionRerouting
	DecisionRerouteDeferred
	DecisionDestinationReached
	DecisionUnreachable
	DecisionWaypointAdded
)

// RerouteReason explains a Rerouting decision.
type RerouteReason int

const (
	ReasonNone RerouteReason = iota
	ReasonCriticalBattery
	ReasonLowTirePressure
	ReasonHighTrafficAhead
	ReasonTrafficAccumulation
	ReasonPedestrianBlocking
	ReasonBuildingInPath
	ReasonCollisionRisk
	ReasonChargeStation
	ReasonRoam
	ReasonStorageTour
)

var reasonLabels = map[RerouteReason]string{
	ReasonNone:                "unspecified",
	ReasonCriticalBattery:     "critical battery",
	ReasonLowTirePressure:     "low tire pressure",
	ReasonHighTrafficAhead:    "high traffic ahead",
	ReasonTrafficAccumulation: "traffic accumulation",
	ReasonPedestrianBlocking:  "pedestrian blocking",
	ReasonBuildingInPath:      "building in path",
	ReasonCollisionRisk:       "collision risk",
	ReasonChargeStation:       "charge station",
	ReasonRoam:                "new destination",
	ReasonStorageTour:         "storage tour",
}

func (r RerouteReason) String() string {
	if s, ok := reasonLabels[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// UnreachableCause explains an Unreachable decision.
type UnreachableCause int

const (
	CauseNoPath UnreachableCause = iota
	CauseBuilding
	CauseCollisionRisk
	CauseStorageUnit
)

func (c UnreachableCause) String() string {
	switch c {
	case CauseNoPath:
		return "no path"
	case CauseBuilding:
		return "building"
	case CauseCollisionRisk:
		return "collision risk"
	case CauseStorageUnit:
		return "storage unit"
	default:
		return fmt.Sprintf("cause(%d)", int(c))
	}
}

// Decision is the last navigation decision taken for a vehicle.
// Only the payload field matching Kind is meaningful.
type Decision struct {
	Kind     DecisionKind     `json:"kind"`
	Waypoint int              `json:"waypoint,omitempty"`
	Reason   RerouteReason    `json:"reason,omitempty"`
	Cause    UnreachableCause `json:"cause,omitempty"`
}

// Constructors for each Decision variant.
func Initialized() Decision { return Decision{Kind: DecisionInitialized} }
func Moving() Decision { return Decision{Kind: DecisionMoving} }
func ReachedWaypoint(n int) Decision { return Decision{Kind: DecisionReachedWaypoint, Waypoint: n} }
func StoppedForPedestrian() Decision { return Decision{Kind: DecisionStoppedForPedestrian} }
func SlowingForPedestrian() Decision { return Decision{Kind: DecisionSlowingForPedestrian} }
func PedestrianAhead() Decision { return Decision{Kind: DecisionPedestrianAhead} }
func Rerouting(r RerouteReason) Decision { return Decision{Kind: DecisionRerouting, Reason: r} }
func RerouteDeferred(r RerouteReason) Decision {
	return Decision{Kind: DecisionRerouteDeferred, Reason: r}
}
func DestinationReached() Decision { return Decision{Kind: DecisionDestinationReached} }
func Unreachable(c UnreachableCause) Decision {
	return Decision{Kind: DecisionUnreachable, Cause: c}
}
func WaypointAdded() Decision { return Decision{Kind: DecisionWaypointAdded} }

// String renders the decision for display only.
func (d Decision) String() string {
	switch d.Kind {
	case DecisionInitialized:
		return "Initialized"
	case DecisionMoving:
		return "Moving"
	case DecisionReachedWaypoint:
		return fmt.Sprintf("Reached waypoint %d", d.Waypoint)
	case DecisionStoppedForPedestrian:
		return "Stopped for pedestrian"
	case DecisionSlowingForPedestrian:
		return "Slowing for pedestrian"
	case DecisionPedestrianAhead:
		return "Pedestrian ahead"
	case DecisionRerouting:
		return "Rerouting: " + d.Reason.String()
	case DecisionRerouteDeferred:
		return "Reroute deferred: " + d.Reason.String()
	case DecisionDestinationReached:
		return "Destination reached"
	case DecisionUnreachable:
		return "Destination unreachable: " + d.Cause.String()
	case DecisionWaypointAdded:
		return "Waypoint added"
	default:
		return fmt.Sprintf("decision(%d)", int(d.Kind))
	}
}
