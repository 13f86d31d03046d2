package convert

import (
	"encoding/json"

	"github.com/avnav/fleetsim/internal/model"
	"github.com/avnav/fleetsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToPosition converts a PostGIS geom.Point to a core.Position
func pointToPosition(p geom.Point) core.Position {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position{}
	}
	return core.Position{X: coord.XY.X, Y: coord.XY.Y}
}

// RunToCore converts a GORM Run to a core.Run.
func RunToCore(r model.Run) core.Run {
	return core.Run{
		ID:        r.ID,
		Name:      r.Name,
		Map:       core.MapVariant(r.Map),
		Seed:      r.Seed,
		StartTime: r.StartTime,
	}
}

// VehicleStateToCore converts a GORM VehicleState to a core.VehicleState.
// A malformed route column yields a nil route.
func VehicleStateToCore(s model.VehicleState) core.VehicleState {
	var route []core.Position
	if len(s.Route) > 0 {
		if err := json.Unmarshal(s.Route, &route); err != nil {
			route = nil
		}
	}
	if len(route) == 0 {
		route = nil
	}

	return core.VehicleState{
		RunID:        s.RunID,
		VehicleID:    s.VehicleID,
		Tick:         s.Tick,
		Time:         s.Time,
		Position:     pointToPosition(s.Position),
		Speed:        float64(s.Speed),
		Battery:      float64(s.Battery),
		TirePressure: float64(s.TirePressure),
		Mileage:      float64(s.Mileage),
		RouteIndex:   int(s.RouteIndex),
		Route:        route,
		IsMoving:     s.IsMoving,
		Decision:     s.Decision,
	}
}

// LogEntryToCore converts a GORM LogEntry to a core.LogEntry.
func LogEntryToCore(e model.LogEntry) core.LogEntry {
	return core.LogEntry{
		Seq:       e.Seq,
		Timestamp: e.Time,
		VehicleID: e.VehicleID,
		Event:     core.EventCode(e.Event),
		Details:   e.Details,
		Position:  pointToPosition(e.Position),
	}
}
