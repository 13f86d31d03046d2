// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/avnav/fleetsim/internal/model"
	"github.com/avnav/fleetsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// positionToPoint converts a core.Position to a PostGIS geom.Point
func positionToPoint(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}})
}

// routeToLineString converts a route to a geom.LineString.
// Routes with fewer than two points have no line representation.
func routeToLineString(route []core.Position) (geom.LineString, bool) {
	if len(route) < 2 {
		return geom.LineString{}, false
	}
	coords := make([]float64, 0, len(route)*2)
	for _, pt := range route {
		coords = append(coords, pt.X, pt.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq), true
}

// routeToJSON converts a route to datatypes.JSON for DB storage.
func routeToJSON(route []core.Position) datatypes.JSON {
	if len(route) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(route)
	return datatypes.JSON(data)
}

func routeToWKT(route []core.Position) string {
	ls, ok := routeToLineString(route)
	if !ok {
		return ""
	}
	return ls.AsText()
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	return model.Run{
		ID:        r.ID,
		Name:      r.Name,
		Map:       string(r.Map),
		Seed:      r.Seed,
		StartTime: r.StartTime,
	}
}

// CoreToVehicle converts a core.Vehicle to a GORM model.Vehicle registered in runID.
func CoreToVehicle(runID string, v core.Vehicle) model.Vehicle {
	return model.Vehicle{
		RunID:        runID,
		VehicleID:    v.ID,
		Start:        positionToPoint(v.Position),
		Destination:  positionToPoint(v.Destination()),
		InitialSpeed: float32(v.Parameters.InitialSpeed),
		Battery:      float32(v.Parameters.BatteryPercentage),
		TirePressure: float32(v.Parameters.TirePressure),
		Mileage:      float32(v.Parameters.Mileage),
	}
}

// CoreToVehicleState converts a core.VehicleState to a GORM model.VehicleState.
func CoreToVehicleState(s core.VehicleState) model.VehicleState {
	return model.VehicleState{
		Time:         s.Time,
		RunID:        s.RunID,
		Tick:         s.Tick,
		VehicleID:    s.VehicleID,
		Position:     positionToPoint(s.Position),
		Speed:        float32(s.Speed),
		Battery:      float32(s.Battery),
		TirePressure: float32(s.TirePressure),
		Mileage:      float32(s.Mileage),
		RouteIndex:   int32(s.RouteIndex),
		Route:        routeToJSON(s.Route),
		RouteWKT:     routeToWKT(s.Route),
		IsMoving:     s.IsMoving,
		Decision:     s.Decision,
	}
}

// CoreToLogEntry converts a core.LogEntry recorded during runID to a GORM model.LogEntry.
func CoreToLogEntry(runID string, e core.LogEntry) model.LogEntry {
	return model.LogEntry{
		Time:      e.Timestamp,
		RunID:     runID,
		Seq:       e.Seq,
		VehicleID: e.VehicleID,
		Event:     string(e.Event),
		Details:   e.Details,
		Position:  positionToPoint(e.Position),
	}
}
