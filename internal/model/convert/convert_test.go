package convert

import (
	"testing"
	"time"

	"github.com/avnav/fleetsim/internal/model"
	"github.com/avnav/fleetsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestPointToPosition(t *testing.T) {
	pos := pointToPosition(positionToPoint(core.Position{X: 100.5, Y: 200.5}))
	assert.Equal(t, core.Position{X: 100.5, Y: 200.5}, pos)
}

func TestPointToPosition_Empty(t *testing.T) {
	assert.Equal(t, core.Position{}, pointToPosition(geom.Point{}))
}

func TestRunToCore(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := core.Run{ID: "run-1", Name: "demo", Map: core.MapWarehouse, Seed: 7, StartTime: start}
	assert.Equal(t, r, RunToCore(CoreToRun(r)))
}

func TestVehicleStateToCore(t *testing.T) {
	now := time.Now().UTC()
	s := core.VehicleState{
		RunID:        "run-1",
		VehicleID:    "AV-001",
		Tick:         3,
		Time:         now,
		Position:     core.Position{X: 10, Y: 20},
		Speed:        30,
		Battery:      85,
		TirePressure: 95,
		Mileage:      25000,
		RouteIndex:   1,
		Route:        []core.Position{{X: 0, Y: 20}, {X: 10, Y: 20}, {X: 40, Y: 20}},
		IsMoving:     true,
		Decision:     "Reached waypoint 1",
	}

	assert.Equal(t, s, VehicleStateToCore(CoreToVehicleState(s)))
}

func TestVehicleStateToCore_BadRoute(t *testing.T) {
	got := VehicleStateToCore(model.VehicleState{Route: datatypes.JSON("not json")})
	assert.Nil(t, got.Route)

	got = VehicleStateToCore(model.VehicleState{Route: datatypes.JSON("[]")})
	assert.Nil(t, got.Route)
}

func TestLogEntryToCore(t *testing.T) {
	e := core.LogEntry{
		Seq:       4,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC),
		VehicleID: "AV-001",
		Event:     core.EventDetour,
		Details:   "around SU-A2",
		Position:  core.Position{X: 188, Y: 188},
	}

	assert.Equal(t, e, LogEntryToCore(CoreToLogEntry("run-1", e)))
}
