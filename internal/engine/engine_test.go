package engine

import (
	"testing"
	"time"

	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func p(x, y float64) core.Position { return core.Position{X: x, Y: y} }

func newTestEngine(m core.MapVariant, opts ...Option) *Engine {
	base := []Option{
		WithSeed(7),
		WithMapVariant(m),
		WithClock(func() time.Time { return testTime }),
	}
	return New(append(base, opts...)...)
}

func vehicleOn(route ...core.Position) core.Vehicle {
	return core.Vehicle{
		ID:           "AV-001",
		Position:     route[0],
		Parameters:   core.DefaultVehicleParameters(),
		Route:        route,
		IsMoving:     len(route) > 1,
		LastDecision: core.Initialized(),
	}
}

func countEvents(e *Engine, code core.EventCode) int {
	n := 0
	for _, entry := range e.Logs() {
		if entry.Event == code {
			n++
		}
	}
	return n
}

func tick() Tick {
	return Tick{Selected: -1, DeltaMs: 100}
}

func TestLogs_BoundedNewestFirst(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	for i := 0; i < 150; i++ {
		e.record("AV-001", core.EventWaypointAdded, p(0, 0), "entry %d", i)
	}

	logs := e.Logs()
	require.Len(t, logs, DefaultLogCapacity)
	assert.Equal(t, uint64(150), logs[0].Seq)
	assert.Equal(t, uint64(51), logs[len(logs)-1].Seq)
	for i := 1; i < len(logs); i++ {
		assert.Greater(t, logs[i-1].Seq, logs[i].Seq)
	}
	assert.Equal(t, testTime, logs[0].Timestamp)
	assert.Equal(t, "entry 149", logs[0].Details)
}

func TestLogsSince(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	for i := 0; i < 150; i++ {
		e.record("AV-001", core.EventWaypointAdded, p(0, 0), "entry %d", i)
	}

	recent := e.LogsSince(140)
	require.Len(t, recent, 10)
	assert.Equal(t, uint64(141), recent[0].Seq)
	assert.Equal(t, uint64(150), recent[9].Seq)

	assert.Len(t, e.LogsSince(0), DefaultLogCapacity, "older entries are gone")
	assert.Empty(t, e.LogsSince(150))

	e.ClearLogs()
	assert.Empty(t, e.Logs())
}

func TestWithLogCapacity(t *testing.T) {
	e := newTestEngine(core.MapWarehouse, WithLogCapacity(3))
	for i := 0; i < 5; i++ {
		e.record("", core.EventEnvironmentGenerated, p(0, 0), "x")
	}
	assert.Len(t, e.Logs(), 3)
}

func TestSetMapVariant(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	assert.Equal(t, core.MapWarehouse, e.MapVariant())

	e.SetMapVariant(core.MapCity)

	assert.Equal(t, core.MapCity, e.MapVariant())
	assert.Equal(t, core.MapCity, e.layout().Variant)
}

func TestCreateVehicle(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)

	v := e.CreateVehicle("AV-001", p(100, 100), []core.Position{p(150, 100)})

	assert.Equal(t, p(100, 100), v.Position)
	assert.Equal(t, []core.Position{p(100, 100), p(150, 100)}, v.Route)
	assert.Equal(t, core.DefaultVehicleParameters(), v.Parameters)
	assert.Equal(t, core.Initialized(), v.LastDecision)
	assert.False(t, v.IsMoving)
	assert.Equal(t, 1, countEvents(e, core.EventVehicleCreated))
}

func TestCreateVehicle_RouteAlreadyStartsAtPosition(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)

	v := e.CreateVehicle("AV-001", p(100, 100), []core.Position{p(100, 100), p(150, 100)})

	assert.Len(t, v.Route, 2)
}

func TestCreateVehicle_BlockedStartFallsBack(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)

	v := e.CreateVehicle("AV-001", p(240, 250), nil)

	assert.NotEqual(t, p(240, 250), v.Position)
	assert.True(t, obstacle.Warehouse().Placeable(v.Position))
	assert.Equal(t, []core.Position{v.Position}, v.Route)
	assert.Equal(t, 1, countEvents(e, core.EventSpawnFallback))
}

func TestSpawnVehicle_Placeable(t *testing.T) {
	for _, m := range []core.MapVariant{core.MapWarehouse, core.MapCity} {
		e := newTestEngine(m)
		for i := 0; i < 20; i++ {
			v := e.SpawnVehicle("AV-001")
			assert.Truef(t, obstacle.For(m).Placeable(v.Position), "%s spawn %v", m, v.Position)
		}
	}
}

func TestGenerateTrafficConditions(t *testing.T) {
	e := newTestEngine(core.MapCity)

	zones := e.GenerateTrafficConditions(7)

	require.Len(t, zones, 7)
	for _, z := range zones {
		assert.GreaterOrEqual(t, z.AffectedRadius, 40.0)
		assert.Less(t, z.AffectedRadius, 100.0)
		assert.Contains(t, []core.Severity{core.SeverityLow, core.SeverityMedium, core.SeverityHigh}, z.Severity)
		assert.True(t, obstacle.City().Placeable(z.Position), "zone at %v", z.Position)
	}
	assert.Len(t, e.GenerateTrafficConditions(0), DefaultTrafficCount)
}

func TestGeneratePedestrians(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)

	peds := e.GeneratePedestrians()

	assert.GreaterOrEqual(t, len(peds), 8)
	assert.LessOrEqual(t, len(peds), 12)
	assert.Equal(t, "PED-001", peds[0].ID)
	for _, ped := range peds {
		assert.True(t, ped.IsBlocking)
		assert.GreaterOrEqual(t, ped.Speed, 10.0)
		assert.Less(t, ped.Speed, 20.0)
	}
}

func TestGenerators_ReproducibleWithSeed(t *testing.T) {
	a := newTestEngine(core.MapCity).GenerateTrafficConditions(5)
	b := newTestEngine(core.MapCity).GenerateTrafficConditions(5)

	assert.Equal(t, a, b)
}

func TestUpdatePedestrians(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	peds := []core.Pedestrian{
		{ID: "PED-001", Position: p(100, 100), Destination: p(200, 100), Speed: 10},
		{ID: "PED-002", Position: p(300, 100), Destination: p(305, 100), Speed: 10},
	}

	out := e.UpdatePedestrians(peds, 1000)

	assert.Equal(t, p(110, 100), out[0].Position)
	assert.Equal(t, p(200, 100), out[0].Destination)
	assert.Equal(t, p(305, 100), out[1].Position)
	assert.NotEqual(t, p(305, 100), out[1].Destination, "arrived pedestrians pick a new destination")
	assert.Equal(t, p(100, 100), peds[0].Position, "input untouched")
}

func TestAppendWaypoint(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(100, 100))
	v.IsMoving = false

	out := e.AppendWaypoint(v, p(150, 100))

	assert.Equal(t, p(100, 100), out.Route[0])
	assert.Equal(t, p(150, 100), out.Route[len(out.Route)-1])
	assert.True(t, out.IsMoving)
	assert.Equal(t, core.WaypointAdded(), out.LastDecision)
	assert.Equal(t, 1, countEvents(e, core.EventWaypointAdded))
	assert.Len(t, v.Route, 1, "input untouched")
}

func TestDrainFuel(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(400, 150), p(600, 150))

	out := e.DrainFuel(v, nil, nil)

	assert.GreaterOrEqual(t, out.Parameters.BatteryPercentage, 5.0)
	assert.LessOrEqual(t, out.Parameters.BatteryPercentage, 20.0)
	assert.True(t, out.LowBatteryMode)
	assert.Equal(t, obstacle.ChargeStation(core.MapWarehouse), out.Destination())
	assert.Equal(t, p(400, 150), out.Route[0])
	assert.Equal(t, core.Rerouting(core.ReasonChargeStation), out.LastDecision)
	assert.Equal(t, 1, countEvents(e, core.EventFuelDrained))
}

func TestRouteViaStorageUnits(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(100, 100))

	out, err := e.RouteViaStorageUnits(v, []string{"SU-A2", "SU-B1"}, nil, nil)

	require.NoError(t, err)
	b1, _ := obstacle.Warehouse().StorageUnit("SU-B1")
	assert.Equal(t, b1.Approach(), out.Destination())
	assert.Equal(t, core.Rerouting(core.ReasonStorageTour), out.LastDecision)

	_, err = e.RouteViaStorageUnits(v, []string{"SU-Z9"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownStorageUnit)
}

func TestAssignRandomDestination(t *testing.T) {
	e := newTestEngine(core.MapCity)
	v := vehicleOn(p(110, 110))

	out := e.AssignRandomDestination(v, nil, nil)

	assert.Equal(t, p(110, 110), out.Route[0])
	assert.Equal(t, core.Rerouting(core.ReasonRoam), out.LastDecision)
	assert.Equal(t, 1, countEvents(e, core.EventNewDestination))
}

func TestSetDestinationReachedCallback_Replaces(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	var first, second int
	e.SetDestinationReachedCallback(func(core.Vehicle) { first++ })
	e.SetDestinationReachedCallback(func(core.Vehicle) { second++ })

	e.arrived(core.Vehicle{})

	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}
