package engine

import (
	"testing"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldReroute(t *testing.T) {
	straight := func() core.Vehicle {
		return vehicleOn(p(100, 100), p(110, 100), p(120, 100), p(130, 100), p(140, 100), p(300, 100))
	}

	tests := []struct {
		name   string
		setup  func(*core.Vehicle, *Tick)
		reason core.RerouteReason
		event  core.EventCode
	}{
		{
			name:  "healthy vehicle on a clear road",
			setup: func(*core.Vehicle, *Tick) {},
		},
		{
			name:   "critical battery",
			setup:  func(v *core.Vehicle, _ *Tick) { v.Parameters.BatteryPercentage = 14 },
			reason: core.ReasonCriticalBattery,
			event:  core.EventBatteryLow,
		},
		{
			name: "critical battery already being handled",
			setup: func(v *core.Vehicle, _ *Tick) {
				v.Parameters.BatteryPercentage = 14
				v.LastDecision = core.Rerouting(core.ReasonCriticalBattery)
			},
		},
		{
			name:   "low tire pressure",
			setup:  func(v *core.Vehicle, _ *Tick) { v.Parameters.TirePressure = 70 },
			reason: core.ReasonLowTirePressure,
			event:  core.EventTirePressureLow,
		},
		{
			name: "low battery mode ignores the rest",
			setup: func(v *core.Vehicle, _ *Tick) {
				v.LowBatteryMode = true
				v.Parameters.TirePressure = 70
			},
		},
		{
			name: "high traffic ahead",
			setup: func(_ *core.Vehicle, tk *Tick) {
				tk.Traffic = []core.TrafficCondition{{Position: p(200, 115), Severity: core.SeverityHigh, AffectedRadius: 20}}
			},
			reason: core.ReasonHighTrafficAhead,
			event:  core.EventHighTrafficAvoid,
		},
		{
			name: "high traffic behind",
			setup: func(_ *core.Vehicle, tk *Tick) {
				tk.Traffic = []core.TrafficCondition{{Position: p(20, 100), Severity: core.SeverityHigh, AffectedRadius: 20}}
			},
		},
		{
			name: "medium traffic on four waypoints",
			setup: func(_ *core.Vehicle, tk *Tick) {
				tk.Traffic = []core.TrafficCondition{{Position: p(125, 100), Severity: core.SeverityMedium, AffectedRadius: 20}}
			},
			reason: core.ReasonTrafficAccumulation,
			event:  core.EventTrafficAccumulation,
		},
		{
			name: "medium traffic on three waypoints",
			setup: func(_ *core.Vehicle, tk *Tick) {
				tk.Traffic = []core.TrafficCondition{{Position: p(130, 100), Severity: core.SeverityMedium, AffectedRadius: 10}}
			},
		},
		{
			name: "pedestrian next to a waypoint",
			setup: func(_ *core.Vehicle, tk *Tick) {
				tk.Pedestrians = []core.Pedestrian{{ID: "PED-001", Position: p(120, 125)}}
			},
			reason: core.ReasonPedestrianBlocking,
			event:  core.EventPedestrianReroute,
		},
		{
			name: "arrived vehicle",
			setup: func(v *core.Vehicle, _ *Tick) {
				v.Parameters.BatteryPercentage = 5
				v.CurrentRouteIndex = len(v.Route) - 1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(core.MapWarehouse)
			v, tk := straight(), tick()
			tt.setup(&v, &tk)
			before := v.Clone()

			dec := e.ShouldReroute(v, tk)

			assert.Equal(t, before, v)
			assert.Empty(t, e.Logs(), "deciding writes no log")
			if tt.event == "" {
				assert.False(t, dec.Needed, "unexpected %s", dec.Reason)
				return
			}
			assert.True(t, dec.Needed)
			assert.Equal(t, tt.reason, dec.Reason)
			assert.Equal(t, tt.event, dec.Event)
			assert.NotEmpty(t, dec.Details)
			assert.False(t, dec.Precomputed)
		})
	}
}

func TestShouldReroute_CityWaypointInBuilding(t *testing.T) {
	e := newTestEngine(core.MapCity)
	// 10 units inside the office block's west wall.
	v := vehicleOn(p(110, 110), p(160, 250))

	dec := e.ShouldReroute(v, tick())

	require.True(t, dec.Needed)
	assert.Equal(t, core.ReasonBuildingInPath, dec.Reason)
	assert.True(t, dec.Precomputed)
	require.Greater(t, len(dec.Route), 1)
	assert.Equal(t, p(110, 110), dec.Route[0])
	assert.True(t, obstacle.City().Clear(dec.Route[len(dec.Route)-1]), "waypoint moved out of the building")
	assert.Empty(t, e.Logs())
}

func TestUpdateVehicle_WaypointDeepInsideBuildingHalts(t *testing.T) {
	e := newTestEngine(core.MapCity)
	// The centre of the office block is beyond the retarget radius.
	v := vehicleOn(p(110, 110), p(210, 250))

	out := e.UpdateVehicle(v, tick(), 0)

	assert.Equal(t, p(110, 110), out.Position)
	assert.False(t, out.IsMoving)
	assert.Equal(t, core.Unreachable(core.CauseBuilding), out.LastDecision)
	assert.Equal(t, 1, countEvents(e, core.EventUnreachable))

	out = e.UpdateVehicle(out, tick(), 0)
	assert.Equal(t, 1, countEvents(e, core.EventUnreachable), "logged once per cause")
}

func TestRebuildRoute_ChainsWaypoints(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(100, 100), p(150, 100), p(150, 150))

	route, notes := e.rebuildRoute(v, nil, nil, core.MapWarehouse)

	assert.Empty(t, notes)
	assert.Equal(t, p(100, 100), route[0])
	assert.Equal(t, p(150, 150), route[len(route)-1])
	assert.Contains(t, route, p(150, 100))
	for i := 1; i < len(route); i++ {
		assert.NotEqual(t, route[i-1], route[i], "segments joined without repeating points")
	}
}

func TestRebuildRoute_StartsFromCurrentIndex(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(50, 50), p(100, 100), p(150, 100))
	v.Position = p(100, 100)
	v.CurrentRouteIndex = 1

	route, _ := e.rebuildRoute(v, nil, nil, core.MapWarehouse)

	assert.Equal(t, p(100, 100), route[0])
	assert.NotContains(t, route, p(50, 50))
	assert.Equal(t, p(150, 100), route[len(route)-1])
}

func TestRebuildRoute_RetargetsBlockedWaypoint(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	inside := p(240, 250)
	v := vehicleOn(p(100, 100), inside)

	route, notes := e.rebuildRoute(v, nil, nil, core.MapWarehouse)

	require.Greater(t, len(route), 1)
	end := route[len(route)-1]
	assert.True(t, obstacle.Warehouse().Clear(end))
	assert.LessOrEqual(t, geo.Distance(end, inside), float64(retargetMaxRadius))
	require.Len(t, notes, 1)
	assert.Equal(t, core.EventWaypointRetarget, notes[0].event)
}

func TestRebuildRoute_SkipsUnreachableWaypoint(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	v := vehicleOn(p(100, 100), p(900, 100), p(300, 100))

	route, notes := e.rebuildRoute(v, nil, nil, core.MapWarehouse)

	assert.Equal(t, p(100, 100), route[0])
	assert.Equal(t, p(300, 100), route[len(route)-1])
	require.Len(t, notes, 1)
	assert.Equal(t, core.EventWaypointSkipped, notes[0].event)
}

func TestDetour_ShorterSideOfStorageUnit(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)
	layout := obstacle.Warehouse()

	route := e.detour(p(150, 250), p(310, 250), layout)

	pad := obstacle.StorageGap + detourMargin
	assert.Equal(t, []core.Position{p(150, 250), p(200-pad, 200-pad), p(280+pad, 200-pad), p(310, 250)}, route)
	for i := 1; i < len(route); i++ {
		assert.True(t, e.Planner().HasLineOfSight(route[i-1], route[i], core.MapWarehouse))
	}
}

func TestDetour_NothingInTheWay(t *testing.T) {
	e := newTestEngine(core.MapWarehouse)

	assert.Nil(t, e.detour(p(100, 100), p(300, 100), obstacle.Warehouse()))
}

func TestRetarget(t *testing.T) {
	layout := obstacle.Warehouse()

	_, ok := retarget(p(100, 100), layout)
	assert.False(t, ok, "clear waypoints stay put")

	got, ok := retarget(p(240, 250), layout)
	require.True(t, ok)
	assert.True(t, layout.Clear(got))
	assert.InDelta(t, 51, geo.Distance(got, p(240, 250)), 1e-9)

	_, ok = retarget(p(900, 100), layout)
	assert.False(t, ok, "nothing on the map within reach")
}

func TestCheckPedestrians(t *testing.T) {
	v := vehicleOn(p(100, 100), p(300, 100))
	ped := func(x, y float64) core.Pedestrian {
		return core.Pedestrian{ID: "PED-001", Position: p(x, y), Destination: p(x, y)}
	}

	tests := []struct {
		name string
		peds []core.Pedestrian
		want pedestrianOutcome
	}{
		{"none", nil, pedestrianNone},
		{"stop range", []core.Pedestrian{ped(108, 100)}, pedestrianStop},
		{"slow range", []core.Pedestrian{ped(150, 105)}, pedestrianSlow},
		{"too far", []core.Pedestrian{ped(190, 100)}, pedestrianNone},
		{"beside the lane", []core.Pedestrian{ped(150, 120)}, pedestrianNone},
		{"stop wins over slow", []core.Pedestrian{ped(150, 100), ped(104, 100)}, pedestrianStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPedestrians(v, tt.peds).outcome)
		})
	}
}

func TestCheckPedestrians_ArrivedVehicle(t *testing.T) {
	v := vehicleOn(p(100, 100))
	peds := []core.Pedestrian{{ID: "PED-001", Position: p(101, 100)}}

	assert.Equal(t, pedestrianNone, checkPedestrians(v, peds).outcome)
}

func TestVehicleAhead(t *testing.T) {
	v := vehicleOn(p(100, 100), p(300, 100))
	ahead := vehicleOn(p(150, 100))
	ahead.ID = "AV-002"
	behind := vehicleOn(p(60, 100))
	behind.ID = "AV-003"

	got, ok := vehicleAhead(v, []core.Vehicle{v, behind, ahead}, 0)
	require.True(t, ok)
	assert.Equal(t, "AV-002", got.ID)

	_, ok = vehicleAhead(v, []core.Vehicle{v, behind}, 0)
	assert.False(t, ok)
}

func TestPredictCollision(t *testing.T) {
	a := vehicleOn(p(100, 100), p(300, 100))
	headOn := vehicleOn(p(200, 100), p(0, 100))
	headOn.ID = "AV-002"
	parallel := vehicleOn(p(100, 200), p(300, 200))
	parallel.ID = "AV-003"

	other, ms, ok := predictCollision(a, []core.Vehicle{a, headOn}, 0)
	require.True(t, ok)
	assert.Equal(t, "AV-002", other.ID)
	assert.LessOrEqual(t, ms, collisionWindowMs)

	_, _, ok = predictCollision(a, []core.Vehicle{a, parallel}, 0)
	assert.False(t, ok)
}
