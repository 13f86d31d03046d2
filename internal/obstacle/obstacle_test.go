package obstacle

import (
	"testing"

	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(x, y float64) core.Position { return core.Position{X: x, Y: y} }

func TestCity_RoadsAndBuildings(t *testing.T) {
	city := City()

	assert.True(t, city.IsOnAnyRoad(p(110, 110)), "intersection of North Avenue and 1st Street")
	assert.True(t, city.IsOnAnyRoad(p(400, 320)))
	assert.False(t, city.IsOnAnyRoad(p(200, 200)))

	assert.True(t, city.IsInAnyBuilding(p(200, 200), 0))
	assert.False(t, city.IsInAnyBuilding(p(145, 200), 0))
	assert.True(t, city.IsInAnyBuilding(p(145, 200), 10), "within buffer")
	assert.False(t, city.IsInAnyStorageUnit(p(200, 200), StorageGap), "city has no storage units")
}

func TestWarehouse_StorageUnits(t *testing.T) {
	wh := Warehouse()
	require.Len(t, wh.StorageUnits, 8)

	assert.True(t, wh.IsInAnyStorageUnit(p(240, 250), 0))
	assert.True(t, wh.IsInAnyStorageUnit(p(195, 250), StorageGap))
	assert.False(t, wh.IsInAnyStorageUnit(p(190, 250), StorageGap))
	assert.False(t, wh.IsInAnyStorageUnit(p(110, 110), StorageGap))
	assert.False(t, wh.IsInAnyBuilding(p(240, 250), 0), "warehouse has no buildings")
}

func TestLayout_Placeable(t *testing.T) {
	assert.True(t, City().Placeable(p(110, 110)))
	assert.False(t, City().Placeable(p(200, 200)), "off road")
	assert.False(t, City().Placeable(p(450, 110)), "road overlapped by the mall")
	assert.True(t, Warehouse().Placeable(p(100, 100)))
	assert.False(t, Warehouse().Placeable(p(240, 250)))
	assert.False(t, Warehouse().Placeable(p(900, 100)), "out of bounds")
}

func TestLayout_Clearance(t *testing.T) {
	wh := Warehouse()
	assert.Equal(t, 0.0, wh.Clearance(p(240, 250)))
	assert.InDelta(t, 20.0, wh.Clearance(p(180, 250)), 1e-9)

	empty := Empty(core.MapWarehouse)
	assert.Greater(t, empty.Clearance(p(10, 10)), 900.0)
}

func TestLayout_NearestValid(t *testing.T) {
	got, ok := City().NearestValid(p(200, 200))
	require.True(t, ok)
	assert.True(t, City().Placeable(got))

	got, ok = Warehouse().NearestValid(p(240, 250))
	require.True(t, ok)
	assert.True(t, Warehouse().Placeable(got))
	assert.Less(t, got.X, 200.0+80+20)
}

func TestRect_SegmentHits(t *testing.T) {
	r := NewRect("R", "rect", 100, 100, 50, 50)
	assert.True(t, r.SegmentHits(p(50, 125), p(200, 125), 0), "crosses through")
	assert.False(t, r.SegmentHits(p(50, 50), p(200, 50), 0))
	assert.True(t, r.SegmentHits(p(50, 95), p(200, 95), 8), "inside the gap")
	assert.True(t, r.SegmentHits(p(120, 120), p(500, 500), 0), "starts inside")
}

func TestLayout_FirstBlockerOnSegment(t *testing.T) {
	wh := Warehouse()
	r, ok := wh.FirstBlockerOnSegment(p(100, 250), p(750, 250), StorageGap)
	require.True(t, ok)
	assert.Equal(t, "SU-A1", r.ID)

	_, ok = wh.FirstBlockerOnSegment(p(100, 100), p(700, 100), StorageGap)
	assert.False(t, ok)
}

func TestLayout_SegmentDrivable(t *testing.T) {
	assert.Equal(t, BuildingMotionGap, City().MotionGap())
	assert.Equal(t, StorageGap, Warehouse().MotionGap())

	assert.False(t, City().SegmentDrivable(p(142, 200), p(142, 300)), "8 units beside the office block")
	assert.True(t, City().SegmentDrivable(p(138, 200), p(138, 300)), "12 units beside the office block")
	assert.False(t, Warehouse().SegmentDrivable(p(180, 194), p(300, 194)), "6 units above rack A1")
	assert.True(t, Warehouse().SegmentDrivable(p(180, 190), p(300, 190)), "10 units above rack A1")
	// Diagonal cutting the corner of the gap between both endpoints.
	assert.False(t, Warehouse().SegmentDrivable(p(188, 200), p(200, 188)))
}

func TestRect_CornersAndApproach(t *testing.T) {
	r := NewRect("R", "rect", 100, 100, 50, 20)
	c := r.Corners(5)
	assert.Equal(t, p(95, 95), c[0])
	assert.Equal(t, p(155, 95), c[1])
	assert.Equal(t, p(155, 125), c[2])
	assert.Equal(t, p(95, 125), c[3])
	assert.Equal(t, p(88, 110), r.Approach())
}

func TestChargeStation(t *testing.T) {
	assert.Equal(t, p(120, 120), ChargeStation(core.MapWarehouse))
	cs := ChargeStation(core.MapCity)
	assert.True(t, City().Placeable(cs))
	assert.True(t, Warehouse().Placeable(ChargeStation(core.MapWarehouse)))
}

func TestFor(t *testing.T) {
	assert.Same(t, City(), For(core.MapCity))
	assert.Same(t, Warehouse(), For(core.MapWarehouse))
}
