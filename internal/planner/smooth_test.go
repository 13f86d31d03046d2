package planner

import (
	"testing"

	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightLine(n int) []core.Position {
	out := make([]core.Position, n)
	for i := range out {
		out[i] = p(100+float64(i)*5, 100)
	}
	return out
}

func TestSmooth_ShortPathsUnchanged(t *testing.T) {
	pl := emptyWarehouse()
	req := request(p(0, 0), p(0, 0), core.MapWarehouse)

	assert.Empty(t, pl.Smooth(nil, req))
	two := []core.Position{p(1, 1), p(2, 2)}
	assert.Equal(t, two, pl.Smooth(two, req))
}

func TestSmooth_StraightLineCollapses(t *testing.T) {
	pl := emptyWarehouse()
	req := request(p(0, 0), p(0, 0), core.MapWarehouse)
	line := straightLine(11)

	got := pl.Smooth(line, req)

	require.GreaterOrEqual(t, len(got), 2)
	assert.Less(t, len(got), len(line))
	assert.Equal(t, line[0], got[0])
	assert.Equal(t, line[len(line)-1], got[len(got)-1])
	assert.Equal(t, line[len(line)-2], got[len(got)-2], "the final point is never reached by a shortcut")
}

func TestSmooth_Idempotent(t *testing.T) {
	pl := New()
	paths := []Request{
		request(p(100, 250), p(740, 250), core.MapWarehouse),
		request(p(110, 110), p(325, 560), core.MapCity),
		request(p(50, 550), p(750, 50), core.MapWarehouse),
	}

	for _, req := range paths {
		route := pl.FindPath(req)
		require.NotEmpty(t, route)
		assert.Equal(t, route, pl.Smooth(route, req))
	}
}

func TestSmooth_LeavesInputIntact(t *testing.T) {
	pl := emptyWarehouse()
	req := request(p(0, 0), p(0, 0), core.MapWarehouse)
	line := straightLine(8)
	before := append([]core.Position(nil), line...)

	_ = pl.Smooth(line, req)

	assert.Equal(t, before, line)
}

func TestHasLineOfSight(t *testing.T) {
	pl := New()

	assert.True(t, pl.HasLineOfSight(p(100, 100), p(700, 100), core.MapWarehouse))
	assert.False(t, pl.HasLineOfSight(p(100, 250), p(700, 250), core.MapWarehouse), "through the racks")
	assert.False(t, pl.HasLineOfSight(p(110, 110), p(320, 320), core.MapCity), "through the office block")
	assert.True(t, pl.HasLineOfSight(p(110, 110), p(110, 500), core.MapCity), "along 1st Street")
	assert.True(t, pl.HasLineOfSight(p(10, 10), p(12, 12), core.MapWarehouse), "shorter than a step")
	assert.True(t, pl.HasLineOfSight(p(143, 200), p(143, 300), core.MapCity), "7 units beside the office block")
	assert.False(t, pl.HasLineOfSight(p(147, 200), p(147, 300), core.MapCity), "3 units beside the office block")

	empty := New(WithLayout(obstacle.Empty(core.MapCity)))
	assert.True(t, empty.HasLineOfSight(p(110, 110), p(320, 320), core.MapCity))
}

func TestSmooth_ShortcutsStayDrivable(t *testing.T) {
	pl := New()
	req := request(p(0, 0), p(0, 0), core.MapCity)
	// The chord from the first to the third point passes 7 units from the
	// office block: in line of sight, but inside the building motion margin.
	path := []core.Position{p(143, 100), p(110, 250), p(143, 400), p(143, 440)}

	require.True(t, pl.HasLineOfSight(path[0], path[2], core.MapCity))
	out := pl.Smooth(path, req)

	assert.Equal(t, path, out)
}
