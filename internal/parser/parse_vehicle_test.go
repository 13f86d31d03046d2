package parser

import (
	"testing"

	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleCreate(t *testing.T) {
	req, err := ParseVehicleCreate([]string{`"AV-9"`, "100,200", "[[100,200],[300,200]]"})
	require.NoError(t, err)
	assert.Equal(t, "AV-9", req.ID)
	require.NotNil(t, req.Start)
	assert.Equal(t, core.Position{X: 100, Y: 200}, *req.Start)
	assert.Equal(t, []core.Position{{X: 100, Y: 200}, {X: 300, Y: 200}}, req.Route)
}

func TestParseVehicleCreate_AllOptional(t *testing.T) {
	req, err := ParseVehicleCreate(nil)
	require.NoError(t, err)
	assert.Empty(t, req.ID)
	assert.Nil(t, req.Start)
	assert.Nil(t, req.Route)

	_, err = ParseVehicleCreate([]string{"AV-1", "oops"})
	assert.Error(t, err)

	_, err = ParseVehicleCreate([]string{"AV-1", "", "[["})
	assert.Error(t, err)
}

func TestParseVehicleRef(t *testing.T) {
	id, err := ParseVehicleRef([]string{" AV-1 "})
	require.NoError(t, err)
	assert.Equal(t, "AV-1", id)

	_, err = ParseVehicleRef(nil)
	assert.ErrorIs(t, err, ErrMissingArg)

	_, err = ParseVehicleRef([]string{`""`})
	assert.ErrorIs(t, err, ErrMissingArg)
}

func TestParseWaypointAdd(t *testing.T) {
	tests := []struct {
		name string
		data []string
	}{
		{"separate coordinates", []string{"AV-1", "410", "95.5"}},
		{"combined", []string{"AV-1", "410,95.5"}},
		{"bracketed", []string{"AV-1", "[410,95.5]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseWaypointAdd(tt.data)
			require.NoError(t, err)
			assert.Equal(t, "AV-1", req.VehicleID)
			assert.Equal(t, core.Position{X: 410, Y: 95.5}, req.Point)
		})
	}

	_, err := ParseWaypointAdd([]string{"AV-1", "410"})
	assert.ErrorIs(t, err, ErrMissingArg)
}

func TestParseRouteSet(t *testing.T) {
	req, err := ParseRouteSet([]string{"AV-2", "[[1,2],[3,4],[5,6]]"})
	require.NoError(t, err)
	assert.Equal(t, "AV-2", req.VehicleID)
	assert.Len(t, req.Waypoints, 3)

	_, err = ParseRouteSet([]string{"AV-2"})
	assert.ErrorIs(t, err, ErrMissingArg)
}

func TestParseStorageTour(t *testing.T) {
	req, err := ParseStorageTour([]string{"AV-3", `["A1","B2"]`})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, req.UnitIDs)

	// one unit per argument
	req, err = ParseStorageTour([]string{"AV-3", "A1", "C4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "C4"}, req.UnitIDs)

	_, err = ParseStorageTour([]string{"AV-3"})
	assert.ErrorIs(t, err, ErrMissingArg)
}
