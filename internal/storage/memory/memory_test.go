package memory

import (
	"testing"
	"time"

	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/internal/storage"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Exportable = (*Backend)(nil)
)

func startedBackend(t *testing.T, cfg config.MemoryConfig) *Backend {
	t.Helper()
	b := New(cfg)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(&core.Run{
		ID:        "run-1",
		Name:      "morning",
		Map:       core.MapCity,
		StartTime: time.Date(2024, 3, 2, 7, 15, 0, 0, time.UTC),
	}))
	return b
}

func TestOutsideRun(t *testing.T) {
	b := New(config.MemoryConfig{})
	v := core.Vehicle{ID: "AV-1"}
	assert.ErrorIs(t, b.AddVehicle(&v), ErrNoRun)
	assert.ErrorIs(t, b.RecordVehicleState(&core.VehicleState{VehicleID: "AV-1"}), ErrNoRun)
	assert.ErrorIs(t, b.RecordLogEntry(&core.LogEntry{}), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(), ErrNoRun)
}

func TestAddVehicle_CopiesRoute(t *testing.T) {
	b := startedBackend(t, config.MemoryConfig{})

	v := core.Vehicle{ID: "AV-1", Route: []core.Position{{X: 1, Y: 1}, {X: 9, Y: 9}}}
	require.NoError(t, b.AddVehicle(&v))
	v.Route[1] = core.Position{X: 0, Y: 0}

	record, ok := b.GetVehicle("AV-1")
	require.True(t, ok)
	assert.Equal(t, core.Position{X: 9, Y: 9}, record.Vehicle.Route[1])
}

func TestAddVehicle_TwiceKeepsStates(t *testing.T) {
	b := startedBackend(t, config.MemoryConfig{})

	v := core.Vehicle{ID: "AV-1"}
	require.NoError(t, b.AddVehicle(&v))
	require.NoError(t, b.RecordVehicleState(&core.VehicleState{VehicleID: "AV-1", Tick: 1}))
	v.Position = core.Position{X: 4, Y: 4}
	require.NoError(t, b.AddVehicle(&v))

	record, ok := b.GetVehicle("AV-1")
	require.True(t, ok)
	assert.Len(t, record.States, 1)
	assert.Equal(t, core.Position{X: 4, Y: 4}, record.Vehicle.Position)
}

func TestRecordVehicleState_UnregisteredVehicle(t *testing.T) {
	b := startedBackend(t, config.MemoryConfig{})

	require.NoError(t, b.RecordVehicleState(&core.VehicleState{VehicleID: "ghost", Tick: 3, Position: core.Position{X: 2, Y: 2}}))

	record, ok := b.GetVehicle("ghost")
	require.True(t, ok)
	assert.Equal(t, core.Position{X: 2, Y: 2}, record.Vehicle.Position)
	assert.Len(t, record.States, 1)
}

func TestStartRun_Resets(t *testing.T) {
	b := startedBackend(t, config.MemoryConfig{})
	v := core.Vehicle{ID: "AV-1"}
	require.NoError(t, b.AddVehicle(&v))
	require.NoError(t, b.RecordLogEntry(&core.LogEntry{Seq: 1}))

	require.NoError(t, b.StartRun(&core.Run{ID: "run-2"}))

	_, ok := b.GetVehicle("AV-1")
	assert.False(t, ok)
	assert.Empty(t, b.LogEntries())
}
