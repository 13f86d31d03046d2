package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/pkg/core"
)

// ErrNoRun is returned when data arrives outside a run.
var ErrNoRun = errors.New("no run started")

// VehicleRecord groups a vehicle with all its time-series data
type VehicleRecord struct {
	Vehicle core.Vehicle
	States  []core.VehicleState
}

// Backend stores run data in memory and exports to JSON when the run ends
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	run      *core.Run
	vehicles map[string]*VehicleRecord
	order    []string // registration order of vehicle IDs
	logs     []core.LogEntry

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		now:      time.Now,
		vehicles: make(map[string]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.vehicles = make(map[string]*VehicleRecord)
	b.order = nil
	b.logs = nil
	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	err := b.exportJSON(b.now().UTC())
	b.run = nil
	return err
}

// AddVehicle registers a vehicle. Registering an ID twice replaces the
// stored vehicle and keeps its states.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	if record, ok := b.vehicles[v.ID]; ok {
		record.Vehicle = v.Clone()
		return nil
	}
	b.vehicles[v.ID] = &VehicleRecord{Vehicle: v.Clone()}
	b.order = append(b.order, v.ID)
	return nil
}

// RecordVehicleState appends a sample to its vehicle's record
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	record, ok := b.vehicles[s.VehicleID]
	if !ok {
		// states for vehicles that were never registered still get a record
		record = &VehicleRecord{Vehicle: core.Vehicle{ID: s.VehicleID, Position: s.Position}}
		b.vehicles[s.VehicleID] = record
		b.order = append(b.order, s.VehicleID)
	}
	state := *s
	if state.Route != nil {
		state.Route = append([]core.Position(nil), s.Route...)
	}
	record.States = append(record.States, state)
	return nil
}

// RecordLogEntry appends a decision log line
func (b *Backend) RecordLogEntry(e *core.LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.logs = append(b.logs, *e)
	return nil
}

// GetVehicle returns the record of a vehicle in the current run
func (b *Backend) GetVehicle(id string) (VehicleRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vehicles[id]
	if !ok {
		return VehicleRecord{}, false
	}
	out := VehicleRecord{Vehicle: record.Vehicle.Clone()}
	out.States = append(out.States, record.States...)
	return out, true
}

// LogEntries returns a copy of the recorded log lines
func (b *Backend) LogEntries() []core.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LogEntry(nil), b.logs...)
}

// GetExportedFilePath returns the file written by the last EndRun
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
