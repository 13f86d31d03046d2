package storage

import "github.com/avnav/fleetsim/pkg/core"

// Backend is the interface all recording backends must satisfy.
// Calls between StartRun and EndRun belong to that run.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Registration
	AddVehicle(v *core.Vehicle) error

	// Recording
	RecordVehicleState(s *core.VehicleState) error
	RecordLogEntry(e *core.LogEntry) error
}

// Exportable is an optional interface for backends that write a file per run.
type Exportable interface {
	GetExportedFilePath() string
}

// ExportedPath returns the file written for the last run, if b produces one.
func ExportedPath(b Backend) (string, bool) {
	e, ok := b.(Exportable)
	if !ok {
		return "", false
	}
	path := e.GetExportedFilePath()
	return path, path != ""
}
