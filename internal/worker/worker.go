// Package worker forwards each tick's vehicle samples and new decision log
// lines to the recording backend and the telemetry sink.
package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avnav/fleetsim/internal/logging"
	"github.com/avnav/fleetsim/internal/storage"
	"github.com/avnav/fleetsim/pkg/core"
)

// ErrNoRun is returned when a tick is recorded before StartRun.
var ErrNoRun = errors.New("no run started")

// TelemetryWriter receives one point per vehicle sample.
type TelemetryWriter interface {
	WriteVehicleState(mapVariant core.MapVariant, s core.VehicleState) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
	Telemetry  TelemetryWriter // optional
}

// Manager owns the recording side of a run.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu         sync.Mutex
	run        *core.Run
	registered map[string]bool
	lastSeq    uint64
	failures   uint64
}

// NewManager creates a new worker manager. backend may be nil, in which
// case only telemetry is written.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Manager{
		deps:       deps,
		backend:    backend,
		registered: make(map[string]bool),
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// Backend returns the recording backend, or nil.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// StartRun opens a run on the backend and resets per-run bookkeeping.
func (m *Manager) StartRun(run *core.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasBackend() {
		if err := m.backend.StartRun(run); err != nil {
			return fmt.Errorf("failed to start run: %w", err)
		}
	}
	m.run = run
	m.registered = make(map[string]bool)
	m.lastSeq = 0
	m.deps.LogManager.WriteLog("worker:StartRun", fmt.Sprintf("Recording run %s (%s)", run.ID, run.Name), "INFO")
	return nil
}

// EndRun closes the current run on the backend.
func (m *Manager) EndRun() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return ErrNoRun
	}
	m.run = nil
	if !m.hasBackend() {
		return nil
	}
	if err := m.backend.EndRun(); err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	if path, ok := storage.ExportedPath(m.backend); ok {
		m.deps.LogManager.WriteLog("worker:EndRun", fmt.Sprintf("Run exported to %s", path), "INFO")
	}
	return nil
}

// Run returns the run being recorded, or nil.
func (m *Manager) Run() *core.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run
}

// LastSeq is the sequence number of the newest log entry recorded.
func (m *Manager) LastSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeq
}

// Failures counts individual writes that returned an error.
func (m *Manager) Failures() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// RecordTick registers vehicles seen for the first time, records one
// sample per vehicle and forwards log entries newer than LastSeq.
// Every write is attempted; the errors are joined.
func (m *Manager) RecordTick(tick uint, at time.Time, mapVariant core.MapVariant, vehicles []core.Vehicle, logs []core.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return ErrNoRun
	}

	var errs []error
	fail := func(err error) {
		if err != nil {
			m.failures++
			errs = append(errs, err)
		}
	}

	for _, v := range vehicles {
		if m.hasBackend() && !m.registered[v.ID] {
			if err := m.backend.AddVehicle(&v); err != nil {
				fail(fmt.Errorf("add vehicle %s: %w", v.ID, err))
				continue
			}
			m.registered[v.ID] = true
		}

		state := core.StateOf(m.run.ID, tick, at, v)
		if m.hasBackend() {
			fail(m.backend.RecordVehicleState(&state))
		}
		if m.deps.Telemetry != nil {
			fail(m.deps.Telemetry.WriteVehicleState(mapVariant, state))
		}
	}

	for _, e := range logs {
		if e.Seq <= m.lastSeq {
			continue
		}
		if m.hasBackend() {
			fail(m.backend.RecordLogEntry(&e))
		}
		m.lastSeq = e.Seq
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		m.deps.LogManager.WriteLog("worker:RecordTick", fmt.Sprintf("Tick %d: %v", tick, err), "ERROR")
		return err
	}
	return nil
}
