// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/internal/database"
	"github.com/avnav/fleetsim/internal/logging"
	"github.com/avnav/fleetsim/internal/model"
	"github.com/avnav/fleetsim/internal/model/convert"
	"github.com/avnav/fleetsim/internal/queue"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultWriteInterval is how often queued rows are written when
// Dependencies.WriteInterval is unset.
const DefaultWriteInterval = 2 * time.Second

// ErrNoRun is returned when rows are recorded outside a run.
var ErrNoRun = errors.New("no run started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as-is when set; otherwise Init connects to Postgres
	// using DBConfig.
	DB            *gorm.DB
	DBConfig      config.DBConfig
	DBLogger      zerolog.Logger
	LogManager    *logging.SlogManager
	WriteInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles      *queue.Queue[model.Vehicle]
	VehicleStates *queue.Queue[model.VehicleState]
	LogEntries    *queue.Queue[model.LogEntry]
}

func newQueues() *queues {
	return &queues{
		Vehicles:      queue.New[model.Vehicle](),
		VehicleStates: queue.New[model.VehicleState](),
		LogEntries:    queue.New[model.LogEntry](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu    sync.Mutex // guards runID and serializes flushes
	runID string

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		manager := database.NewManager(b.deps.DBLogger, b.deps.DBConfig)
		if err := manager.Connect(); err != nil {
			return err
		}
		b.deps.DB = manager.DB
	}

	b.deps.LogManager.WriteLog("gorm:Init", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	b.startDBWriter()
	return nil
}

// DB returns the connection the backend writes to.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done
	return nil
}

// StartRun inserts the run synchronously so queued rows can reference it.
func (b *Backend) StartRun(run *core.Run) error {
	gormRun := convert.CoreToRun(*run)
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	b.mu.Lock()
	b.runID = gormRun.ID
	b.mu.Unlock()

	b.deps.LogManager.WriteLog("gorm:StartRun", fmt.Sprintf("Run %s started on %s", run.ID, run.Map), "INFO")
	return nil
}

// EndRun writes everything still queued and stamps the run's end time.
func (b *Backend) EndRun() error {
	b.flush()

	b.mu.Lock()
	runID := b.runID
	b.runID = ""
	b.mu.Unlock()

	if runID == "" {
		return ErrNoRun
	}
	err := b.deps.DB.Model(&model.Run{}).
		Where("id = ?", runID).
		Update("end_time", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

func (b *Backend) currentRun() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runID == "" {
		return "", ErrNoRun
	}
	return b.runID, nil
}

// AddVehicle converts a core vehicle to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	runID, err := b.currentRun()
	if err != nil {
		return err
	}
	b.queues.Vehicles.Push(convert.CoreToVehicle(runID, *v))
	return nil
}

// RecordVehicleState converts and queues a vehicle state.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	runID, err := b.currentRun()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToVehicleState(*s)
	gormObj.RunID = runID
	b.queues.VehicleStates.Push(gormObj)
	return nil
}

// RecordLogEntry converts and queues a decision log line.
func (b *Backend) RecordLogEntry(e *core.LogEntry) error {
	runID, err := b.currentRun()
	if err != nil {
		return err
	}
	b.queues.LogEntries.Push(convert.CoreToLogEntry(runID, *e))
	return nil
}

// QueueLengths reports how many rows are waiting per table.
func (b *Backend) QueueLengths() map[string]int {
	if b.queues == nil {
		return map[string]int{}
	}
	return map[string]int{
		"vehicles":       b.queues.Vehicles.Len(),
		"vehicle_states": b.queues.VehicleStates.Len(),
		"log_entries":    b.queues.LogEntries.Len(),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back to the front of the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) bool {
	if q.Empty() {
		return true
	}

	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		q.Requeue(items...)
		return false
	}
	return true
}

// flush drains the queues parents first, so a vehicle row always exists
// before its states are written.
func (b *Backend) flush() {
	if b.queues == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	db := b.deps.DB
	log := b.deps.LogManager.WriteLog
	if !writeQueue(db, b.queues.Vehicles, "vehicles", log) {
		return
	}
	writeQueue(db, b.queues.VehicleStates, "vehicle states", log)
	writeQueue(db, b.queues.LogEntries, "log entries", log)
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.deps.WriteInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				b.flush()
				return
			case <-ticker.C:
				b.flush()
			}
		}
	}()
}
