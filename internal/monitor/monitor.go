package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avnav/fleetsim/internal/logging"
	"github.com/avnav/fleetsim/internal/model"
	"github.com/avnav/fleetsim/internal/sim"
	"github.com/avnav/fleetsim/internal/worker"

	"gorm.io/gorm"
)

// DefaultInterval is the time between two status samples.
const DefaultInterval = time.Second

// StatusFileName is written in Dependencies.OutputDir.
const StatusFileName = "status.txt"

// queueLengther is implemented by backends with write queues.
type queueLengther interface {
	QueueLengths() map[string]int
}

// dropCounter is implemented by backends that can drop messages.
type dropCounter interface {
	Dropped() uint64
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB         *gorm.DB // optional, receives one performance row per sample
	LogManager *logging.SlogManager
	Runner     *sim.Runner
	Recorder   *worker.Manager // optional
	OutputDir  string          // status file location, empty disables the file
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus samples the world and the recorder. output holds the
// requested sections as indented JSON.
func (s *Service) GetProgramStatus(writeQueues bool, lastTick bool) (output []string, perf model.RunPerformance) {
	w := s.deps.Runner.World()

	perf = model.RunPerformance{
		Time:        time.Now(),
		Map:         string(w.Map),
		Tick:        w.Tick,
		Vehicles:    uint16(len(w.Vehicles)),
		Moving:      uint16(w.Moving()),
		Traffic:     uint16(len(w.Traffic)),
		Pedestrians: uint16(len(w.Pedestrians)),
		Reroutes:    s.deps.Runner.Reroutes(),
		LastTickMs:  float32(s.deps.Runner.LastTickDuration().Microseconds()) / 1000,
	}

	queues := map[string]int{}
	if rec := s.deps.Recorder; rec != nil {
		if run := rec.Run(); run != nil {
			perf.RunID = run.ID
		}
		perf.RecorderFailures = rec.Failures()
		if q, ok := rec.Backend().(queueLengther); ok {
			queues = q.QueueLengths()
		}
		if d, ok := rec.Backend().(dropCounter); ok {
			perf.StreamDropped = d.Dropped()
		}
	}
	queuesJSON, err := json.Marshal(queues)
	if err == nil {
		perf.WriteQueues = queuesJSON
	}

	summary, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		summary = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(summary))

	if writeQueues {
		writeQueuesStr, err := json.MarshalIndent(queues, "", "  ")
		if err != nil {
			writeQueuesStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(writeQueuesStr))
	}
	if lastTick {
		lastTickStr, err := json.MarshalIndent(perf.LastTickMs, "", "  ")
		if err != nil {
			lastTickStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(lastTickStr))
	}

	return output, perf
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.OutputDir != "" {
		if err := os.MkdirAll(s.deps.OutputDir, 0o755); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to create status dir: %w", err)
		}
		f, err := os.Create(filepath.Join(s.deps.OutputDir, StatusFileName))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to create status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.sample(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) sample(statusFile *os.File) {
	logger := s.deps.LogManager.Logger()

	if s.deps.Recorder != nil && s.deps.Recorder.Run() == nil {
		return
	}

	statusStr, perfModel := s.GetProgramStatus(true, true)

	if statusFile != nil {
		if err := statusFile.Truncate(0); err != nil {
			logger.Error("Error truncating status file", "error", err)
			return
		}
		if _, err := statusFile.Seek(0, 0); err != nil {
			logger.Error("Error rewinding status file", "error", err)
			return
		}
		for _, line := range statusStr {
			if _, err := statusFile.WriteString(line + "\n"); err != nil {
				logger.Error("Error writing status file", "error", err)
				return
			}
		}
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Create(&perfModel).Error; err != nil {
			logger.Error("Error writing performance sample", "error", err)
		}
	}
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
