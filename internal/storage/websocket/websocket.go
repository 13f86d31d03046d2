package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avnav/fleetsim/pkg/core"
	"github.com/avnav/fleetsim/pkg/streaming"
)

// DefaultAckTimeout bounds how long run_start and run_end wait for the server.
const DefaultAckTimeout = 10 * time.Second

// ErrNoRun is returned by EndRun when no run was started.
var ErrNoRun = errors.New("no run started")

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend streams a run over WebSocket to a remote recorder.
// Run boundaries wait for an ack; everything else is fire-and-forget.
type Backend struct {
	conn *connection
	cfg  Config

	mu    sync.Mutex
	runID string
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped reports how many messages were discarded because the send queue was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope pushes a message to the write loop without waiting.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run header and waits for the server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeRunStart, streaming.RunStartPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStart = data
	b.conn.mu.Unlock()

	b.mu.Lock()
	b.runID = run.ID
	b.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeRunStart, b.cfg.AckTimeout)
}

// EndRun sends run_end and waits for the server ack.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	runID := b.runID
	b.runID = ""
	b.mu.Unlock()

	// replay state is dropped even if the ack never arrives
	b.conn.mu.Lock()
	b.conn.cachedStart = nil
	b.conn.mu.Unlock()

	if runID == "" {
		return ErrNoRun
	}
	data, err := marshalEnvelope(streaming.TypeRunEnd, streaming.RunEndPayload{RunID: runID})
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, streaming.TypeRunEnd, b.cfg.AckTimeout)
}

func (b *Backend) AddVehicle(v *core.Vehicle) error {
	return b.sendEnvelope(streaming.TypeAddVehicle, v)
}

func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	return b.sendEnvelope(streaming.TypeVehicleState, s)
}

func (b *Backend) RecordLogEntry(e *core.LogEntry) error {
	return b.sendEnvelope(streaming.TypeLogEntry, e)
}
