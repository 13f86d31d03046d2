// Package streaming defines the wire format used to stream a run to a
// remote recorder over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/avnav/fleetsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeRunStart     = "run_start"
	TypeRunEnd       = "run_end"
	TypeAddVehicle   = "add_vehicle"
	TypeVehicleState = "vehicle_state"
	TypeLogEntry     = "log_entry"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// RunStartPayload carries the run header.
type RunStartPayload struct {
	Run *core.Run `json:"run"`
}

// RunEndPayload closes the run identified by RunID.
type RunEndPayload struct {
	RunID string `json:"runId"`
}
