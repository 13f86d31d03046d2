package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avnav/fleetsim/pkg/core"
)

// ExportVersion is bumped whenever the layout of RunExport changes.
const ExportVersion = 1

// RunExport is the root JSON structure
type RunExport struct {
	ExportVersion int           `json:"exportVersion"`
	RunID         string        `json:"runId"`
	Name          string        `json:"name"`
	Map           string        `json:"map"`
	Seed          int64         `json:"seed"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	EndTick       uint          `json:"endTick"`
	Vehicles      []VehicleJSON `json:"vehicles"`
	Events        [][]any       `json:"events"`
}

// VehicleJSON is one vehicle with its samples.
// Positions holds [tick, [x, y], speed, battery, tirePressure, routeIndex, isMoving, decision].
type VehicleJSON struct {
	ID          string                 `json:"id"`
	Start       [2]float64             `json:"start"`
	Destination [2]float64             `json:"destination"`
	Parameters  core.VehicleParameters `json:"parameters"`
	StartTick   uint                   `json:"startTick"`
	Positions   [][]any                `json:"positions"`
	FinalRoute  [][2]float64           `json:"finalRoute"`
}

func xy(p core.Position) [2]float64 {
	return [2]float64{p.X, p.Y}
}

// exportFileName builds name_timestamp.json, with .gz when compressed.
func exportFileName(run *core.Run, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(run.Name)
	if name == "" {
		name = "run"
	}
	filename := fmt.Sprintf("%s_%s.json", name, run.StartTime.Format("20060102_150405"))
	if compress {
		filename += ".gz"
	}
	return filename
}

// exportJSON writes the run data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON(end time.Time) error {
	export := b.buildExport(end)
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.run, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(end time.Time) RunExport {
	export := RunExport{
		ExportVersion: ExportVersion,
		RunID:         b.run.ID,
		Name:          b.run.Name,
		Map:           string(b.run.Map),
		Seed:          b.run.Seed,
		StartTime:     b.run.StartTime,
		EndTime:       end,
		Vehicles:      make([]VehicleJSON, 0, len(b.order)),
		Events:        make([][]any, 0, len(b.logs)),
	}

	for _, id := range b.order {
		record := b.vehicles[id]
		v := record.Vehicle
		entity := VehicleJSON{
			ID:          v.ID,
			Start:       xy(v.Position),
			Destination: xy(v.Destination()),
			Parameters:  v.Parameters,
			Positions:   make([][]any, 0, len(record.States)),
			FinalRoute:  make([][2]float64, 0),
		}

		for i, state := range record.States {
			if i == 0 {
				entity.StartTick = state.Tick
			}
			entity.Positions = append(entity.Positions, []any{
				state.Tick,
				xy(state.Position),
				state.Speed,
				state.Battery,
				state.TirePressure,
				state.RouteIndex,
				boolToInt(state.IsMoving),
				state.Decision,
			})
			if state.Tick > export.EndTick {
				export.EndTick = state.Tick
			}
		}

		route := v.Route
		if n := len(record.States); n > 0 {
			route = record.States[n-1].Route
		}
		for _, p := range route {
			entity.FinalRoute = append(entity.FinalRoute, xy(p))
		}

		export.Vehicles = append(export.Vehicles, entity)
	}

	// Format: [seq, "EVENT", vehicleId, details, [x, y]]
	for _, e := range b.logs {
		export.Events = append(export.Events, []any{
			e.Seq,
			string(e.Event),
			e.VehicleID,
			e.Details,
			xy(e.Position),
		})
	}

	return export
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
