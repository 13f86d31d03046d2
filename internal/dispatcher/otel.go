package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/avnav/fleetsim/internal/dispatcher"

// outcome of one queued command, recorded per command name.
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFailed
	outcomeDropped
)

// commandMetrics holds the dispatcher's queue instruments. The zero value
// records nothing.
type commandMetrics struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

// newCommandMetrics builds the counters and a queue depth gauge observed
// through depths, on the global meter (no-op if not configured).
func newCommandMetrics(depths func() map[string]int) (commandMetrics, error) {
	m := otel.Meter(instrumentationName)

	var cm commandMetrics
	var err error

	gauge, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Commands waiting in a handler queue"))
	if err != nil {
		return cm, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range depths() {
			o.ObserveInt64(gauge, int64(n), metric.WithAttributes(commandAttr(cmd)))
		}
		return nil
	}, gauge)
	if err != nil {
		return cm, fmt.Errorf("registering queue callback: %w", err)
	}

	if cm.processed, err = m.Int64Counter("dispatcher.commands.processed",
		metric.WithDescription("Queued commands handled")); err != nil {
		return cm, fmt.Errorf("creating processed counter: %w", err)
	}
	if cm.dropped, err = m.Int64Counter("dispatcher.commands.dropped",
		metric.WithDescription("Commands rejected by a full queue")); err != nil {
		return cm, fmt.Errorf("creating dropped counter: %w", err)
	}
	if cm.failed, err = m.Int64Counter("dispatcher.commands.failed",
		metric.WithDescription("Queued commands whose handler returned an error")); err != nil {
		return cm, fmt.Errorf("creating failed counter: %w", err)
	}
	return cm, nil
}

func (cm commandMetrics) record(command string, o outcome) {
	var c metric.Int64Counter
	switch o {
	case outcomeProcessed:
		c = cm.processed
	case outcomeFailed:
		c = cm.failed
	case outcomeDropped:
		c = cm.dropped
	}
	if c == nil {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(commandAttr(command)))
}

func commandAttr(command string) attribute.KeyValue {
	return attribute.String("command", command)
}
