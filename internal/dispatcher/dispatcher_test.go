package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv) }
func (l *testLogger) Info(msg string, kv ...any) { l.log("INFO", msg, kv) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv) }

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":VEHICLE:CREATE:", func(e Event) (any, error) {
		got = e
		return "AV-001", nil
	})

	result, err := d.Dispatch(Event{Command: ":VEHICLE:CREATE:", Args: []string{"AV-001"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "AV-001" {
		t.Errorf("expected 'AV-001', got %v", result)
	}
	if len(got.Args) != 1 || got.Args[0] != "AV-001" {
		t.Errorf("handler saw args %v", got.Args)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected dispatch to stamp the event time")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register(":TRAFFIC:ADD:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":TRAFFIC:ADD:"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register(":FULL:", func(e Event) (any, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	}, Buffered(2))

	// first command occupies the worker
	if _, err := d.Dispatch(Event{Command: ":FULL:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	d.Dispatch(Event{Command: ":FULL:"})
	d.Dispatch(Event{Command: ":FULL:"})

	_, err := d.Dispatch(Event{Command: ":FULL:"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
	// drain the remaining starts so the worker can finish
	go func() {
		for range started {
		}
	}()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 3)
	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_QueuedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)
	d.Register(":ROUTE:SET:", func(e Event) (any, error) {
		defer wg.Done()
		return nil, errors.New("bad polyline")
	}, Buffered(4))

	d.Dispatch(Event{Command: ":ROUTE:SET:"})
	wg.Wait()
	d.Close()

	if logger.count("ERROR") != 1 {
		t.Errorf("expected one error log, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})

	if logger.count("DEBUG") != 2 {
		t.Errorf("expected 2 debug messages, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	if _, err := d.Dispatch(Event{Command: ":ERROR:"}); err == nil {
		t.Error("expected handler error to be returned")
	}

	if logger.count("ERROR") != 1 {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":MAP:SET:", func(e Event) (any, error) { return nil, nil })
	d.Register(":FUEL:DRAIN:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":MAP:SET:") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}

	cmds := d.Commands()
	if len(cmds) != 2 || cmds[0] != ":FUEL:DRAIN:" || cmds[1] != ":MAP:SET:" {
		t.Errorf("unexpected commands %v", cmds)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":PEDESTRIAN:ADD:", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Command: ":PEDESTRIAN:ADD:"})
	}
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after close, got %d", processed.Load())
	}

	if _, err := d.Dispatch(Event{Command: ":PEDESTRIAN:ADD:"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)

	d.Register(":COMBINED:", func(e Event) (any, error) {
		defer wg.Done()
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Command: ":COMBINED:"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	wg.Wait()
	d.Close()

	if logger.count("DEBUG") != 2 {
		t.Errorf("expected logging around the queued handler, got %v", logger.messages)
	}
}

func TestDispatcher_QueueDepths(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register(":VEHICLE:CREATE:", func(e Event) (any, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	}, Buffered(4))
	d.Register(":SIM:STEP:", func(e Event) (any, error) { return nil, nil })

	d.Dispatch(Event{Command: ":VEHICLE:CREATE:"})
	<-started
	d.Dispatch(Event{Command: ":VEHICLE:CREATE:"})
	d.Dispatch(Event{Command: ":VEHICLE:CREATE:"})

	depths := d.queueDepths()
	if len(depths) != 1 {
		t.Errorf("expected only buffered commands, got %v", depths)
	}
	if depths[":VEHICLE:CREATE:"] != 2 {
		t.Errorf("expected 2 waiting, got %d", depths[":VEHICLE:CREATE:"])
	}

	close(block)
	go func() {
		for range started {
		}
	}()
}

func TestCommandMetrics_ZeroValueRecordsNothing(t *testing.T) {
	var cm commandMetrics
	cm.record(":VEHICLE:CREATE:", outcomeProcessed)
	cm.record(":VEHICLE:CREATE:", outcomeFailed)
	cm.record(":VEHICLE:CREATE:", outcomeDropped)
}
