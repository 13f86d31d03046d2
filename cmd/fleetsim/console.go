package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avnav/fleetsim/internal/dispatcher"
)

// parseCommandLine splits ":WAYPOINT:ADD: AV-001 150,100" into a dispatcher
// event. Blank lines and lines starting with # yield ok == false.
func parseCommandLine(line string) (dispatcher.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return dispatcher.Event{}, false
	}
	fields := strings.Fields(line)
	cmd := strings.ToUpper(fields[0])
	if !strings.HasPrefix(cmd, ":") {
		cmd = ":" + cmd
	}
	if !strings.HasSuffix(cmd, ":") {
		cmd += ":"
	}
	return dispatcher.Event{Command: cmd, Args: fields[1:], Timestamp: time.Now()}, true
}

// runConsole dispatches one command per input line and writes one JSON
// reply per command to out. It returns when in is exhausted or ctx is done.
func runConsole(ctx context.Context, d *dispatcher.Dispatcher, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			e, ok := parseCommandLine(line)
			if !ok {
				continue
			}
			result, err := d.Dispatch(e)
			reply := map[string]any{"command": e.Command}
			if err != nil {
				reply["error"] = err.Error()
			} else {
				reply["result"] = result
			}
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("failed to write reply: %w", err)
			}
		}
	}
}
