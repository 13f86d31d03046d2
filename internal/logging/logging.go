package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// sessionLayout names one log file per simulator start.
const sessionLayout = "20060102_150405"

// SessionLog is the log file of one simulator run.
type SessionLog struct {
	File *os.File
	Path string
}

// OpenSessionLog creates logsDir if needed and opens
// <logsDir>/<app>.<start>.log for append. A file already at that path, left
// by a restart within the same second, is kept as <path>.old.
func OpenSessionLog(logsDir, app string, start time.Time) (*SessionLog, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", app, start.Format(sessionLayout)))
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("failed to rotate log file %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &SessionLog{File: f, Path: path}, nil
}
