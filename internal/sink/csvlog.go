package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var csvHeader = []string{
	"timestamp", "session_id", "contact",
	"acc_x", "acc_y", "acc_z",
	"gyro_x", "gyro_y", "gyro_z",
	"alpha", "beta", "delta", "theta", "gamma",
}

// CSVLog appends one row per snapshot to <dir>/<session>.csv.
type CSVLog struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVLog opens (or creates) the session file, writing the header when
// the file is empty.
func NewCSVLog(dir, sessionID string) (*CSVLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fileSafe(sessionID)+".csv")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	l := &CSVLog{path: path, file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Path is the file being written.
func (l *CSVLog) Path() string { return l.path }

func (l *CSVLog) Name() string { return "csv-log" }
func (l *CSVLog) Class() Class { return ClassDurable }

func (l *CSVLog) Consume(_ context.Context, v View) error {
	s := v.Snapshot
	row := []string{
		s.Timestamp.UTC().Format(time.RFC3339Nano),
		s.SessionID,
		strconv.FormatBool(s.ContactActive),
		formatFloat(s.Accel.X), formatFloat(s.Accel.Y), formatFloat(s.Accel.Z),
		formatFloat(s.Gyro.X), formatFloat(s.Gyro.Y), formatFloat(s.Gyro.Z),
		formatFloat(s.Alpha), formatFloat(s.Beta), formatFloat(s.Delta),
		formatFloat(s.Theta), formatFloat(s.Gamma),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrClosed
	}
	return l.write(row)
}

// write flushes after every row so a crash loses at most the row in flight.
func (l *CSVLog) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", l.path, err)
	}
	return nil
}

func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.w.Error()
	if syncErr := l.file.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fileSafe keeps session ids usable as file names.
func fileSafe(id string) string {
	if id == "" {
		return "session"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
