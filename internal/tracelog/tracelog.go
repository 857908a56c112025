// Package tracelog persists step-by-step narratives of reconciliation runs.
package tracelog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File is an append-only trace file.
type File struct {
	*os.File
}

// Open creates the logs directory when needed and opens
// `<dir>/<prefix>-<unix>.log` for appending, writing a header naming the
// operation and the time it started.
func Open(dir, prefix, operation string, now time.Time) (*File, error) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("logs path `%s` should not be a file", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", prefix, now.Unix()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	header := fmt.Sprintf("%s\nLogs for `%s`\n\nTimestamp: %s\n", strings.Repeat("=", 80), operation, now.Format(time.RFC3339))
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write trace header: %w", err)
	}
	return &File{File: f}, nil
}

// Close terminates the trace with an empty line.
func (f *File) Close() error {
	_, werr := f.WriteString("\n")
	if err := f.File.Close(); err != nil {
		return err
	}
	return werr
}
