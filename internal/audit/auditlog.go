package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/docker/go-units"
)

// DefaultMaxSize is the audit log's default rotation threshold.
const DefaultMaxSize = 10 * 1024 * 1024 // 10 MiB

// ParseMaxSize parses a human size string ("10MiB", "5MB", ...) as
// used for the configured audit-log rotation size. An empty string
// returns DefaultMaxSize.
func ParseMaxSize(s string) (int64, error) {
	if s == "" {
		return DefaultMaxSize, nil
	}
	size, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parsing audit log max size %q: %w", s, err)
	}
	return size, nil
}

// Log is an append-only JSON-lines audit file with size-based
// rotation: once path exceeds maxSize, it's renamed to path.1 (an
// existing path.1 is overwritten) and a fresh file is opened in its
// place.
type Log struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	file    *os.File
	size    int64
}

// OpenLog opens (creating if absent) the audit log at path, rotating
// immediately if it already exceeds maxSize.
func OpenLog(path string, maxSize int64) (*Log, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	l := &Log{path: path, maxSize: maxSize}
	if err := l.openFile(); err != nil {
		return nil, err
	}
	if l.size > l.maxSize {
		if err := l.rotate(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Log) openFile() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log %s: %w", l.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit log %s: %w", l.path, err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

// Write appends p to the log, rotating first if the write would push
// the file past maxSize. Implements io.Writer so it can sit behind an
// internal/redact.Writer.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size > 0 && l.size+int64(len(p)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := l.file.Write(p)
	l.size += int64(n)
	return n, err
}

func (l *Log) rotate() error {
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("closing audit log for rotation: %w", err)
		}
	}

	rotated := l.path + ".1"
	if err := os.Rename(l.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotating audit log: %w", err)
	}
	return l.openFile()
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
