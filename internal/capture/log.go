// Package capture reads the utterance log written by the text capture
// collaborator and imports older journals into it.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log is a newline-delimited utterance file. A missing file reads as empty.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a Log backed by path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the file location.
func (l *Log) Path() string { return l.path }

// Size returns the file size in bytes.
func (l *Log) Size() (int64, error) {
	fi, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat utterance log: %w", err)
	}
	return fi.Size(), nil
}

// ReadLines returns every line, including empty ones, so line indexes match
// the file. A final line without a trailing newline is included.
func (l *Log) ReadLines() ([]string, error) {
	lines, _, err := l.read()
	return lines, err
}

// ReadCompleteLines is ReadLines without a final unterminated line, which the
// capture collaborator may still be writing.
func (l *Log) ReadCompleteLines() ([]string, error) {
	lines, partial, err := l.read()
	if partial {
		lines = lines[:len(lines)-1]
	}
	return lines, err
}

func (l *Log) read() (lines []string, partial bool, err error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("opening utterance log: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		s, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if s != "" {
				lines = append(lines, strings.TrimSuffix(s, "\r"))
				partial = true
			}
			return lines, partial, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading utterance log: %w", err)
		}
		s = strings.TrimSuffix(s, "\n")
		lines = append(lines, strings.TrimSuffix(s, "\r"))
	}
}

// Append writes lines to the end of the log, creating it if needed.
// Embedded newlines are flattened so one entry stays one line.
func (l *Log) Append(lines []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return 0, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("opening utterance log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return n, fmt.Errorf("writing utterance log: %w", err)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("writing utterance log: %w", err)
	}
	return n, nil
}

// Clear truncates the log.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := os.Truncate(l.path, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
