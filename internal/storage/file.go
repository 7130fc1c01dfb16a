package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var ErrRecorderClosed = errors.New("interaction log is closed")

// FileRecorder is the JSON Lines interaction log the daily report is built
// from. The append handle stays open for the recorder's lifetime and every
// event goes out as one line in a single write, so concurrent turns never
// interleave inside a line.
type FileRecorder struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewFileRecorder opens (or creates) the log at path, creating parent
// directories as needed. Existing events are kept.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open interaction log: %w", err)
	}
	return &FileRecorder{path: path, f: f}, nil
}

func (r *FileRecorder) AppendInteraction(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return ErrRecorderClosed
	}
	if _, err := r.f.Write(line); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// LoadInteractions reads the whole log in write order. Lines that do not
// decode, such as a torn last line after a crash, are skipped.
func (r *FileRecorder) LoadInteractions() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()
	return decodeEvents(bufio.NewReader(f))
}

func decodeEvents(rd *bufio.Reader) ([]Event, error) {
	var events []Event
	for {
		line, err := rd.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var ev Event
			if json.Unmarshal(line, &ev) == nil {
				events = append(events, ev)
			}
		}
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read interaction log: %w", err)
		}
	}
}

// Close releases the append handle. Later appends fail with
// ErrRecorderClosed; loading still works.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
