// Package eventlog records every executed statement as a line of JSON,
// giving sessions a greppable history of what ran and how it ended.
package eventlog

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Entry is one logged statement.
type Entry struct {
	Time        time.Time `json:"time"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	FailedStage int       `json:"failed_stage,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
}

// Log appends entries to a JSON-lines file. The zero value discards
// everything, so callers never need to branch on logging being off.
type Log struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// Open appends to the log file at path, creating it if needed.
func Open(fs afero.Fs, path string) (*Log, error) {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Log{w: f}, nil
}

// Record writes one entry. Errors are swallowed: a broken log must
// never take the shell down with it.
func (l *Log) Record(e Entry) {
	if l == nil || l.w == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(append(data, '\n'))
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

// Read parses a newline delimited JSON log.
func Read(r io.Reader, handler func(e *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			return err
		}
		handler(&entry)
	}
	return nil
}
