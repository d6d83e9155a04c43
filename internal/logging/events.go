package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventsFileName is the JSONL file written inside the data directory.
const EventsFileName = "events.jsonl"

// Event kinds.
const (
	EventBatchCompleted = "batch_completed"
	EventBatchFailed    = "batch_failed"
	EventResultSaved    = "result_saved"
)

// Event is one line of the event log.
type Event struct {
	Time     string `json:"time"`
	Kind     string `json:"kind"`
	Source   string `json:"source,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	ResultID string `json:"result_id,omitempty"`

	Runs             int     `json:"runs,omitempty"`
	Workers          int     `json:"workers,omitempty"`
	Seed             uint64  `json:"seed,omitempty"`
	NChanges         int     `json:"n_changes,omitempty"`
	SystemComplexity float64 `json:"system_complexity,omitempty"`

	AverageFinal float64 `json:"average_final,omitempty"`
	FailureRate  float64 `json:"failure_rate,omitempty"`
	DurationMS   int64   `json:"duration_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// EventLogger appends Events to a JSONL file. It is safe for concurrent use.
// A nil EventLogger is safe to use; all methods are no-ops on nil receiver.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level (the default) it returns nil and no file is created.
// At "debug" or "trace" level the file is opened for append. Returns nil if
// the file cannot be opened.
func NewEventLogger(dir string, level string) *EventLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, EventsFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f, now: time.Now}
}

// Log writes ev as one JSONL line, stamping Time when it is empty.
func (el *EventLogger) Log(ev Event) {
	if el == nil || el.file == nil {
		return
	}

	if ev.Time == "" {
		ev.Time = el.now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	_, _ = el.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
}
