// Package audit appends one JSON line per policy enforcement.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
)

type StepSummary struct {
	Role    string `json:"role"`
	Success bool   `json:"success"`
}

// Entry is the shape of one audit line.
type Entry struct {
	Timestamp string        `json:"timestamp"`
	Trace     []StepSummary `json:"trace"`
	Policies  []string      `json:"policies"`
}

// Log appends entries to a file. The file is opened for each record and
// every line goes out in a single write, so concurrent runs never interleave
// partial lines.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

type Option func(*Log)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry. It writes even when ctx is already done: the run
// it describes has completed and must stay on record.
func (l *Log) Record(_ context.Context, trace orchestrator.Trace, policies []string) error {
	entry := Entry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Trace:     make([]StepSummary, len(trace)),
		Policies:  append([]string{}, policies...),
	}
	for i, s := range trace {
		entry.Trace[i] = StepSummary{Role: s.Role, Success: s.Success}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}
