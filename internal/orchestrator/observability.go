package orchestrator

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// StepObserver receives every record the Step Executor produces. The parallel
// engine calls it from several goroutines at once.
type StepObserver interface {
	ObserveStep(rec StepRecord)
}

type StepLogger struct {
	logger *slog.Logger
}

func NewStepLogger(logger *slog.Logger) *StepLogger {
	return &StepLogger{logger: logger}
}

func (l *StepLogger) ObserveStep(rec StepRecord) {
	if l == nil || l.logger == nil {
		return
	}
	attrs := []any{
		"role", rec.Role,
		"success", rec.Success,
		"duration_ms", rec.Duration,
	}
	if rec.NodeID != "" {
		attrs = append(attrs, "node_id", rec.NodeID)
	}
	if !rec.Success {
		l.logger.Warn("orchestrator_step", append(attrs, "error", rec.Error)...)
		return
	}
	l.logger.Info("orchestrator_step", attrs...)
}

// MultiObserver fans a record out to each observer in order.
type MultiObserver []StepObserver

func (m MultiObserver) ObserveStep(rec StepRecord) {
	for _, o := range m {
		if o != nil {
			o.ObserveStep(rec)
		}
	}
}

// AsyncStepObserver forwards records to next from a single goroutine. When the
// buffer is full the record is dropped and counted instead of blocking the run.
type AsyncStepObserver struct {
	next    StepObserver
	events  chan StepRecord
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewAsyncStepObserver(next StepObserver, buffer int) *AsyncStepObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncStepObserver{
		next:   next,
		events: make(chan StepRecord, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for rec := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveStep(rec)
		}
	}()

	return o
}

func (o *AsyncStepObserver) ObserveStep(rec StepRecord) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- rec:
	default:
		o.dropped.Add(1)
	}
}

func (o *AsyncStepObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

// Close flushes buffered records and stops the worker. Safe to call twice.
func (o *AsyncStepObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}
