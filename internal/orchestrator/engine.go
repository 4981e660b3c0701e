// Package orchestrator runs roles against a provider as a chain, a parallel
// batch, or a compiled DAG, recording one StepRecord per provider call.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

const tracerName = "github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"

type Engine struct {
	registry *provider.Registry
	observer StepObserver
	logger   *slog.Logger
	tracer   trace.Tracer
}

type EngineOption func(*Engine)

func WithStepObserver(observer StepObserver) EngineOption {
	return func(e *Engine) {
		e.observer = observer
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func NewEngine(registry *provider.Registry, opts ...EngineOption) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = provider.NewRegistry()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// ExecuteStep invokes one role against payload. Provider failures are
// reported in the returned record, never as an error.
func (e *Engine) ExecuteStep(ctx context.Context, p provider.Provider, role string, payload any, opts provider.Options) StepRecord {
	rec, _ := e.executeStep(ctx, p, role, "", payload, opts)
	return rec
}

// executeStep also returns the underlying failure so engines that abort can
// wrap it.
func (e *Engine) executeStep(ctx context.Context, p provider.Provider, role, nodeID string, payload any, opts provider.Options) (StepRecord, error) {
	attrs := []attribute.KeyValue{
		attribute.String("step.role", role),
		attribute.String("provider.name", p.Name()),
	}
	if nodeID != "" {
		attrs = append(attrs, attribute.String("node.id", nodeID))
	}
	ctx, span := e.tracer.Start(ctx, "orchestrator.step", trace.WithAttributes(attrs...))
	defer span.End()

	rec := StepRecord{Role: role, NodeID: nodeID}

	prompt, err := json.Marshal(payload)
	if err != nil {
		err = fmt.Errorf("serialize payload: %w", err)
		rec.Error = err.Error()
		rec.Timestamp = time.Now().UTC()
		e.finishStep(span, rec, err)
		return rec, err
	}

	start := time.Now()
	resp, err := p.Call(ctx, string(prompt), role, opts)
	rec.Duration = durationMillis(time.Since(start))
	rec.Timestamp = time.Now().UTC()

	if err != nil {
		rec.Error = err.Error()
		if rec.Error == "" {
			rec.Error = ErrStepFailed.Error()
		}
	} else {
		rec.Success = true
		rec.Result = &StepResult{Data: resp.Data, Metadata: resp.Metadata}
	}

	e.finishStep(span, rec, err)
	return rec, err
}

func (e *Engine) finishStep(span trace.Span, rec StepRecord, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, rec.Error)
	}
	span.SetAttributes(
		attribute.Bool("step.success", rec.Success),
		attribute.Float64("step.duration_ms", rec.Duration),
	)
	if e.observer != nil {
		e.observer.ObserveStep(rec)
	}
}

func (e *Engine) resolve(name string) (provider.Provider, error) {
	p, err := e.registry.Resolve(name)
	if err != nil {
		e.logger.Error("provider lookup failed", "provider", name, "error", err)
		return nil, err
	}
	return p, nil
}
