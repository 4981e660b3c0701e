// Package metrics exports step and policy counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
)

// Recorder is an orchestrator.StepObserver that also counts policy violations.
type Recorder struct {
	steps      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which tests use to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_steps_total",
			Help: "Provider calls by role and outcome",
		}, []string{"role", "success"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_step_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"role"}),

		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_policy_violations_total",
			Help: "Policy violations by policy name",
		}, []string{"policy"}),
	}
}

func (r *Recorder) ObserveStep(rec orchestrator.StepRecord) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(rec.Role, strconv.FormatBool(rec.Success)).Inc()
	r.duration.WithLabelValues(rec.Role).Observe(rec.Duration / 1000.0)
}

func (r *Recorder) ObserveViolation(policy string) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(policy).Inc()
}
