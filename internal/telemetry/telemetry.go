package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the service's prometheus instruments. A nil *Metrics is
// valid and turns every observation into a no-op, so instrumented code never
// has to branch on whether telemetry is enabled.
type Metrics struct {
	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
	llmTokens  *prometheus.CounterVec
	tools      prometheus.Gauge
	plans      *prometheus.CounterVec
}

// New registers the service metrics on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planweave",
			Name:      "llm_calls_total",
			Help:      "LLM gateway calls by operation, model and outcome.",
		}, []string{"op", "model", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planweave",
			Name:      "llm_call_duration_seconds",
			Help:      "LLM gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "model"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planweave",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed, split by prompt/completion.",
		}, []string{"model", "kind"}),
		tools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planweave",
			Name:      "registered_tools",
			Help:      "Number of materialized tools in the registry.",
		}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planweave",
			Name:      "plans_generated_total",
			Help:      "Generated plans by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.llmCalls, m.llmLatency, m.llmTokens, m.tools, m.plans)
	return m
}

// ObserveLLMCall records one gateway call's latency and outcome.
func (m *Metrics) ObserveLLMCall(op, model string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(op, model, outcome).Inc()
	m.llmLatency.WithLabelValues(op, model).Observe(time.Since(start).Seconds())
}

// AddTokens accumulates token usage reported by the remote service.
func (m *Metrics) AddTokens(model string, prompt, completion int64) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

// SetRegisteredTools reports the current registry size.
func (m *Metrics) SetRegisteredTools(n int) {
	if m == nil {
		return
	}
	m.tools.Set(float64(n))
}

// PlanGenerated counts one plan-generation request by outcome.
func (m *Metrics) PlanGenerated(outcome string) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(outcome).Inc()
}
