package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pressroomlabs/pressroom/config"
)

// Telemetry tracks pipeline health and LLM spend. Each instance owns its own
// registry so tests can build as many as they like.
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	llmCost        *prometheus.CounterVec
	sourceFetches  *prometheus.CounterVec
	repairOutcomes *prometheus.CounterVec
	degradedTotal  prometheus.Counter

	mu          sync.Mutex
	totalCost   float64
	totalTokens int64
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	t := &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pressroom_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_llm_tokens_total",
			Help: "LLM tokens used, by model and direction.",
		}, []string{"model", "direction"}),
		llmCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_llm_cost_dollars_total",
			Help: "Estimated LLM spend in dollars, by model.",
		}, []string{"model"}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_source_fetches_total",
			Help: "News source fetches, by source and outcome.",
		}, []string{"source", "outcome"}),
		repairOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_schema_repairs_total",
			Help: "Contract repair attempts, by contract and outcome.",
		}, []string{"contract", "outcome"}),
		degradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressroom_degraded_results_total",
			Help: "Successful results delivered with a degradation advisory.",
		}),
	}
	registry.MustRegister(t.stageDuration, t.llmTokens, t.llmCost, t.sourceFetches, t.repairOutcomes, t.degradedTotal)
	return t
}

// Handler exposes the metrics registry for mounting on /metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// RecordStage records a completed pipeline stage.
func (t *Telemetry) RecordStage(stage string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	t.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
	if t.config.Enabled && err != nil {
		t.logger.Printf("stage %s failed after %s: %v", stage, duration.Round(time.Millisecond), err)
	}
}

// RecordLLMUsage records token usage and estimated cost for one call.
func (t *Telemetry) RecordLLMUsage(model string, inputTokens, outputTokens int64, cost float64) {
	t.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	t.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	t.llmCost.WithLabelValues(model).Add(cost)

	t.mu.Lock()
	t.totalCost += cost
	t.totalTokens += inputTokens + outputTokens
	t.mu.Unlock()
}

// RecordFetch records a news source fetch attempt.
func (t *Telemetry) RecordFetch(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	t.sourceFetches.WithLabelValues(source, outcome).Inc()
}

// RecordRepair records the outcome of a contract repair attempt.
func (t *Telemetry) RecordRepair(contract string, recovered bool) {
	outcome := "recovered"
	if !recovered {
		outcome = "failed"
	}
	t.repairOutcomes.WithLabelValues(contract, outcome).Inc()
}

// RecordDegraded counts a result delivered with an advisory.
func (t *Telemetry) RecordDegraded() {
	t.degradedTotal.Inc()
}

// CostSummary reports accumulated spend since startup.
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
}

func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CostSummary{TotalCost: t.totalCost, TotalTokens: t.totalTokens}
}
