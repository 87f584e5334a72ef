// Package telemetry exposes pipeline counters on a dedicated prometheus
// registry so the serve command can publish them at /metrics.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Telemetry aggregates the pipeline's prometheus collectors.
type Telemetry struct {
	Registry *prometheus.Registry

	LLMRequests  prometheus.Counter
	LLMRetries   prometheus.Counter
	PairsOK      prometheus.Counter
	PairsSkipped prometheus.Counter
	PairsFailed  prometheus.Counter
}

// New creates a Telemetry with all collectors registered.
func New() *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		Registry: reg,
		LLMRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_llm_requests_total",
			Help: "Chat-completion requests issued, including retries.",
		}),
		LLMRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_llm_retries_total",
			Help: "Retries triggered by transient transport failures.",
		}),
		PairsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_pairs_analyzed_total",
			Help: "Snapshot pairs with a persisted analysis artifact.",
		}),
		PairsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_pairs_skipped_total",
			Help: "Snapshot pairs skipped (no normalized change or already analyzed).",
		}),
		PairsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_pairs_failed_total",
			Help: "Snapshot pairs whose analysis failed terminally.",
		}),
	}
	reg.MustRegister(t.LLMRequests, t.LLMRetries, t.PairsOK, t.PairsSkipped, t.PairsFailed)
	return t
}
