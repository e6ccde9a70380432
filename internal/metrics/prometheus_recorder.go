package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	fetchDuration   *prom.HistogramVec
	fetchResults    *prom.CounterVec
	cacheResults    *prom.CounterVec
	blockDispatch   *prom.CounterVec
	routeDuration   *prom.HistogramVec
	revalidations   *prom.CounterVec
	buildDuration   prom.Histogram
	generatedRoutes prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "content_fetch_duration_seconds",
			Help:      "Duration of Content API requests",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "preview"}),
		fetchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "content_fetch_results_total",
			Help:      "Content API requests by outcome",
		}, []string{"operation", "result"}),
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}),
		blockDispatch: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "block_dispatch_total",
			Help:      "Dispatched content blocks by kind and outcome",
		}, []string{"kind", "result"}),
		routeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Route resolution duration by strategy and outcome",
			Buckets:   prom.DefBuckets,
		}, []string{"strategy", "outcome"}),
		revalidations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "revalidations_total",
			Help:      "On-demand revalidations by scope",
		}, []string{"scope"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total static build duration",
			Buckets:   prom.DefBuckets,
		}),
		generatedRoutes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_targets",
			Help:      "Number of routes enumerated by the last generation pass",
		}),
	}
	reg.MustRegister(pr.fetchDuration, pr.fetchResults, pr.cacheResults, pr.blockDispatch,
		pr.routeDuration, pr.revalidations, pr.buildDuration, pr.generatedRoutes)
	return pr
}

func (p *PrometheusRecorder) ObserveFetch(operation string, preview bool, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.fetchDuration.WithLabelValues(operation, strconv.FormatBool(preview)).Observe(d.Seconds())
	p.fetchResults.WithLabelValues(operation, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(result CacheResultLabel) {
	if p == nil {
		return
	}
	p.cacheResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncBlockDispatch(kind string, result ResultLabel) {
	if p == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	p.blockDispatch.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRoute(strategy, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.routeDuration.WithLabelValues(strategy, outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRevalidation(scope string) {
	if p == nil {
		return
	}
	p.revalidations.WithLabelValues(scope).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetGeneratedRoutes(n int) {
	if p == nil {
		return
	}
	p.generatedRoutes.Set(float64(n))
}
