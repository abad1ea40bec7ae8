package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ProviderFetches *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	BubbleScore     *prometheus.GaugeVec
	RatioZScore     *prometheus.GaugeVec
}

// New creates and registers all collectors on a private registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblesentinel_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bubblesentinel_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
		ProviderFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblesentinel_provider_fetches_total",
				Help: "Upstream price series fetches by provider and result",
			},
			[]string{"provider", "result"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bubblesentinel_provider_fetch_duration_seconds",
				Help:    "Upstream price series fetch latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bubblesentinel_cache_lookups_total",
				Help: "Provider response cache lookups by result",
			},
			[]string{"result"},
		),
		BubbleScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bubblesentinel_bubble_index_score",
				Help: "Last computed bubble index per market",
			},
			[]string{"market"},
		),
		RatioZScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bubblesentinel_ratio_zscore",
				Help: "Last computed index/gold ratio z-score per market",
			},
			[]string{"market"},
		),
	}
	r.reg.MustRegister(
		r.HTTPRequests,
		r.HTTPDuration,
		r.ProviderFetches,
		r.ProviderLatency,
		r.CacheLookups,
		r.BubbleScore,
		r.RatioZScore,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
