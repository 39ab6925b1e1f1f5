// Package metrics exposes Prometheus instrumentation for the gateway: the
// credential validation cache and HTTP request counts and latency.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder captures gateway metrics. It satisfies itemgate.CacheObserver.
type Recorder interface {
	CacheHit()
	CacheMiss()
	OracleError()
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) CacheHit()                                      {}
func (Noop) CacheMiss()                                     {}
func (Noop) OracleError()                                   {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Recorder backed by Prometheus collectors registered on the
// default registerer.
type Prom struct {
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	oracleErrors prometheus.Counter
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	once         sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_cache_hits_total",
			Help:      "Credential checks answered from the validation cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_cache_misses_total",
			Help:      "Credential checks that required the oracle",
		}),
		oracleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_oracle_errors_total",
			Help:      "Oracle calls that produced no verdict",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.cacheHits, p.cacheMisses, p.oracleErrors, p.requests, p.latency)
	})
}

func (p *Prom) CacheHit() {
	p.cacheHits.Inc()
}

func (p *Prom) CacheMiss() {
	p.cacheMisses.Inc()
}

func (p *Prom) OracleError() {
	p.oracleErrors.Inc()
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.latency.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
