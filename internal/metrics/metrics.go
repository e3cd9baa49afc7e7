// Package metrics records parse outcomes for Prometheus, either scraped from
// the API server or written as a node-exporter textfile after a batch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "lawparse"

	SubsystemParse = "parse"
	SubsystemFetch = "fetch"
	SubsystemAPI   = "api"
)

// Outcome labels.
const (
	OutcomeParsed  = "parsed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Fetch origins.
const (
	OriginNetwork = "network"
	OriginCache   = "cache"
	OriginFile    = "file"
)

// Recorder holds the lawparse collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	documentsTotal *prometheus.CounterVec
	articlesTotal  prometheus.Counter
	parseSeconds   prometheus.Histogram
	fetchTotal     *prometheus.CounterVec
	apiTime        *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.documentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemParse,
		Name:      "documents_total",
		Help:      "Documents processed, by outcome.",
	}, []string{"outcome"})
	r.registry.MustRegister(r.documentsTotal)

	r.articlesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemParse,
		Name:      "articles_total",
		Help:      "Articles found in parsed documents.",
	})
	r.registry.MustRegister(r.articlesTotal)

	r.parseSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemParse,
		Name:      "duration_seconds",
		Help:      "Time to fetch, extract and parse one document.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	})
	r.registry.MustRegister(r.parseSeconds)

	r.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemFetch,
		Name:      "sources_total",
		Help:      "Source documents loaded, by origin.",
	}, []string{"origin"})
	r.registry.MustRegister(r.fetchTotal)

	r.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAPI,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler",
	}, []string{"handler", "method", "status_code"})
	r.registry.MustRegister(r.apiTime)

	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveDocument records one document outcome. articles counts only for
// parsed documents.
func (r *Recorder) ObserveDocument(outcome string, articles int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.documentsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeParsed {
		r.articlesTotal.Add(float64(articles))
		r.parseSeconds.Observe(elapsed.Seconds())
	}
}

// ObserveFetch records where a source document came from.
func (r *Recorder) ObserveFetch(origin string) {
	if r == nil {
		return
	}
	r.fetchTotal.WithLabelValues(origin).Inc()
}

// ObserveAPIEndpointDuration records one API request.
func (r *Recorder) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	if r == nil {
		return
	}
	r.apiTime.WithLabelValues(handler, method, statusCode).Observe(elapsed)
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
