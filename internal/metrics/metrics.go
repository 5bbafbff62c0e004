// Package metrics exposes Prometheus instrumentation for imports, provider
// calls, retrieval and the HTTP API. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "raggedbooks"

// Book import outcomes.
const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Answer outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoResults = "no_results"
)

// Provider names.
const (
	ProviderEmbedding = "embedding"
	ProviderChat      = "chat"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	pagesIndexed     prometheus.Counter
	chunksIndexed    prometheus.Counter
	booksImported    *prometheus.CounterVec
	importDuration   prometheus.Histogram
	providerDuration *prometheus.HistogramVec
	searches         prometheus.Counter
	searchResults    prometheus.Histogram
	answers          *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors under namespace, falling back to
// DefaultNamespace, and registers them with Go and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pagesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_indexed_total",
			Help:      "Pages chunked and written to the vector store.",
		}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and written to the vector store.",
		}),
		booksImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "books_imported_total",
			Help:      "Book files processed by outcome.",
		}, []string{"outcome"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "book_import_duration_seconds",
			Help:      "Time to extract, chunk, embed and store one book.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of embedding and chat provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Semantic searches performed.",
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Questions answered by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.pagesIndexed,
		m.chunksIndexed,
		m.booksImported,
		m.importDuration,
		m.providerDuration,
		m.searches,
		m.searchResults,
		m.answers,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageIndexed records one stored page and its chunk count.
func (m *Metrics) PageIndexed(chunks int) {
	if m == nil {
		return
	}
	m.pagesIndexed.Inc()
	m.chunksIndexed.Add(float64(chunks))
}

// BookProcessed records a book outcome. Duration is only observed for
// imported books.
func (m *Metrics) BookProcessed(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.booksImported.WithLabelValues(outcome).Inc()
	if outcome == OutcomeImported {
		m.importDuration.Observe(d.Seconds())
	}
}

// ProviderCall records the latency of one provider request.
func (m *Metrics) ProviderCall(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// SearchPerformed records a search and how many results it returned.
func (m *Metrics) SearchPerformed(results int) {
	if m == nil {
		return
	}
	m.searches.Inc()
	m.searchResults.Observe(float64(results))
}

// AnswerProduced records the outcome of a question.
func (m *Metrics) AnswerProduced(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
