// Package metrics provides the Prometheus instrumentation of the dashboard: HTTP middleware and source health gauges.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type label string

// LabelRoute is the label used for the matched route in metrics.
const LabelRoute label = "route"

// unmatchedRoute labels requests that did not match any route, keeping the label cardinality bounded.
const unmatchedRoute = "unmatched"

// Middleware is a middleware for collecting HTTP request metrics.
type Middleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a new Middleware instance and registers its collectors on the provided registry.
func New(registry prometheus.Registerer) *Middleware {
	labels := []string{"handler", "method", "code", string(LabelRoute)}

	return &Middleware{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chain_tracker",
				Name:      "http_requests_total",
				Help:      "Tracks the number of HTTP requests.",
			}, labels,
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chain_tracker",
				Name:      "http_request_duration_seconds",
				Help:      "Tracks the latencies for HTTP requests.",
				// Page renders read a few small files. Max of 10.24.
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			}, labels,
		),
	}
}

// Monitor wraps an HTTP handler to count requests and measure their latency per route.
// Any number of routes can share a handler name.
// Routes are labelled after their ServeMux pattern, so handler must be reached through a ServeMux.
func (m *Middleware) Monitor(handlerName string, handler http.Handler) http.Handler {
	curried := prometheus.Labels{"handler": handlerName}

	base := promhttp.InstrumentHandlerCounter(
		m.requestsTotal.MustCurryWith(curried),
		promhttp.InstrumentHandlerDuration(
			m.requestDuration.MustCurryWith(curried),
			handler,
			promhttp.WithLabelFromCtx(string(LabelRoute), routeLabelFromCtx),
		),
		promhttp.WithLabelFromCtx(string(LabelRoute), routeLabelFromCtx),
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ApplyLabels(r)
		base.ServeHTTP(w, r)
	})
}

func routeLabelFromCtx(ctx context.Context) string {
	if route, ok := ctx.Value(LabelRoute).(string); ok {
		return route
	}
	return unmatchedRoute
}

// ApplyLabels applies the route label to the request context.
func ApplyLabels(r *http.Request) {
	route := r.Pattern
	if route == "" {
		route = unmatchedRoute
	}
	ctx := context.WithValue(r.Context(), LabelRoute, route)
	*r = *r.WithContext(ctx)
}
