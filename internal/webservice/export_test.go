package webservice

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPServer returns the HTTP server for testing purposes.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// WithPrometheusRegistry sets the registry the server exports its metrics from.
func WithPrometheusRegistry(reg *prometheus.Registry) Options {
	return func(o *options) {
		o.registry = reg
	}
}
