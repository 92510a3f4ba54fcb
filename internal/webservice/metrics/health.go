package metrics

import (
	"strconv"

	"github.com/chaintracker/chain-tracker/internal/dashboard"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthSource provides the source health shown on the dashboard.
type HealthSource interface {
	SourceHealth() dashboard.SourceHealth
}

// HealthCollector exports the health of the active sources on every scrape.
type HealthCollector struct {
	source HealthSource

	sourceUp    *prometheus.Desc
	activeTotal *prometheus.Desc
}

// NewHealthCollector returns a collector reading the source health from source.
func NewHealthCollector(source HealthSource) *HealthCollector {
	return &HealthCollector{
		source: source,
		sourceUp: prometheus.NewDesc(
			"chain_tracker_source_up",
			"Whether the latest snapshot of an active source is ok (1) or missing or failed (0).",
			[]string{"source_id", "layer", "status"}, nil,
		),
		activeTotal: prometheus.NewDesc(
			"chain_tracker_active_sources",
			"Number of active sources per health status.",
			[]string{"status"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *HealthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sourceUp
	ch <- c.activeTotal
}

// Collect implements prometheus.Collector.
func (c *HealthCollector) Collect(ch chan<- prometheus.Metric) {
	h := c.source.SourceHealth()
	for _, row := range h.Rows {
		if !row.Active {
			continue
		}
		up := 0.0
		if row.Status == dashboard.HealthOK {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(c.sourceUp, prometheus.GaugeValue, up, row.SourceID, strconv.Itoa(row.Layer), row.Status)
	}

	ch <- prometheus.MustNewConstMetric(c.activeTotal, prometheus.GaugeValue, float64(h.Summary.OK), dashboard.HealthOK)
	ch <- prometheus.MustNewConstMetric(c.activeTotal, prometheus.GaugeValue, float64(h.Summary.Missing), dashboard.HealthMissing)
	ch <- prometheus.MustNewConstMetric(c.activeTotal, prometheus.GaugeValue, float64(h.Summary.Error), dashboard.HealthError)
}
