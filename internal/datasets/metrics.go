package datasets

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "virusradar"

// Metrics tracks dataset update activity.
type Metrics struct {
	UpdatesTotal   *prometheus.CounterVec
	UpdateDuration *prometheus.HistogramVec
	LastSuccess    *prometheus.GaugeVec
	BytesFetched   *prometheus.CounterVec
}

// NewMetrics creates and registers the dataset collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "updates_total",
			Help:      "Dataset update attempts by dataset and status.",
		}, []string{"dataset", "status"}),
		UpdateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "update_duration_seconds",
			Help:      "Duration of dataset downloads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dataset"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful update per dataset.",
		}, []string{"dataset"}),
		BytesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "bytes_fetched_total",
			Help:      "Bytes downloaded per dataset.",
		}, []string{"dataset"}),
	}

	if reg != nil {
		reg.MustRegister(m.UpdatesTotal, m.UpdateDuration, m.LastSuccess, m.BytesFetched)
	}
	return m
}
