package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestMetrics holds all Prometheus metrics for the ingest service.
type IngestMetrics struct {
	RecordsTotal      *prometheus.CounterVec
	BytesTotal        prometheus.Counter
	WALActive         prometheus.Gauge
	APIKeyCacheHits   prometheus.Counter
	APIKeyCacheMisses prometheus.Counter
}

// NewIngestMetrics initializes and registers the ingest metrics.
func NewIngestMetrics() *IngestMetrics {
	return &IngestMetrics{
		RecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of ingested records by status.",
		}, []string{"status"}), // status: accepted, error_parse, error_size, error_buffer, error_media_type
		BytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "ingest",
			Name:      "bytes_total",
			Help:      "Total number of bytes ingested.",
		}),
		WALActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "logsieve",
			Subsystem: "ingest",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the Write-Ahead Log is currently active (1 for active, 0 for inactive).",
		}),
		APIKeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}

// FilterMetrics holds the Prometheus metrics of the dedup filter.
type FilterMetrics struct {
	Forwarded prometheus.Counter
	Absorbed  prometheus.Counter
	Summaries prometheus.Counter
}

// NewFilterMetrics initializes and registers the filter metrics.
func NewFilterMetrics() *FilterMetrics {
	return &FilterMetrics{
		Forwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "filter",
			Name:      "records_forwarded_total",
			Help:      "Total number of records forwarded downstream, summaries included.",
		}),
		Absorbed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "filter",
			Name:      "records_absorbed_total",
			Help:      "Total number of records absorbed as part of a detected repeating cycle.",
		}),
		Summaries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "logsieve",
			Subsystem: "filter",
			Name:      "summaries_emitted_total",
			Help:      "Total number of synthesized duplicate-run summary records.",
		}),
	}
}
