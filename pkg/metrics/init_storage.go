package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvlsm_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvlsm_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"operation"},
	)

	r.MemtableSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvlsm_memtable_size_bytes",
			Help: "Approximate size of the active MemTable in bytes",
		},
	)

	r.SSTableCount = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kvlsm_sstable_count",
			Help: "Number of sealed SSTables on disk",
		},
	)

	r.WALBytesWrittenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kvlsm_wal_bytes_written_total",
			Help: "Total key and value bytes of Put records appended to the write-ahead log (record framing and Delete records are not counted)",
		},
	)

	r.FlushTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kvlsm_flush_total",
			Help: "Total number of MemTable flushes to a new SSTable",
		},
	)

	r.TombstonesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kvlsm_tombstones_total",
			Help: "Total number of delete operations recorded",
		},
	)
}
