package metrics

import (
	"time"
)

// RecordOperation records a Get/Put/Delete/Flush call and its duration.
func (r *Registry) RecordOperation(operation, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetMemtableSize records the MemTable's current approximate byte size.
func (r *Registry) SetMemtableSize(bytes int) {
	r.MemtableSizeBytes.Set(float64(bytes))
}

// SetSSTableCount records the current number of sealed SSTables.
func (r *Registry) SetSSTableCount(count int) {
	r.SSTableCount.Set(float64(count))
}

// RecordWALBytesWritten adds to the WAL bytes-written counter.
func (r *Registry) RecordWALBytesWritten(n int) {
	r.WALBytesWrittenTotal.Add(float64(n))
}

// RecordFlush records a completed MemTable flush.
func (r *Registry) RecordFlush() {
	r.FlushTotal.Inc()
}

// RecordTombstone records a delete operation.
func (r *Registry) RecordTombstone() {
	r.TombstonesTotal.Inc()
}
