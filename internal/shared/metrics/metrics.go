package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	batchRunsStartedTotal   atomic.Uint64
	batchRunsCompletedTotal atomic.Uint64
	batchRunsAbortedTotal   atomic.Uint64
	itemsCompletedTotal     atomic.Uint64
	itemsFailedTotal        atomic.Uint64
	itemsSkippedTotal       atomic.Uint64

	batchJobsReceivedTotal             atomic.Uint64
	batchJobsCompletedTotal            atomic.Uint64
	batchJobsFailedTotal               atomic.Uint64
	batchJobsDeletedUnrecoverableTotal atomic.Uint64

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncBatchRunStarted increments the started-runs counter.
func IncBatchRunStarted() {
	batchRunsStartedTotal.Add(1)
}

// IncBatchRunCompleted increments the completed-runs counter.
func IncBatchRunCompleted() {
	batchRunsCompletedTotal.Add(1)
}

// IncBatchRunAborted increments the counter for runs halted by a batch-level error.
func IncBatchRunAborted() {
	batchRunsAbortedTotal.Add(1)
}

// IncItemCompleted increments the completed-items counter.
func IncItemCompleted() {
	itemsCompletedTotal.Add(1)
}

// IncItemFailed increments the failed-items counter.
func IncItemFailed() {
	itemsFailedTotal.Add(1)
}

// IncItemSkipped increments the counter of items skipped as already completed.
func IncItemSkipped() {
	itemsSkippedTotal.Add(1)
}

// IncBatchJobsReceived increments the counter of queue messages received.
func IncBatchJobsReceived() {
	batchJobsReceivedTotal.Add(1)
}

// IncBatchJobsCompleted increments the counter of queue messages processed.
func IncBatchJobsCompleted() {
	batchJobsCompletedTotal.Add(1)
}

// IncBatchJobsFailed increments the counter of queue messages that failed processing.
func IncBatchJobsFailed() {
	batchJobsFailedTotal.Add(1)
}

// IncBatchJobsDeletedUnrecoverable increments the counter of queue messages
// deleted without processing because they can never succeed.
func IncBatchJobsDeletedUnrecoverable() {
	batchJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveAnalysisDurationMs records a per-item analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "batch_runs_started_total", "Total batch runs started", batchRunsStartedTotal.Load())
	writeCounter(&buf, "batch_runs_completed_total", "Total batch runs completed", batchRunsCompletedTotal.Load())
	writeCounter(&buf, "batch_runs_aborted_total", "Total batch runs aborted by a batch-level error", batchRunsAbortedTotal.Load())
	writeCounter(&buf, "batch_items_completed_total", "Total batch items completed", itemsCompletedTotal.Load())
	writeCounter(&buf, "batch_items_failed_total", "Total batch items failed", itemsFailedTotal.Load())
	writeCounter(&buf, "batch_items_skipped_total", "Total batch items skipped as already completed", itemsSkippedTotal.Load())
	writeCounter(&buf, "batch_jobs_received_total", "Total queue messages received", batchJobsReceivedTotal.Load())
	writeCounter(&buf, "batch_jobs_completed_total", "Total queue messages processed", batchJobsCompletedTotal.Load())
	writeCounter(&buf, "batch_jobs_failed_total", "Total queue messages that failed processing", batchJobsFailedTotal.Load())
	writeCounter(&buf, "batch_jobs_deleted_unrecoverable_total", "Total queue messages deleted as unrecoverable", batchJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "batch_item_analysis_duration_ms", "Per-item analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
