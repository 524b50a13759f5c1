package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentsUploadedTotal  atomic.Uint64
	documentsExtractedTotal atomic.Uint64
	documentsFailedTotal    atomic.Uint64
	analysisConflictsTotal  atomic.Uint64
	analysisSweptTotal      atomic.Uint64
	queueJobsReceivedTotal  atomic.Uint64
	queueJobsFailedTotal    atomic.Uint64

	analysisStarted   = newLabeledCounter()
	analysisCompleted = newLabeledCounter()
	analysisFailed    = newLabeledCounter()

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	extractDuration  = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 5000, 15000})
)

// IncDocumentUploaded counts accepted uploads.
func IncDocumentUploaded() { documentsUploadedTotal.Add(1) }

// IncDocumentExtracted counts documents whose text extraction succeeded.
func IncDocumentExtracted() { documentsExtractedTotal.Add(1) }

// IncDocumentFailed counts documents whose text extraction failed.
func IncDocumentFailed() { documentsFailedTotal.Add(1) }

// IncAnalysisStarted increments the started counter for an analysis type.
func IncAnalysisStarted(analysisType string) { analysisStarted.Inc(analysisType) }

// IncAnalysisCompleted increments the completed counter for an analysis type.
func IncAnalysisCompleted(analysisType string) { analysisCompleted.Inc(analysisType) }

// IncAnalysisFailed increments the failed counter for an analysis type.
func IncAnalysisFailed(analysisType string) { analysisFailed.Inc(analysisType) }

// IncAnalysisConflict counts requests rejected because the same analysis was in flight.
func IncAnalysisConflict() { analysisConflictsTotal.Add(1) }

// AddAnalysisSwept counts analyses failed by the stuck-job sweeper.
func AddAnalysisSwept(n int) {
	if n > 0 {
		analysisSweptTotal.Add(uint64(n))
	}
}

// IncQueueJobReceived counts jobs pulled from the queue by the worker.
func IncQueueJobReceived() { queueJobsReceivedTotal.Add(1) }

// IncQueueJobFailed counts jobs the worker could not process.
func IncQueueJobFailed() { queueJobsFailedTotal.Add(1) }

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// ObserveExtractDurationMs records a text extraction duration in milliseconds.
func ObserveExtractDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractDuration.Observe(value)
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
	writeCounter(&buf, "documents_uploaded_total", "Total documents accepted for upload", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_extracted_total", "Total documents with extracted text", documentsExtractedTotal.Load())
	writeCounter(&buf, "documents_failed_total", "Total documents whose extraction failed", documentsFailedTotal.Load())
	writeLabeledCounter(&buf, "analysis_started_total", "Total analyses started", analysisStarted.Snapshot())
	writeLabeledCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompleted.Snapshot())
	writeLabeledCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailed.Snapshot())
	writeCounter(&buf, "analysis_conflicts_total", "Total analysis requests rejected as duplicates", analysisConflictsTotal.Load())
	writeCounter(&buf, "analysis_swept_total", "Total analyses failed by the stuck sweeper", analysisSweptTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total analysis jobs received from the queue", queueJobsReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total analysis jobs that failed in the worker", queueJobsFailedTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	writeHistogram(&buf, "extract_duration_ms", "Text extraction duration in milliseconds", extractDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
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
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	labels := make([]string, 0, len(values))
	for k := range values {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(buf, "%s{type=%q} %d\n", name, label, values[label])
	}
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
