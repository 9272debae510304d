package metrics

import (
	"bytes"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

var (
	checkinsRecordedTotal atomic.Uint64
	runsStartedTotal      atomic.Uint64
	runsCompletedTotal    atomic.Uint64
	runsFailedTotal       atomic.Uint64
	llmCacheHitsTotal     atomic.Uint64
	llmCacheMissesTotal   atomic.Uint64
	jobsReceivedTotal     atomic.Uint64
	jobsDroppedTotal      atomic.Uint64

	advisoriesTotal      = newLabeledCounter("kind")
	notificationsTotal   = newLabeledCounter("sink")
	notificationFailures = newLabeledCounter("sink")
	llmRequestsTotal     = newLabeledCounter("outcome")
	recoveryScores       = newHistogram([]float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 100})
	coachingRunDuration  = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	llmRequestDurationMs = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

func IncCheckinRecorded() { checkinsRecordedTotal.Add(1) }

// IncAdvisory counts one fired advisory of the given kind.
func IncAdvisory(kind string) { advisoriesTotal.Inc(kind) }

// ObserveRecoveryScore records a computed score.
func ObserveRecoveryScore(score float64) { recoveryScores.Observe(score) }

func IncRunStarted()   { runsStartedTotal.Add(1) }
func IncRunCompleted() { runsCompletedTotal.Add(1) }
func IncRunFailed()    { runsFailedTotal.Add(1) }

// ObserveRunDurationMs records a coaching run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	coachingRunDuration.Observe(value)
}

// ObserveLLMRequest records the outcome ("ok", "timeout", "auth", "http_error", "error") and latency of a model call.
func ObserveLLMRequest(outcome string, durationMs float64) {
	llmRequestsTotal.Inc(outcome)
	if durationMs < 0 {
		durationMs = 0
	}
	llmRequestDurationMs.Observe(durationMs)
}

func IncLLMCacheHit()  { llmCacheHitsTotal.Add(1) }
func IncLLMCacheMiss() { llmCacheMissesTotal.Add(1) }

// IncJobReceived counts a queue message picked up by the worker.
func IncJobReceived() { jobsReceivedTotal.Add(1) }

// IncJobDropped counts a queue message deleted without processing because it could not be parsed.
func IncJobDropped() { jobsDroppedTotal.Add(1) }

// IncNotificationDelivered counts a notification delivered through sink.
func IncNotificationDelivered(sink string) { notificationsTotal.Inc(sink) }

// IncNotificationFailed counts a failed sink delivery.
func IncNotificationFailed(sink string) { notificationFailures.Inc(sink) }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return func(c *gin.Context) {
		body, err := Render()
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Data(http.StatusOK, string(format), body)
	}
}

// Families snapshots every metric as a Prometheus metric family.
func Families() []*dto.MetricFamily {
	return []*dto.MetricFamily{
		counterFamily("fitflow_checkins_recorded_total", "Total check-ins recorded", checkinsRecordedTotal.Load()),
		advisoriesTotal.Family("fitflow_advisories_total", "Advisories fired by kind"),
		recoveryScores.Family("fitflow_recovery_score", "Distribution of computed recovery scores"),
		counterFamily("fitflow_coaching_runs_started_total", "Total coaching runs started", runsStartedTotal.Load()),
		counterFamily("fitflow_coaching_runs_completed_total", "Total coaching runs completed", runsCompletedTotal.Load()),
		counterFamily("fitflow_coaching_runs_failed_total", "Total coaching runs failed", runsFailedTotal.Load()),
		coachingRunDuration.Family("fitflow_coaching_run_duration_ms", "Coaching run duration in milliseconds"),
		llmRequestsTotal.Family("fitflow_llm_requests_total", "Model requests by outcome"),
		llmRequestDurationMs.Family("fitflow_llm_request_duration_ms", "Model request latency in milliseconds"),
		counterFamily("fitflow_llm_cache_hits_total", "Model responses served from cache", llmCacheHitsTotal.Load()),
		counterFamily("fitflow_llm_cache_misses_total", "Model requests not found in cache", llmCacheMissesTotal.Load()),
		counterFamily("fitflow_worker_jobs_received_total", "Queue messages received by the worker", jobsReceivedTotal.Load()),
		counterFamily("fitflow_worker_jobs_dropped_total", "Unparseable queue messages deleted", jobsDroppedTotal.Load()),
		notificationsTotal.Family("fitflow_notifications_delivered_total", "Notifications delivered by sink"),
		notificationFailures.Family("fitflow_notification_failures_total", "Notification delivery failures by sink"),
	}
}

// Render renders metrics in Prometheus text format.
func Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range Families() {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type labeledCounter struct {
	mu     sync.Mutex
	label  string
	values map[string]uint64
}

func newLabeledCounter(label string) *labeledCounter {
	return &labeledCounter{label: label, values: map[string]uint64{}}
}

func (l *labeledCounter) Inc(value string) {
	if value == "" {
		value = "unknown"
	}
	l.mu.Lock()
	l.values[value]++
	l.mu.Unlock()
}

func (l *labeledCounter) Family(name, help string) *dto.MetricFamily {
	l.mu.Lock()
	keys := make([]string, 0, len(l.values))
	for k := range l.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	metrics := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		metrics = append(metrics, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: strPtr(l.label), Value: strPtr(k)}},
			Counter: &dto.Counter{Value: floatPtr(float64(l.values[k]))},
		})
	}
	l.mu.Unlock()
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}

type histogram struct {
	mu      sync.Mutex
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

// Observe adds value to the first bucket that holds it; Family accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Family(name, help string) *dto.MetricFamily {
	h.mu.Lock()
	defer h.mu.Unlock()
	buckets := make([]*dto.Bucket, 0, len(h.buckets))
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		buckets = append(buckets, &dto.Bucket{
			UpperBound:      floatPtr(bound),
			CumulativeCount: uintPtr(cumulative),
		})
	}
	return &dto.MetricFamily{
		Name: strPtr(name),
		Help: strPtr(help),
		Type: dto.MetricType_HISTOGRAM.Enum(),
		Metric: []*dto.Metric{{
			Histogram: &dto.Histogram{
				SampleCount: uintPtr(h.count),
				SampleSum:   floatPtr(h.sum),
				Bucket:      buckets,
			},
		}},
	}
}

func counterFamily(name, help string, value uint64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: floatPtr(float64(value))}}},
	}
}

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
func uintPtr(v uint64) *uint64    { return &v }

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
