package metricsx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	resourceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_operations_total",
			Help: "Resource operations by resource, operation and serving source.",
		},
		[]string{"resource", "op", "source"},
	)
	resourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_operation_duration_seconds",
			Help:    "Resource operation latency in seconds, simulated delay included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "op"},
	)
	remoteFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_remote_fallbacks_total",
			Help: "Remote calls that failed and were served from the local store.",
		},
		[]string{"resource", "op"},
	)
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_store_errors_total",
			Help: "Record store load/save failures by kind.",
		},
		[]string{"resource", "kind"},
	)
	lockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "record_store_lock_wait_seconds",
			Help:    "Time spent waiting for a resource write lock.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)
	autoReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_replies_total",
			Help: "Auto-responder replies by source (rules or assistant).",
		},
		[]string{"source"},
	)
	assistantLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_reply_latency_seconds",
			Help:    "Remote assistant reply latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	kafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag by topic.",
		},
		[]string{"topic", "group"},
	)
	eventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_event_publish_failures_total",
			Help: "Domain event publish failures by sink.",
		},
		[]string{"sink"},
	)
	asynqQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asynq_queue_depth",
			Help: "Asynq queue depth by queue.",
		},
		[]string{"queue"},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, resourceOps, resourceLatency, remoteFallbacks, storeErrors, lockWait, autoReplies, assistantLatency, kafkaConsumerLag, eventPublishFailures, asynqQueueDepth)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latency. The route pattern is used
// as the path label when the mux matched one, so ids do not explode the
// label space.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, path, status).Inc()
		httpLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

func IncResourceOp(resource string, op string, source string) {
	resourceOps.WithLabelValues(resource, op, source).Inc()
}

func ObserveResourceLatency(resource string, op string, d time.Duration) {
	resourceLatency.WithLabelValues(resource, op).Observe(d.Seconds())
}

func IncRemoteFallback(resource string, op string) {
	remoteFallbacks.WithLabelValues(resource, op).Inc()
}

func IncStoreError(resource string, kind string) {
	storeErrors.WithLabelValues(resource, kind).Inc()
}

func ObserveLockWait(resource string, d time.Duration) {
	lockWait.WithLabelValues(resource).Observe(d.Seconds())
}

func IncAutoReply(source string) {
	autoReplies.WithLabelValues(source).Inc()
}

func ObserveAssistantLatency(d time.Duration) {
	assistantLatency.Observe(d.Seconds())
}

func SetKafkaLag(topic string, group string, lag int64) {
	kafkaConsumerLag.WithLabelValues(topic, group).Set(float64(lag))
}

func IncEventPublishFailure(sink string) {
	eventPublishFailures.WithLabelValues(sink).Inc()
}

func SetAsynqQueueDepth(queue string, depth int) {
	asynqQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
