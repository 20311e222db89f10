package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the VAD service
type Metrics struct {
	// Websocket transport metrics
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	ActiveConnections prometheus.Gauge
	MessagesReceived  prometheus.Counter
	ResultsSent       prometheus.Counter
	ParseErrors       prometheus.Counter

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Detection metrics
	FramesProcessed     prometheus.Counter
	SpeechFrames        prometheus.Counter
	RejectedFrames      prometheus.Counter
	FrameProcessingTime prometheus.Histogram
	SpeechSegments      prometheus.Counter
	SegmentDuration     prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Websocket transport metrics
		ConnectionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_connections_opened_total",
			Help: "Total number of websocket connections opened",
		}),
		ConnectionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_connections_closed_total",
			Help: "Total number of websocket connections closed",
		}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vad_active_connections",
			Help: "Current number of open websocket connections",
		}),
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_messages_received_total",
			Help: "Total number of audio messages received",
		}),
		ResultsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_results_sent_total",
			Help: "Total number of detection results sent to clients",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_parse_errors_total",
			Help: "Total number of message parsing errors",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vad_active_sessions",
			Help: "Current number of active audio sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_session_duration_seconds",
			Help:    "Duration of audio sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Detection metrics
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_frames_processed_total",
			Help: "Total number of analysis frames processed",
		}),
		SpeechFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_speech_frames_total",
			Help: "Total number of frames classified as speech",
		}),
		RejectedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_rejected_frames_total",
			Help: "Total number of frames rejected as malformed",
		}),
		FrameProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_frame_processing_duration_seconds",
			Help:    "Time spent processing one analysis frame",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10us to ~40ms
		}),
		SpeechSegments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_speech_segments_total",
			Help: "Total number of completed speech segments",
		}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_speech_segment_duration_seconds",
			Help:    "Duration of completed speech segments",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vad_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vad_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vad_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordConnectionOpened increments the opened counter and the active gauge
func (m *Metrics) RecordConnectionOpened() {
	m.ConnectionsOpened.Inc()
	m.ActiveConnections.Inc()
}

// RecordConnectionClosed increments the closed counter and drops the active gauge
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsClosed.Inc()
	m.ActiveConnections.Dec()
}

// RecordMessageReceived increments the messages received counter
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordResultSent increments the results sent counter
func (m *Metrics) RecordResultSent() {
	m.ResultsSent.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDestroyed increments the sessions destroyed counter and records duration
func (m *Metrics) RecordSessionDestroyed(durationSeconds float64) {
	m.SessionsDestroyed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFrame increments frames processed and optionally speech frames
func (m *Metrics) RecordFrame(isSpeech bool, processingTimeSeconds float64) {
	m.FramesProcessed.Inc()
	if isSpeech {
		m.SpeechFrames.Inc()
	}
	m.FrameProcessingTime.Observe(processingTimeSeconds)
}

// RecordRejectedFrame increments the rejected frames counter
func (m *Metrics) RecordRejectedFrame() {
	m.RejectedFrames.Inc()
}

// RecordSpeechSegment records a completed speech segment
func (m *Metrics) RecordSpeechSegment(durationSeconds float64) {
	m.SpeechSegments.Inc()
	m.SegmentDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
