package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求总数
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP 请求耗时
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// 处理中的 HTTP 请求数
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// 会话开始数
	sessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_started_total",
			Help: "Total number of dialogue sessions started",
		},
		[]string{"mode"},
	)

	// 会话结束数，trigger 为 keyword 或 endpoint
	sessionsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_ended_total",
			Help: "Total number of dialogue sessions ended",
		},
		[]string{"trigger"},
	)

	// 消息提交数
	turnSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_submissions_total",
			Help: "Total number of participant message submissions",
		},
		[]string{"outcome"},
	)

	// 消息处理耗时，含推理调用
	turnSubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turn_submission_duration_seconds",
			Help:    "Participant message handling duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
)

// MetricsMiddleware 采集 HTTP 请求指标
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordSessionStarted 记录一次会话开始
func RecordSessionStarted(mode string) {
	sessionsStartedTotal.WithLabelValues(mode).Inc()
}

// RecordSessionEnded 记录一次会话结束
func RecordSessionEnded(trigger string) {
	sessionsEndedTotal.WithLabelValues(trigger).Inc()
}

// RecordTurnSubmission 记录一次消息提交
func RecordTurnSubmission(outcome string, duration time.Duration) {
	turnSubmissionsTotal.WithLabelValues(outcome).Inc()
	turnSubmissionDuration.Observe(duration.Seconds())
}
