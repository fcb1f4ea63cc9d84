package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// 业务指标
var (
	LessonsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "learnsphere_lessons_completed_total",
		Help: "First-time lesson completions",
	})

	CertificatesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "learnsphere_certificates_issued_total",
		Help: "Certificates issued",
	})

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_points_awarded_total",
			Help: "Points appended to the ledger",
		},
		[]string{"reason"},
	)

	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnsphere_quiz_submissions_total",
			Help: "Quiz submissions by outcome",
		},
		[]string{"passed"},
	)

	NotificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "learnsphere_notification_failures_total",
		Help: "Best-effort notifications that could not be delivered",
	})
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			LessonsCompleted,
			CertificatesIssued,
			PointsAwarded,
			QuizSubmissions,
			NotificationFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
