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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// result: ok | error | shared
	ScoreboardRefreshCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_refresh_total",
			Help: "Full scoreboard refreshes by result",
		},
		[]string{"kind", "result"},
	)

	ScoreboardRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoreboard_refresh_duration_seconds",
			Help:    "Duration of snapshot fetch plus ranking",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	ChangeEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_change_events_total",
			Help: "Row change notifications received",
		},
		[]string{"table", "kind"},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Solution submissions by outcome",
		},
		[]string{"outcome"},
	)

	KeyUploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "key_uploads_total",
			Help: "Answer key uploads by result",
		},
		[]string{"result"},
	)

	WSOnlineClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_online_clients",
			Help: "Connected scoreboard websocket clients",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(ScoreboardRefreshCounter)
		prometheus.MustRegister(ScoreboardRefreshDuration)
		prometheus.MustRegister(ChangeEventCounter)
		prometheus.MustRegister(SubmissionCounter)
		prometheus.MustRegister(KeyUploadCounter)
		prometheus.MustRegister(WSOnlineClients)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
