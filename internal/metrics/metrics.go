package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"strconv"
	"time"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	CartMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Total number of persisted cart mutations",
		},
		[]string{"op"},
	)

	CheckoutsConfirmedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_checkouts_confirmed_total",
			Help: "Total number of confirmed checkouts",
		},
	)

	CheckoutsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_checkouts_rejected_total",
			Help: "Total number of rejected checkout attempts",
		},
		[]string{"reason"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_active_sessions",
			Help: "Number of cart stores held in memory",
		},
	)
)

// ObserveCartEvent is a cartstore.Listener.
func ObserveCartEvent(event cartstore.Event) {
	CartMutationsTotal.WithLabelValues(string(event.Op)).Inc()
	if event.Op == cartstore.OpCheckout {
		CheckoutsConfirmedTotal.Inc()
	}
}

func RecordCheckoutRejected(reason string) {
	CheckoutsRejectedTotal.WithLabelValues(reason).Inc()
}

func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		handlerName := c.FullPath()
		if handlerName == "" {
			handlerName = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		HTTPRequestDuration.WithLabelValues(handlerName, c.Request.Method, statusCode).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(handlerName, c.Request.Method, statusCode).Inc()
	}
}
