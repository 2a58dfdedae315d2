package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the domain counters.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid_input"
	ResultDenied      = "invalid_token"
	ResultUnsupported = "unsupported_type"
	ResultError       = "error"
)

var (
	initOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	tokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "secureupload_tokens_issued_total",
		Help: "Upload tokens minted.",
	})

	tokenRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secureupload_token_rejections_total",
		Help: "Token validations that failed, by reason.",
	}, []string{"reason"})

	grants = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secureupload_grants_total",
		Help: "Upload grant requests by result.",
	}, []string{"result"})

	confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secureupload_confirmations_total",
		Help: "Upload confirmations by result.",
	}, []string{"result"})
)

// InitMetrics registers collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, tokensIssued, tokenRejections, grants, confirmations)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// TokenIssued counts a minted token.
func TokenIssued() { tokensIssued.Inc() }

// TokenRejected counts a failed validation.
func TokenRejected(reason string) { tokenRejections.WithLabelValues(reason).Inc() }

// GrantResult counts a grant attempt.
func GrantResult(result string) { grants.WithLabelValues(result).Inc() }

// ConfirmationResult counts a confirmation attempt.
func ConfirmationResult(result string) { confirmations.WithLabelValues(result).Inc() }
