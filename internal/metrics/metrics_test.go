package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareIncrementsCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	r.Use(Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))
	if after != before+1 {
		t.Fatalf("expected request counter to grow by one, got %v -> %v", before, after)
	}
}

func TestDomainCounters(t *testing.T) {
	InitMetrics()

	before := testutil.ToFloat64(tokenRejections.WithLabelValues("expired"))
	TokenRejected("expired")
	if got := testutil.ToFloat64(tokenRejections.WithLabelValues("expired")); got != before+1 {
		t.Fatalf("expected rejection counter %v, got %v", before+1, got)
	}

	beforeGrant := testutil.ToFloat64(grants.WithLabelValues(ResultOK))
	GrantResult(ResultOK)
	if got := testutil.ToFloat64(grants.WithLabelValues(ResultOK)); got != beforeGrant+1 {
		t.Fatalf("expected grant counter %v, got %v", beforeGrant+1, got)
	}
}

func TestRegisterExposesMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()
	TokenIssued()

	r := gin.New()
	Register(r, "/metrics")

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "secureupload_tokens_issued_total") {
		t.Fatalf("expected token counter in /metrics output")
	}
}
