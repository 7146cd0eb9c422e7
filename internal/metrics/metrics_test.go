package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/communications/:lead_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(RequestCount.WithLabelValues("/api/communications/:lead_id", http.MethodGet, "200"))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/communications/"+id, nil))
	}

	after := testutil.ToFloat64(RequestCount.WithLabelValues("/api/communications/:lead_id", http.MethodGet, "200"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests counted under the template, got %v", after-before)
	}
}

func TestMiddlewareGroupsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Middleware())

	before := testutil.ToFloat64(RequestCount.WithLabelValues("unmatched", http.MethodGet, "404"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	after := testutil.ToFloat64(RequestCount.WithLabelValues("unmatched", http.MethodGet, "404"))
	if after-before != 1 {
		t.Fatalf("expected unmatched request counted, got %v", after-before)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
}
