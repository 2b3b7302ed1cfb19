package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsMiddleware_StatusCodesAreNumeric(t *testing.T) {
	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/articles/:slug", func(c *gin.Context) {
		if c.Param("slug") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug")})
	})
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/articles/a", "/articles/b", "/articles/missing", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	// route templates keep cardinality bounded
	assert.Equal(t, 2.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/articles/:slug", "200")))
	assert.Equal(t, 1.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/articles/:slug", "404")))
	assert.Equal(t, 1.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/boom", "502")))
	assert.Equal(t, 0.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/articles/:slug", "OK")))
}

func TestMetricsMiddleware_UnmatchedRoutes(t *testing.T) {
	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope/2", nil))

	assert.Equal(t, 2.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
