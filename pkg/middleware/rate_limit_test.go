package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/compdash/compdash/backend/go-services/pkg/metrics"
)

func serve(r *gin.Engine, method, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))

	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok"))
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok"))

	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/limited"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/limited"))

	// one token refills after 0.5s
	time.Sleep(600 * time.Millisecond)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/limited"))
}

func TestRateLimitMiddleware_ReadsAndWritesLimitedSeparately(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.1, 1))
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PUT("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/documents/a"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/documents/a"))

	// exhausted reads do not block the first save
	require.Equal(t, http.StatusOK, serve(r, http.MethodPut, "/documents/a"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPut, "/documents/a"))
}

func TestRateLimitMiddleware_InstancesAreIndependent(t *testing.T) {
	a := gin.New()
	a.Use(RateLimitMiddleware(0.1, 1))
	a.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	b := gin.New()
	b.Use(RateLimitMiddleware(0.1, 1))
	b.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/x"))
	require.Equal(t, http.StatusOK, serve(b, http.MethodGet, "/x"))
}
