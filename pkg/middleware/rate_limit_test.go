package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/pkg/metrics"
)

// limitedRouter builds a router that stamps the given subject into the
// claims before the limiter runs, so each test gets its own bucket.
func limitedRouter(sub string, rps float64, burst int) *gin.Engine {
	g := gin.New()
	g.GET("/",
		func(c *gin.Context) {
			if sub != "" {
				c.Set("claims", map[string]interface{}{"sub": sub})
			}
		},
		RateLimitMiddleware(rps, burst),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return g
}

func hit(g *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	g := limitedRouter("rl-burst", 1, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(g).Code, "request %d should pass", i)
	}

	before := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))
	rw := hit(g)
	require.Equal(t, http.StatusTooManyRequests, rw.Code)
	require.Equal(t, "1", rw.Header().Get("Retry-After"))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory")))
}

func TestRateLimitReplenishes(t *testing.T) {
	g := limitedRouter("rl-replenish", 20, 1)

	require.Equal(t, http.StatusOK, hit(g).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(g).Code)

	time.Sleep(120 * time.Millisecond) // 20 rps refills within ~50ms
	require.Equal(t, http.StatusOK, hit(g).Code)
}

func TestRateLimitKeysBySubject(t *testing.T) {
	a := limitedRouter("rl-subject-a", 0.5, 1)
	b := limitedRouter("rl-subject-b", 0.5, 1)

	require.Equal(t, http.StatusOK, hit(a).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(a).Code)

	// a different subject has its own bucket
	require.Equal(t, http.StatusOK, hit(b).Code)
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	g := limitedRouter("", 100, 50)

	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	require.Equal(t, http.StatusOK, hit(g).Code)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}
