package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/middleware"
)

func limitedRouter(limit, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.NewRateLimitPerIP(limit, burst, 100, time.Hour))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func ping(router *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BlocksAboveBurst(t *testing.T) {
	router := limitedRouter(1, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ping(router, "10.0.0.1:1234"))
	}
	require.Equal(t, http.StatusTooManyRequests, ping(router, "10.0.0.1:1234"))
}

func TestRateLimit_TracksIPsSeparately(t *testing.T) {
	router := limitedRouter(1, 1)

	require.Equal(t, http.StatusOK, ping(router, "10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, ping(router, "10.0.0.1:5678"))
	require.Equal(t, http.StatusOK, ping(router, "10.0.0.2:1234"))
}

func TestRateLimit_RefillsOverTime(t *testing.T) {
	router := limitedRouter(100, 1)

	require.Equal(t, http.StatusOK, ping(router, "10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, ping(router, "10.0.0.1:1234"))

	time.Sleep(25 * time.Millisecond) // 100/s refills within a few ms
	require.Equal(t, http.StatusOK, ping(router, "10.0.0.1:1234"))
}
