package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/config"
)

func TestRateLimit_BurstThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want first two 200", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
}

func TestRateLimit_IdentitiesAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	hit := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := hit("203.0.113.1:1000"); got != http.StatusOK {
		t.Fatalf("first client = %d, want 200", got)
	}
	if got := hit("203.0.113.1:1000"); got != http.StatusTooManyRequests {
		t.Errorf("first client second hit = %d, want 429", got)
	}
	if got := hit("203.0.113.2:1000"); got != http.StatusOK {
		t.Errorf("second client = %d, want 200 (separate bucket)", got)
	}
}
