package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo-manager/backend/internal/config"
	"todo-manager/backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func rateLimitedRouter(cfg config.RateLimitConfig) (*gin.Engine, *middleware.RateLimiter) {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(cfg)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router, limiter
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	router, limiter := rateLimitedRouter(config.RateLimitConfig{
		RequestsPerMin:  60,
		BurstSize:       3,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("GET", "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status %d, got %d", i+1, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	router, limiter := rateLimitedRouter(config.RateLimitConfig{
		RequestsPerMin:  1,
		BurstSize:       1,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", w.Code)
	}

	req, _ = http.NewRequest("GET", "/ping", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
}

func TestRateLimiter_TracksClientsSeparately(t *testing.T) {
	router, limiter := rateLimitedRouter(config.RateLimitConfig{
		RequestsPerMin:  1,
		BurstSize:       1,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	first, _ := http.NewRequest("GET", "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected first client to pass, got %d", w.Code)
	}

	second, _ := http.NewRequest("GET", "/ping", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, second)
	if w.Code != http.StatusOK {
		t.Errorf("Expected separate client to pass, got %d", w.Code)
	}
}
