package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Monitor collects request counters and runs registered health checks.
type Monitor struct {
	mu            sync.RWMutex
	requestCount  int64
	errorCount    int64
	active        int64
	totalDuration time.Duration
	statusCodes   map[string]int64
	endpoints     map[string]int64
	startTime     time.Time
	lastRequest   time.Time

	checkMu sync.RWMutex
	checks  map[string]CheckFunc
}

type CheckFunc func(ctx context.Context) error

type CheckResult struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type Snapshot struct {
	RequestCount   int64            `json:"request_count"`
	AvgDurationMs  float64          `json:"avg_request_duration_ms"`
	ActiveRequests int64            `json:"active_requests"`
	ErrorCount     int64            `json:"error_count"`
	StatusCodes    map[string]int64 `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoint_calls"`
	StartTime      time.Time        `json:"start_time"`
	LastRequest    time.Time        `json:"last_request"`
}

func New() *Monitor {
	return &Monitor{
		statusCodes: make(map[string]int64),
		endpoints:   make(map[string]int64),
		startTime:   time.Now(),
		checks:      make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named health probe. Probes run on every health
// request with a short timeout.
func (m *Monitor) RegisterCheck(name string, fn CheckFunc) {
	m.checkMu.Lock()
	m.checks[name] = fn
	m.checkMu.Unlock()
}

func (m *Monitor) RunChecks(ctx context.Context) map[string]CheckResult {
	m.checkMu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.checkMu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	for name, fn := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		result := CheckResult{Name: name, Status: "healthy", LastRun: time.Now()}
		if err := fn(checkCtx); err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
		}
		cancel()
		results[name] = result
	}
	return results
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.active++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		m.mu.Lock()
		m.requestCount++
		m.active--
		m.totalDuration += duration
		m.lastRequest = time.Now()
		if statusCode >= 400 {
			m.errorCount++
		}
		m.statusCodes[http.StatusText(statusCode)]++
		m.endpoints[endpoint]++
		m.mu.Unlock()
	}
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		RequestCount:   m.requestCount,
		ActiveRequests: m.active,
		ErrorCount:     m.errorCount,
		StatusCodes:    make(map[string]int64, len(m.statusCodes)),
		Endpoints:      make(map[string]int64, len(m.endpoints)),
		StartTime:      m.startTime,
		LastRequest:    m.lastRequest,
	}
	if m.requestCount > 0 {
		snap.AvgDurationMs = float64(m.totalDuration.Milliseconds()) / float64(m.requestCount)
	}
	for k, v := range m.statusCodes {
		snap.StatusCodes[k] = v
	}
	for k, v := range m.endpoints {
		snap.Endpoints[k] = v
	}
	return snap
}

type SystemMetrics struct {
	Uptime         string `json:"uptime"`
	GoroutineCount int    `json:"goroutine_count"`
	CPUCount       int    `json:"cpu_count"`
	GoVersion      string `json:"go_version"`
	AllocMB        uint64 `json:"alloc_mb"`
	SysMB          uint64 `json:"sys_mb"`
	NumGC          uint32 `json:"num_gc"`
}

func (m *Monitor) systemMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return SystemMetrics{
		Uptime:         time.Since(m.startTime).String(),
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		AllocMB:        ms.Alloc / 1024 / 1024,
		SysMB:          ms.Sys / 1024 / 1024,
		NumGC:          ms.NumGC,
	}
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": m.Snapshot(),
			"system":      m.systemMetrics(),
			"timestamp":   time.Now(),
		})
	}
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunChecks(c.Request.Context())

		overall := "healthy"
		for _, check := range checks {
			if check.Status != "healthy" {
				overall = "unhealthy"
				break
			}
		}

		status := http.StatusOK
		if overall != "healthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":    overall,
			"checks":    checks,
			"uptime":    time.Since(m.startTime).String(),
			"timestamp": time.Now(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"uptime":    time.Since(m.startTime).String(),
			"timestamp": time.Now(),
		})
	}
}
