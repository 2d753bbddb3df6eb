package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status    string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version   string                    `json:"version"`
	Uptime    string                    `json:"uptime"`
	Timestamp time.Time                 `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker checks the service dependencies: Postgres, Redis and the
// selected mail provider.
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	provider    mailing.Provider
	startTime   time.Time

	// The mail check dials the relay, so its result is reused for
	// mailCheckTTL instead of re-dialing on every request.
	mailMu      sync.Mutex
	mailChecked time.Time
	mailResult  ComponentCheck
}

// NewHealthChecker creates a new HealthChecker.
// Any dependency can be nil; the check will report "not configured" for nil deps.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, provider mailing.Provider) *HealthChecker {
	return &HealthChecker{
		db:          db,
		redisClient: redisClient,
		provider:    provider,
		startTime:   time.Now(),
	}
}

const mailCheckTTL = 30 * time.Second

const healthVersion = "1.0.0"

// HandleHealth returns the status of every component. It always answers
// 200; use /health/ready for checks that need a 503.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	httputil.OK(w, HealthStatus{
		Status:    determineOverallStatus(checks),
		Version:   healthVersion,
		Uptime:    formatUptime(time.Since(hc.startTime)),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// HandleLiveness answers 200 while the process is up.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 200 only when the database is reachable.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	ready := overall != "unhealthy"
	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	httputil.JSON(w, httpStatus, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 3)

	go func() { ch <- result{"database", hc.checkDatabase(ctx)} }()
	go func() { ch <- result{"redis", hc.checkRedis(ctx)} }()
	go func() { ch <- result{"mail", hc.checkMail(ctx)} }()

	checks := make(map[string]ComponentCheck, 3)
	for i := 0; i < 3; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

// checkDatabase pings PostgreSQL with a 3-second timeout.
func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.db.PingContext(pingCtx)
	return latencyCheck(time.Since(start), time.Second, err)
}

// checkRedis pings Redis with a 2-second timeout.
func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.redisClient.Ping(pingCtx).Err()
	return latencyCheck(time.Since(start), 500*time.Millisecond, err)
}

// checkMail runs the provider's own Verify when it has one. Providers without
// one are reported up with their name only. Failure details go to the
// log; the response only names the provider.
func (hc *HealthChecker) checkMail(ctx context.Context) ComponentCheck {
	if hc.provider == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}
	v, ok := hc.provider.(mailing.Verifier)
	if !ok {
		return ComponentCheck{Status: "up", Message: fmt.Sprintf("%s (no verify)", hc.provider.Name())}
	}

	hc.mailMu.Lock()
	defer hc.mailMu.Unlock()
	if !hc.mailChecked.IsZero() && time.Since(hc.mailChecked) < mailCheckTTL {
		return hc.mailResult
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := v.Verify(verifyCtx)
	latency := time.Since(start)
	result := ComponentCheck{Status: "up", Latency: latency.String(), Message: string(hc.provider.Name())}
	if err != nil {
		logger.Warn("mail provider health check failed", "provider", hc.provider.Name(), "error", err)
		result = ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("%s verify failed", hc.provider.Name()),
		}
	}
	hc.mailChecked = time.Now()
	hc.mailResult = result
	return result
}

func latencyCheck(latency, slow time.Duration, err error) ComponentCheck {
	if err != nil {
		logger.Warn("health ping failed", "error", err)
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: "ping failed",
		}
	}
	if latency > slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// determineOverallStatus derives the aggregate status from individual checks.
//
// Rules:
//   - "unhealthy" if the configured database is down
//   - "degraded"  if any check is degraded or another configured check is down
//   - "healthy"   otherwise
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if db, ok := checks["database"]; ok && db.Status == "down" && db.Message != "not configured" {
		return "unhealthy"
	}

	for _, c := range checks {
		if c.Status == "degraded" {
			return "degraded"
		}
		if c.Status == "down" && c.Message != "not configured" {
			return "degraded"
		}
	}

	return "healthy"
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
