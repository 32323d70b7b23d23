package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type probe struct {
	name string
	// required probes make the service unready when they fail
	required bool
	check    func(ctx context.Context) error
}

// HealthHandler reports on the ledger's backing stores.
type HealthHandler struct {
	probes    []probe
	startTime time.Time
	version   string
}

// NewHealthHandler probes Postgres and, when rdb is set, Redis.
func NewHealthHandler(db Pinger, rdb redis.UniversalClient, version string) *HealthHandler {
	h := &HealthHandler{startTime: time.Now(), version: version}
	h.probes = append(h.probes, probe{name: "database", required: true, check: db.Ping})
	if rdb != nil {
		h.probes = append(h.probes, probe{name: "redis", required: true, check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return h
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Failing   []string          `json:"failing,omitempty"`
}

// Liveness only says the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) run(ctx context.Context) (checks map[string]string, failing []string) {
	checks = make(map[string]string, len(h.probes))
	for _, p := range h.probes {
		if err := p.check(ctx); err != nil {
			checks[p.name] = "unhealthy: " + err.Error()
			if p.required {
				failing = append(failing, p.name)
			}
			continue
		}
		checks[p.name] = "healthy"
	}
	sort.Strings(failing)
	return checks, failing
}

// Readiness runs every probe; any required failure is a 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks, failing := h.run(ctx)
	status, code := "healthy", http.StatusOK
	if len(failing) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Failing:   failing,
	})
}

// Health is the short form used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if _, failing := h.run(ctx); len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"error":   "dependency unavailable",
			"failing": failing,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
