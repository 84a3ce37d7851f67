// Package handlers serves the relay's probe, session and relay endpoints.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/session-relay/internal/ports"
)

// BuildInfo identifies the running relay binary. Values are injected with
// ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo stamps the linker-injected values with the running Go
// version.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{version, commit, buildTime, runtime.Version()}
}

// HealthHandler serves the /-/ probe endpoints.
type HealthHandler struct {
	checks ports.HealthRegistry
	build  BuildInfo
}

// NewHealthHandler answers readiness from checks.
func NewHealthHandler(checks ports.HealthRegistry, build BuildInfo) *HealthHandler {
	return &HealthHandler{checks: checks, build: build}
}

// Liveness handles GET /-/live. It never touches the store or the backend.
func (h *HealthHandler) Liveness(c *gin.Context) {
	noStore(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readinessResponse struct {
	Status    string                        `json:"status"`
	CheckedAt time.Time                     `json:"checkedAt"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
}

// Readiness handles GET /-/ready.
//
// An unreachable credential store makes the relay unready (503). An open
// backend rate-limit window only degrades it: the relay keeps serving, and
// callers get 429 with Retry-After until the window closes.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.checks.CheckAll(c.Request.Context())

	code := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	noStore(c)
	c.JSON(code, readinessResponse{
		Status:    string(result.Status),
		CheckedAt: now().UTC(),
		Checks:    result.Checks,
	})
}

// BuildInfoHandler handles GET /-/build.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// MetricsHandler returns the Prometheus exposition handler, which carries the
// relay's rate-limit and renewal gauges.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RegisterHealthRoutes registers the probe routes on rg:
//   - GET /live
//   - GET /ready
//   - GET /build
//   - GET /metrics
func (h *HealthHandler) RegisterHealthRoutes(rg *gin.RouterGroup) {
	for path, handle := range map[string]gin.HandlerFunc{
		"/live":    h.Liveness,
		"/ready":   h.Readiness,
		"/build":   h.BuildInfoHandler,
		"/metrics": gin.WrapH(MetricsHandler()),
	} {
		rg.GET(path, handle)
	}
}

// RegisterHealthRoutesOnEngine registers the probe routes under /-/.
func (h *HealthHandler) RegisterHealthRoutesOnEngine(engine *gin.Engine) {
	h.RegisterHealthRoutes(engine.Group("/-"))
}

// noStore keeps probe answers out of intermediary caches; readiness flips
// with the rate-limit window.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
