package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/chatledger/internal/platform/version"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a named dependency check, such as a store ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessResponse struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, livenessResponse{
		Status:        "ok",
		Backend:       s.config.StoreBackend,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// handleReadiness checks every dependency and reports each result. One
// failing check makes the service unready.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{Status: "ready", Checks: s.checkAll(ctx)}
	status := http.StatusOK
	for name, result := range resp.Checks {
		if result != "ok" {
			slog.WarnContext(ctx, "Readiness check failed", "check", name, "error", result)
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	if err := c.JSON(status, resp); err != nil {
		return fmt.Errorf("failed to write readiness response: %w", err)
	}
	return nil
}

func (s *Server) checkAll(ctx context.Context) map[string]string {
	var mu sync.Mutex
	results := make(map[string]string, len(s.healthChecks))

	var g errgroup.Group
	for _, hc := range s.healthChecks {
		g.Go(func() error {
			result := "ok"
			if err := hc.Check(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			results[hc.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
