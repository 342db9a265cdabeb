// Package httpserver exposes the ledger over a JSON HTTP API.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/chatledger/internal/adapter/metrics"
	"github.com/pscheid92/chatledger/internal/app"
	"github.com/pscheid92/chatledger/internal/ledger"
	"github.com/pscheid92/chatledger/internal/platform/config"
)

type appService interface {
	Interact(ctx context.Context, req app.InteractionRequest) (*app.InteractionOutcome, error)
	Ranking(ctx context.Context, groupID string, kind ledger.Kind) (*app.RankingView, error)
	Profile(ctx context.Context, groupID, userID string) (*app.ProfileView, error)
	SetOptOut(ctx context.Context, userID string, optOut bool) (*app.ToggleOutcome, error)
	SetOverride(ctx context.Context, ownerID, otherID string, allowed bool) (*app.ToggleOutcome, error)
	RememberMember(ctx context.Context, groupID, userID, name string) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer builds the router. httpMetrics and metricsHandler may be nil.
func NewServer(cfg *config.Config, app appService, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            app,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
