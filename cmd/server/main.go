package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/chatledger/internal/adapter/backend"
	"github.com/pscheid92/chatledger/internal/adapter/httpserver"
	"github.com/pscheid92/chatledger/internal/adapter/legacyfile"
	"github.com/pscheid92/chatledger/internal/adapter/metrics"
	"github.com/pscheid92/chatledger/internal/adapter/twitch"
	"github.com/pscheid92/chatledger/internal/app"
	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/nickname"
	"github.com/pscheid92/chatledger/internal/permission"
	"github.com/pscheid92/chatledger/internal/platform/config"
	"github.com/pscheid92/chatledger/internal/platform/logging"
	"github.com/pscheid92/chatledger/internal/platform/version"
	"github.com/pscheid92/chatledger/internal/ratelimit"
)

const (
	shutdownTimeout = 10 * time.Second
	settingsRetries = 1
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPolicies(cfg *config.Config) *ratelimit.PolicyTable {
	def := ratelimit.Policy{
		Window:          cfg.RateWindow,
		Threshold:       cfg.RateThreshold,
		BanDuration:     cfg.BanDuration,
		BanProbability:  cfg.BanProbability,
		CritProbability: cfg.CritProbability,
	}

	actors, err := config.LoadPrivilegedActors(cfg.PrivilegedActorsFile)
	if err != nil {
		slog.Error("Failed to load privileged actors", "file", cfg.PrivilegedActorsFile, "error", err)
		os.Exit(1)
	}

	privileged := make(map[string]ratelimit.Policy, len(actors))
	for _, a := range actors {
		privileged[a.ID] = ratelimit.Policy{
			Window:          a.Window(),
			Threshold:       a.Limit(),
			BanDuration:     a.BanDuration(),
			BanProbability:  a.BanChance(),
			CritProbability: a.CritChance(),
		}
	}
	if len(privileged) > 0 {
		slog.Info("Loaded privileged actors", "count", len(privileged))
	}
	return ratelimit.NewPolicyTable(def, privileged)
}

// setupResolverChain orders name sources from most to least specific:
// names the chat connector reported for the group, Twitch, then the name
// supplied with the request.
func setupResolverChain(cfg *config.Config, members domain.NameResolver) []domain.NameResolver {
	chain := []domain.NameResolver{members}
	if cfg.TwitchEnabled() {
		helix, err := twitch.NewUserResolver(cfg.TwitchClientID, cfg.TwitchClientSecret)
		if err != nil {
			slog.Error("Failed to create Helix resolver", "error", err)
			os.Exit(1)
		}
		chain = append(chain, helix)
	}
	return append(chain, nickname.HintResolver())
}

func importLegacyData(ctx context.Context, cfg *config.Config, records domain.RecordStore) {
	if cfg.LegacyDataFile == "" {
		return
	}
	result, err := legacyfile.Import(ctx, cfg.LegacyDataFile, records)
	if err != nil {
		slog.Error("Legacy data import failed", "file", cfg.LegacyDataFile, "error", err)
		return
	}
	if !result.Imported {
		slog.Debug("No legacy data file present", "file", cfg.LegacyDataFile)
	}
}

func healthChecks(stores *backend.Stores) []httpserver.HealthCheck {
	var checks []httpserver.HealthCheck
	for _, p := range stores.ConnChecks() {
		checks = append(checks, httpserver.HealthCheck{Name: p.Name, Check: p.Check})
	}
	return checks
}

func runGracefulShutdown(srv *httpserver.Server, stops ...func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		for _, stop := range stops {
			stop()
		}
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.StoreBackend, "version", version.Get().String())

	reg := metrics.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(reg)

	stores, err := backend.Open(context.Background(), cfg, storeMetrics)
	if err != nil {
		slog.Error("Failed to open stores", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	importLegacyData(context.Background(), cfg, stores.Records)

	members := stores.MemberDirectory(cfg.MemberNameTTL)
	names := nickname.New(cfg.NicknameCacheSize, cfg.NicknameCacheTTL, clock,
		setupResolverChain(cfg, members),
		nickname.WithObserver(metrics.NewNicknameMetrics(reg)),
	)

	random := domain.SystemRandom{}
	limiter := ratelimit.NewLimiter(clock, random)
	resolver := permission.NewResolver(stores.Settings, clock, permission.Options{
		Blacklist:       cfg.Blacklist,
		AllowSelf:       cfg.SelfInteraction,
		ToggleCooldown:  cfg.ToggleCooldown,
		SettingsRetries: settingsRetries,
	})

	appSvc := app.NewService(app.Dependencies{
		Records:     stores.Records,
		Limiter:     limiter,
		Policies:    setupPolicies(cfg),
		Permissions: resolver,
		Names:       names,
		Members:     members,
		Random:      random,
		Observer:    metrics.NewInteractionMetrics(reg),
	})

	stopSweep := limiter.StartSweepTimer(cfg.SweepInterval)
	stopEviction := names.StartEvictionTimer(cfg.SweepInterval)

	srv := httpserver.NewServer(cfg, appSvc, metrics.NewHTTPMetrics(reg), metrics.Handler(reg), healthChecks(stores))
	metrics.RegisterStateGauges(reg, limiter.Size, names.Len)

	done := runGracefulShutdown(srv, stopSweep, stopEviction)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
