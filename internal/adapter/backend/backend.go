// Package backend opens the configured record and setting stores.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/chatledger/internal/adapter/memory"
	"github.com/pscheid92/chatledger/internal/adapter/metrics"
	"github.com/pscheid92/chatledger/internal/adapter/postgres"
	"github.com/pscheid92/chatledger/internal/adapter/redis"
	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/platform/config"
)

const connectTimeout = 10 * time.Second

// Stores bundles the opened stores and the connections behind them.
// Redis is set whenever REDIS_URL is configured, even if records live in
// Postgres, so the member directory can use it.
type Stores struct {
	Records  domain.RecordStore
	Settings domain.SettingStore
	Pool     *pgxpool.Pool
	Redis    *goredis.Client
}

// Open connects to the configured backend and runs migrations for Postgres.
// m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.StoreMetrics) (*Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	s := &Stores{}
	if cfg.RedisURL != "" {
		hooks := []goredis.Hook{redis.NewCircuitBreakerHook(m)}
		if m != nil {
			hooks = append(hooks, redis.NewMetricsHook(m))
		}
		rdb, err := redis.NewClient(ctx, cfg.RedisURL, hooks...)
		if err != nil {
			return nil, err
		}
		s.Redis = rdb
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		var tracer *postgres.MetricsTracer
		if m != nil {
			tracer = postgres.NewMetricsTracer(m)
		}
		pool, err := connectPostgres(ctx, cfg.DatabaseURL, tracer)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Pool = pool
		s.Records = postgres.NewRecordRepo(pool)
		s.Settings = postgres.NewSettingRepo(pool)
	case config.BackendRedis:
		s.Records = redis.NewRecordStore(s.Redis, m)
		s.Settings = redis.NewSettingStore(s.Redis, m)
	case config.BackendMemory:
		s.Records = memory.NewRecordStore()
		s.Settings = memory.NewSettingStore()
	default:
		s.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return s, nil
}

func connectPostgres(ctx context.Context, url string, tracer *postgres.MetricsTracer) (*pgxpool.Pool, error) {
	// a nil *MetricsTracer must not reach pgx as a non-nil interface
	var pool *pgxpool.Pool
	var err error
	if tracer != nil {
		pool, err = postgres.Connect(ctx, url, tracer)
	} else {
		pool, err = postgres.Connect(ctx, url, nil)
	}
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// MemberDirectory stores names reported by the chat connector and serves
// them back as a name resolver.
type MemberDirectory interface {
	domain.NameResolver
	Remember(ctx context.Context, groupID, userID, name string) error
}

// MemberDirectory returns the Redis-backed directory when Redis is
// available and an in-process one otherwise.
func (s *Stores) MemberDirectory(ttl time.Duration) MemberDirectory {
	if s.Redis != nil {
		return redis.NewMemberDirectory(s.Redis, ttl)
	}
	return memory.NewMemberDirectory()
}

// ConnCheck is a named connectivity check for one open connection.
type ConnCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ConnChecks returns one check per open connection. The memory backend has none.
func (s *Stores) ConnChecks() []ConnCheck {
	var checks []ConnCheck
	if s.Pool != nil {
		checks = append(checks, ConnCheck{Name: "postgres", Check: s.Pool.Ping})
	}
	if s.Redis != nil {
		checks = append(checks, ConnCheck{Name: "redis", Check: func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// Ping runs every check and stops at the first failure.
func (s *Stores) Ping(ctx context.Context) error {
	for _, p := range s.ConnChecks() {
		if err := p.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return nil
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}
