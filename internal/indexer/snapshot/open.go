package snapshot

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/article-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/resilience"
)

// Open builds the Store selected by cfg.Snapshot.Backend. Network backends
// are wrapped in a Guarded store; m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Store, error) {
	sc := cfg.Snapshot
	switch sc.Backend {
	case config.BackendFile:
		return NewFileStore(sc.Path)
	case config.BackendBunt:
		return OpenBunt(sc.Path, sc.KeyPrefix)
	case config.BackendRedis:
		client, err := pkgredis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting snapshot redis: %w", err)
		}
		return guard("redis", NewRedisStore(client, sc.KeyPrefix), sc, m), nil
	case config.BackendPostgres:
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting snapshot postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return guard("postgres", store, sc, m), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", sc.Backend)
	}
}

func guard(name string, inner Store, sc config.SnapshotConfig, m *metrics.Metrics) *Guarded {
	cbCfg := resilience.BreakerConfig{
		Threshold: sc.FailureThreshold,
		Cooldown:  sc.ResetTimeout,
	}
	if m != nil {
		m.StoreCircuitState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		cbCfg.OnChange = func(name string, _, to resilience.State) {
			m.StoreCircuitState.WithLabelValues(name).Set(float64(to))
		}
	}
	return NewGuarded(name, inner, sc.Timeout, cbCfg)
}
