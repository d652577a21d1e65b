package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/classify"
	"github.com/repairhub/pricing-engine/internal/matching"
	"github.com/repairhub/pricing-engine/internal/metrics"
	"github.com/repairhub/pricing-engine/internal/resilience"
)

func initStore(ctx context.Context) (catalog.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "pricing.db"
		}
		return catalog.NewSQLite(dsn)
	case "postgres":
		return catalog.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initReader wraps the store with retries and a circuit breaker whose
// state is exported as a gauge.
// Zero settings fall back to the resilience defaults.
func initReader(st catalog.Reader) catalog.Reader {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		ResetTimeout:     time.Duration(cfg.Circuit.ResetTimeoutSecs) * time.Second,
		OnStateChange: func(from, to resilience.CircuitState) {
			metrics.CircuitState.Set(float64(to))
			zap.L().Warn("catalog circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		JitterFraction: resilience.DefaultRetryConfig().JitterFraction,
	}
	return catalog.NewResilientReader(st, retry, breaker)
}

func initPolicy() (*classify.Policy, error) {
	if cfg.Classify.PolicyPath == "" {
		return classify.DefaultPolicy(), nil
	}
	return classify.LoadPolicy(cfg.Classify.PolicyPath)
}

// initEngine opens the store and builds the matching engine over it. The
// caller closes the returned store.
func initEngine(ctx context.Context) (*matching.Engine, catalog.Store, error) {
	policy, err := initPolicy()
	if err != nil {
		return nil, nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init store")
	}
	return matching.NewEngine(initReader(st), policy, cfg.Matching), st, nil
}
