package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// Config contains circuit breaker settings.
type Config struct {
	Name             string
	FailureThreshold uint32
	MaxHalfOpen      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultConfig returns default circuit breaker settings.
func DefaultConfig() *Config {
	return &Config{
		Name:             "cache-store",
		FailureThreshold: 5,
		MaxHalfOpen:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
	}
}

// Store guards another StorePort with a circuit breaker. While the breaker is
// open every call fails fast with gobreaker.ErrOpenState, which the pool
// reports as an ordinary store failure.
type Store struct {
	next    outbound.StorePort
	breaker *gobreaker.CircuitBreaker[any]
}

// NewStore wraps next. A nil config uses DefaultConfig.
func NewStore(next outbound.StorePort, config *Config, logger *zap.Logger) *Store {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxHalfOpen,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		// A miss is a normal answer, not a backend fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, outbound.ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache store breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Store{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.next.Has(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Put(ctx, key, value, ttl)
	})
	return err
}

func (s *Store) Forever(ctx context.Context, key string, value []byte) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Forever(ctx, key, value)
	})
	return err
}

func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.next.Forget(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Store) Flush(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Flush(ctx)
	})
	return err
}

// Prune forwards to the wrapped store when it supports pruning.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	pruner, ok := s.next.(outbound.PrunerPort)
	if !ok {
		return 0, outbound.ErrPruneUnsupported
	}
	v, err := s.breaker.Execute(func() (any, error) {
		return pruner.Prune(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Compile-time checks
var (
	_ outbound.StorePort  = (*Store)(nil)
	_ outbound.PrunerPort = (*Store)(nil)
)
