// Package service implements the marketplace operations behind the HTTP API:
// listing a player, searching listings, buying a listed player and reading
// the caller's team.
package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/dedupe"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/pkg/logger"
)

const (
	minIncreasePercent = 10
	maxIncreasePercent = 100
)

// Service implements the API dependencies for the marketplace.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	tracer  trace.Tracer

	// Configuration
	dedupeSize       int
	dedupeTTL        time.Duration
	purchaseAttempts int
	defaultPageSize  int
	increasePercent  func() int
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL forgets idempotency keys older than ttl.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithPurchaseAttempts bounds how often a purchase is retried after losing a
// commit to a concurrent write.
func WithPurchaseAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.purchaseAttempts = n
		}
	}
}

// WithDefaultPageSize sets the search page size used when a request omits it.
func WithDefaultPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultPageSize = n
		}
	}
}

// WithIncreasePercent replaces the source of the post-purchase value increase.
// The function must return a value in [10, 100].
func WithIncreasePercent(f func() int) Option {
	return func(s *Service) {
		if f != nil {
			s.increasePercent = f
		}
	}
}

// WithClock replaces the time source used to age idempotency keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dedupeSize:       50_000,
		purchaseAttempts: 3,
		defaultPageSize:  search.DefaultPageSize,
		increasePercent: func() int {
			return minIncreasePercent + rand.IntN(maxIncreasePercent-minIncreasePercent+1)
		},
		now:    time.Now,
		tracer: otel.Tracer("github.com/okian/squadmarket/internal/app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting market service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.dedupeTTL),
		dedupe.WithClock(s.now),
	)

	s.started = true
	s.logger.Info(ctx, "market service started",
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("dedupeTTL", s.dedupeTTL),
		logger.Int("purchaseAttempts", s.purchaseAttempts),
		logger.Int("defaultPageSize", s.defaultPageSize),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping market service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "market service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"purchaseAttempts": s.purchaseAttempts,
		"defaultPageSize":  s.defaultPageSize,
	}
	if !s.started {
		return stats
	}
	stats["idempotencyKeys"] = s.deduper.Size()
	if st, err := s.store.Stats(ctx); err == nil {
		stats["players"] = st.Players
		stats["teams"] = st.Teams
		stats["offers"] = st.Offers
	} else {
		s.logger.Warn(ctx, "reading store stats failed", logger.Error(err))
	}
	return stats
}

// span starts a tracing span for op and returns a func that ends it,
// recording err when it is internal.
func (s *Service) span(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, sp := s.tracer.Start(ctx, op)
	return ctx, func(err error) {
		if err != nil && IsInternal(err) {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, "internal")
		}
		sp.End()
	}
}

// internal logs err and returns it wrapped as an internal failure of op.
func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.Error(err))
	return Wrap(op, err)
}
