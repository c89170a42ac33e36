package providersync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/kd1s"
)

//go:generate mockgen -source=providersync.go -destination=mock_providersync.go -package=providersync

type OrderRepo interface {
	ListPendingProvider(ctx context.Context, limit int) ([]domain.Order, error)
}

type Provider interface {
	OrderStatus(ctx context.Context, providerOrderID string) (*kd1s.Status, error)
}

// Resolver applies provider outcomes to orders. Both calls are no-ops for
// orders that are no longer pending.
type Resolver interface {
	MarkCompletedByProvider(ctx context.Context, orderID string) (bool, error)
	Refund(ctx context.Context, orderID, reason string) (*domain.Order, error)
}

const (
	defaultBatchSize = 20
	defaultWorkers   = 5
	maxRetries       = 3
	retryInterval    = time.Second
)

type Config struct {
	Interval  time.Duration
	BatchSize int
	Workers   int
}

type Service struct {
	cfg        Config
	orders     OrderRepo
	provider   Provider
	resolver   Resolver
	workerPool WorkerPoolI
	inFlight   sync.Map
	retryDelay time.Duration
}

func New(cfg Config, orders OrderRepo, provider Provider, resolver Resolver) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Service{
		cfg:        cfg,
		orders:     orders,
		provider:   provider,
		resolver:   resolver,
		workerPool: NewWorkerPool(cfg.Workers),
		retryDelay: retryInterval,
	}
}

// Start polls until ctx is done and returns once the queued orders are
// handled. A zero interval disables the sync.
func (s *Service) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.workerPool.Close()
		zap.L().Info("provider status sync disabled")
		return
	}
	zap.L().Info("provider status sync started", zap.Duration("interval", s.cfg.Interval))
	s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer s.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("context canceled, stopping provider status sync")
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce queues one batch of pending provider orders and waits until every
// queued order was handed to a worker.
func (s *Service) SyncOnce(ctx context.Context) {
	orders, err := s.orders.ListPendingProvider(ctx, s.cfg.BatchSize)
	if err != nil {
		zap.L().Error("failed to fetch provider orders", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, order := range orders {
		order := order
		if _, loaded := s.inFlight.LoadOrStore(order.ID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer s.inFlight.Delete(order.ID)
				return s.handleOrder(ctx, order)
			})
			if err != nil {
				s.inFlight.Delete(order.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("error queueing provider orders", zap.Error(err))
	}
}

func (s *Service) handleOrder(ctx context.Context, order domain.Order) error {
	providerOrderID := domain.StringValue(order.ProviderOrderID)
	if providerOrderID == "" {
		return nil
	}

	status, err := s.status(ctx, providerOrderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}

	switch status.Normalized {
	case domain.OrderCompleted:
		changed, err := s.resolver.MarkCompletedByProvider(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("complete order %s: %w", order.ID, err)
		}
		if changed {
			zap.L().Info("provider completed order", zap.String("order_id", order.ID))
		}
	case domain.OrderCancelled:
		if _, err := s.resolver.Refund(ctx, order.ID, "KD1S: "+status.Provider); err != nil {
			return fmt.Errorf("refund order %s: %w", order.ID, err)
		}
		zap.L().Info("provider cancelled order",
			zap.String("order_id", order.ID),
			zap.String("provider_status", status.Provider))
	default:
		zap.L().Debug("provider order still in progress",
			zap.String("order_id", order.ID),
			zap.String("provider_status", status.Provider))
	}
	return nil
}

// status retries transport failures. Answers from the provider itself are
// returned at once.
func (s *Service) status(ctx context.Context, providerOrderID string) (*kd1s.Status, error) {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var status *kd1s.Status
		status, err = s.provider.OrderStatus(ctx, providerOrderID)
		if err == nil {
			return status, nil
		}
		if !kd1s.IsTemporary(err) || attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, err
}
