package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/cache"
	"github.com/GlebRadaev/ratnzer/internal/config"
	"github.com/GlebRadaev/ratnzer/internal/handlers"
	"github.com/GlebRadaev/ratnzer/internal/kd1s"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/notify"
	"github.com/GlebRadaev/ratnzer/internal/paytabs"
	"github.com/GlebRadaev/ratnzer/internal/pg"
	"github.com/GlebRadaev/ratnzer/internal/providersync"
	"github.com/GlebRadaev/ratnzer/internal/repo"
	"github.com/GlebRadaev/ratnzer/internal/service"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/clients"
	"github.com/GlebRadaev/ratnzer/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg   *config.Config
	api   *handlers.Handlers
	srv   *service.Services
	repo  *repo.Repositories
	sync  *providersync.Service
	pool  *pgxpool.Pool
	redis *redis.Client

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	a.pool = pool
	if err := pg.RunMigrations(ctx, pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	var productStore cache.Store
	a.redis, err = cache.InitRedis(ctx, cfg.RedisAddr)
	if err != nil {
		zap.L().Warn("redis unavailable, product cache disabled", zap.Error(err))
	} else if a.redis != nil {
		productStore = cache.NewRedisStore(a.redis)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	provider := kd1s.New(cfg.KD1SURL, cfg.KD1SKey, clients.NewHTTPClient())
	gateway := paytabs.New(paytabs.Config{
		BaseURL:      paytabs.BaseURL(cfg.PayTabsRegion),
		ServerKey:    cfg.PayTabsServerKey,
		ProfileID:    cfg.PayTabsProfileID,
		Currency:     cfg.PayTabsCurrency,
		CurrencyRate: cfg.PayTabsCurrencyRate,
		CallbackURL:  cfg.CallbackURL(),
		ReturnURL:    cfg.ReturnURL(),
	}, clients.NewHTTPClient())

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn, txManager)
	a.srv = service.New(a.repo, service.Config{
		Currency:        cfg.Currency,
		MaxTopUp:        cfg.MaxTopUp,
		GatewayTimeout:  cfg.GatewayTimeout,
		TokenTTL:        cfg.JWTTTL,
		ProductCacheTTL: cfg.ProductCacheTTL,
	}, service.Deps{
		Gateway:    gateway,
		Dispatcher: provider,
		Pusher:     newPusher(cfg),
		Cache:      productStore,
		JWT:        jwtService,
		Metrics:    appMetrics,
	})
	a.api = handlers.New(a.srv, handlers.Options{
		JWT:          jwtService,
		Metrics:      appMetrics,
		AppReturnURL: cfg.AppReturnURL,
	})
	a.sync = providersync.New(providersync.Config{
		Interval:  cfg.ProviderSyncInterval(),
		BatchSize: cfg.KD1SSyncBatchSize,
	}, a.repo.OrderRepo, provider, a.srv.Fulfillment)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startProviderSync(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully",
		zap.String("currency", cfg.Currency),
		zap.String("maxTopUp", cfg.MaxTopUp.StringFixed(2)),
		zap.Bool("providerConfigured", provider.Configured()))
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

// newPusher returns nil when push delivery is not configured; notifications
// are then only stored.
func newPusher(cfg *config.Config) notify.Pusher {
	if cfg.FCMProjectID == "" || cfg.FirebaseServiceAccount == "" {
		zap.L().Info("push notifications disabled")
		return nil
	}
	fetch, err := notify.GoogleTokenFetcher([]byte(cfg.FirebaseServiceAccount))
	if err != nil {
		zap.L().Error("invalid firebase service account, push notifications disabled", zap.Error(err))
		return nil
	}
	return notify.NewFCMPusher(cfg.FCMProjectID, notify.NewTokenCache(fetch), clients.NewHTTPClient())
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startProviderSync(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sync.Start(ctx)
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	a.close()
	return appErr
}

func (a *Application) close() {
	if a.srv != nil && a.srv.Notifier != nil {
		a.srv.Notifier.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.L().Error("redis close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
