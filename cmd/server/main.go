package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"github.com/nikolayk812/bakery-cart/internal/catalog"
	"github.com/nikolayk812/bakery-cart/internal/config"
	"github.com/nikolayk812/bakery-cart/internal/logger"
	"github.com/nikolayk812/bakery-cart/internal/metrics"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"github.com/nikolayk812/bakery-cart/internal/repository"
	"github.com/nikolayk812/bakery-cart/internal/web"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Errorw("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log := logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer func() { _ = log.Sync() }()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	unit, err := currency.ParseISO(cfg.Shop.Currency)
	if err != nil {
		return fmt.Errorf("currency[%s] is not valid: %w", cfg.Shop.Currency, err)
	}

	cat, err := catalog.New(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("catalog.New: %w", err)
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("openRepository[%s]: %w", cfg.Storage.Driver, err)
	}
	defer closeRepo()

	sessions := cartstore.NewSessions(repo,
		cartstore.SessionsConfig{
			IdleTTL:   cfg.Session.IdleTTL,
			MaxStores: cfg.Session.MaxStores,
		},
		cartstore.WithCurrency(unit),
		cartstore.WithListener(metrics.ObserveCartEvent),
		cartstore.WithListener(logCartEvent),
	)

	handler, err := web.NewHandler(cat, cfg.Shop)
	if err != nil {
		return fmt.Errorf("web.NewHandler: %w", err)
	}

	// cancelled before Shutdown so open event streams return
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           web.NewRouter(handler, sessions, log),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server_started", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("server_stopping")
	cancelBase()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown: %w", err)
	}

	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (port.CartRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return repository.NewMemory(), func() {}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DSN), 0o755); err != nil {
			return nil, nil, fmt.Errorf("os.MkdirAll: %w", err)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Storage.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gorm.Open: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("db.DB: %w", err)
		}
		// single writer
		sqlDB.SetMaxOpenConns(1)

		repo, err := repository.NewSQLite(db)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return repo, func() { _ = sqlDB.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pool.Ping: %w", err)
		}

		if err := repository.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgres(pool), pool.Close, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("client.Ping: %w", err)
		}
		return repository.NewRedis(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

func logCartEvent(event cartstore.Event) {
	logger.Debugw("cart_changed",
		"owner_id", event.Cart.OwnerID,
		"op", string(event.Op),
		"name", event.Name,
		"count", event.Cart.TotalCount(),
		"total", event.Cart.TotalPrice().String(),
	)
}
