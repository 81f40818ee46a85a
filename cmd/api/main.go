package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ariefcatur/go-checkout-orders/internal/config"
	"github.com/ariefcatur/go-checkout-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-checkout-orders/internal/kafka"
	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/memstore"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
	"github.com/ariefcatur/go-checkout-orders/internal/postgres"
	"github.com/ariefcatur/go-checkout-orders/internal/redisx"
	"github.com/ariefcatur/go-checkout-orders/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.Init(logging.Options{Component: "api", Level: cfg.Log.Level, File: cfg.Log.File})

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(telemetry.Options{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing.Enabled})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Store
	var (
		store orders.Store
		ready []func(context.Context) error
	)
	switch cfg.Store.Driver {
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		store = memstore.New()
	default:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN, postgres.PoolConfig{MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
		}
		store = &postgres.Store{DB: db}
		ready = append(ready, db.Ping)
	}

	// Redis
	opts := []orders.Option{orders.WithProducerName(cfg.ServiceName)}
	var idem httpx.IdempotencyStore
	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		ready = append(ready, func(ctx context.Context) error { return redisx.Ping(ctx, rdb) })
		opts = append(opts, orders.WithStatusCache(redisx.NewStatusCache(rdb, cfg.Redis.StatusTTL)))
		idem = redisx.NewIdempotencyStore(rdb, cfg.Redis.IdemTTL)
	}

	// Kafka producer
	var prod *kafkax.Producer
	if cfg.Kafka.Enabled {
		prod = kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, 1024)
		prod.Start(ctx)
		opts = append(opts, orders.WithEvents(prod))
	}

	svc := orders.NewService(store, opts...)
	router := httpx.NewRouter(httpx.Deps{
		Orders:         svc,
		Auth:           httpx.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Idempotency:    idem,
		Logger:         logging.New("http"),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      otelhttp.NewHandler(router, "checkout-api"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver, "events", cfg.Kafka.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errCh:
		return err
	}
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	if prod != nil {
		prod.Close()      // stop intake, flush inbox, close writer
		prod.WaitClosed() // drain
	}
	return nil
}

// connectRedis returns nil when Redis is not configured, or when it is down
// and the in-memory store is in use. The postgres deployment requires it.
func connectRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		log.Warn("redis.addr empty, running without status cache and idempotency keys")
		return nil, nil
	}
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password)
	err := redisx.Ping(ctx, rdb)
	if err == nil {
		return rdb, nil
	}
	_ = rdb.Close()
	if cfg.Store.Driver == "memory" {
		log.Warn("redis unreachable, running without status cache and idempotency keys", "addr", cfg.Redis.Addr, "err", err)
		return nil, nil
	}
	return nil, err
}
