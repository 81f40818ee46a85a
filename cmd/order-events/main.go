package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-orders/internal/config"
	kafkax "github.com/ariefcatur/go-checkout-orders/internal/kafka"
	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/projector"
	"github.com/ariefcatur/go-checkout-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.Init(logging.Options{Component: "order-events", Level: cfg.Log.Level, File: cfg.Log.File})
	if !cfg.Kafka.Enabled {
		log.Error("kafka.enabled is false, nothing to consume")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis
	if !cfg.RedisEnabled() {
		log.Error("redis.addr is required to project order events")
		os.Exit(1)
	}
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Error("redis", "err", err)
		os.Exit(1)
	}

	svc := &projector.Service{
		Redis:       rdb,
		Cache:       redisx.NewStatusCache(rdb, cfg.Redis.StatusTTL),
		ServiceName: cfg.ServiceName + "-order-events",
		Log:         logging.New("projector"),
	}

	cons := kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Group, cfg.Kafka.Topic, cfg.Kafka.Workers)
	log.Info("order events consumer started", "group", cfg.Kafka.Group, "topic", cfg.Kafka.Topic, "workers", cfg.Kafka.Workers)
	if err := cons.Start(ctx, svc.HandleEvent); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
