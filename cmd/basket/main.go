package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	handler "storefront/app/handler/api"
	"storefront/app/handler/subscriber"
	"storefront/app/repository/broker"
	"storefront/app/repository/cache"
	"storefront/app/usecase"
	"storefront/config"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// init logger
	logger.InitLogger()

	ctx := context.Background()
	// init config
	cfg, err := config.InitBasketConfig(ctx)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		return
	}

	// init basket store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "error", err)
		return
	}

	// Connect to NATS server
	nc, err := nats.Connect(cfg.Nats.Url)
	if err != nil {
		slog.Error("Error connecting to NATS", "error", err)
		return
	}
	defer nc.Drain()

	js, err := jetstream.New(nc)
	if err != nil {
		slog.Error("Error creating JetStream context", "error", err)
		return
	}
	stream, err := broker.EnsureStream(ctx, js, cfg.Nats)
	if err != nil {
		slog.Error("create catalog stream failed", "error", err)
		return
	}
	consumer, err := broker.EnsurePriceChangedConsumer(ctx, stream, cfg.Nats, cfg.Consumer)
	if err != nil {
		slog.Error("create price changed consumer failed", "error", err)
		return
	}

	metrics.RegisterBasket(prometheus.DefaultRegisterer)

	reqValidator := validator.New()
	basketRepo := cache.NewBasketRepository(rdb, cfg.Redis.BasketTTL)
	basketUsecase := usecase.NewBasketUsecase(basketRepo, cfg.Consumer.Concurrency)
	basketHandler := handler.NewBasketHandler(basketUsecase, reqValidator)
	priceChanged := subscriber.NewPriceChangedSubscriber(basketUsecase, reqValidator, cfg.Consumer.NakDelay, cfg.Consumer.AckWait)

	cc, err := consumer.Consume(priceChanged.Handle, jetstream.ConsumeErrHandler(
		func(consumeCtx jetstream.ConsumeContext, err error) {
			slog.Warn("price changed consume error", "error", err)
		}))
	if err != nil {
		slog.Error("subscribe price changed failed", "error", err)
		return
	}

	// Initialize HTTP web framework
	app := handler.NewApp(logger.New(os.Stdout), func(c *fiber.Ctx) bool {
		return nc.IsConnected() && rdb.Ping(c.Context()).Err() == nil
	})
	handler.SetupBasketRouter(app, basketHandler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Failed to listen", "port", cfg.Port, "error", err)
			return
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Gracefully shutdown")

	// unacked deliveries are redelivered to the next instance
	cc.Stop()

	if err := app.Shutdown(); err != nil {
		slog.Warn("Unfortunately the shutdown wasn't smooth", "err", err)
	}
}
