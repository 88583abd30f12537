package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	handler "storefront/app/handler/api"
	"storefront/app/repository/broker"
	"storefront/app/repository/db"
	"storefront/app/usecase"
	"storefront/config"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"sync"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// init logger
	logger.InitLogger()

	ctx := context.Background()
	// init config
	cfg, err := config.InitCatalogConfig(ctx)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		return
	}

	// init database
	dbConn, err := db.NewPostgres(ctx, cfg.Db)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		return
	}
	defer dbConn.Close()

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
	if _, err := broker.EnsureStream(ctx, js, cfg.Nats); err != nil {
		slog.Error("create catalog stream failed", "error", err)
		return
	}

	metrics.RegisterCatalog(prometheus.DefaultRegisterer)

	reqValidator := validator.New()
	productRepo := db.NewProductRepository(dbConn)
	outboxRepo := db.NewOutboxRepository(dbConn)
	productBroker := broker.NewProductBrokerPublisher(js, cfg.Nats.StreamName)

	notifier := usecase.NewPriceChangeNotifier(cfg.Outbox.PublishMode, productBroker, outboxRepo)
	productUsecase := usecase.NewProductUsecase(productRepo, notifier)
	productHandler := handler.NewProductHandler(productUsecase, reqValidator)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	var relayDone sync.WaitGroup
	if cfg.Outbox.PublishMode == config.PublishModeOutbox {
		relay := usecase.NewOutboxRelay(outboxRepo, productBroker, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
		relayDone.Add(1)
		go func() {
			defer relayDone.Done()
			relay.Run(relayCtx)
		}()
	}

	// Initialize HTTP web framework
	app := handler.NewApp(logger.New(os.Stdout), func(c *fiber.Ctx) bool {
		return nc.IsConnected() && dbConn.PingContext(c.Context()) == nil
	})
	handler.SetupCatalogRouter(app, productHandler)

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

	stopRelay()
	relayDone.Wait()

	if err := app.Shutdown(); err != nil {
		slog.Warn("Unfortunately the shutdown wasn't smooth", "err", err)
	}
}
