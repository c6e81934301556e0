package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mall-checkout/internal/cache"
	"mall-checkout/internal/client"
	"mall-checkout/internal/config"
	"mall-checkout/internal/lock"
	"mall-checkout/internal/logging"
	"mall-checkout/internal/notify"
	"mall-checkout/internal/queue"
	"mall-checkout/internal/repository"
	"mall-checkout/internal/server"
	"mall-checkout/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}

	rdb, err := client.InitRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("init redis", zap.Error(err))
	}
	defer rdb.Close()

	skuRepo := repository.NewSkuRepository(db)
	cartRepo := repository.NewCartItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txRepo := repository.NewPaymentTransactionRepository(db)

	locker := lock.NewRedisLocker(rdb)
	scheduler := queue.NewRedisScheduler(rdb)
	invalidator := cache.NewRedisInvalidator(rdb, logger)

	notifier := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, 1024, logger)
	notifier.Start(ctx)

	checkoutService := service.NewCheckoutService(
		db, cartRepo, skuRepo, orderRepo, paymentRepo,
		locker, scheduler, invalidator, logger,
		cfg.Checkout.LockTTL, cfg.Checkout.PaymentTimeout,
	)
	paymentService := service.NewPaymentService(
		db, paymentRepo, orderRepo, skuRepo, txRepo,
		scheduler, logger, cfg.Checkout.ReferencePrefix,
	)

	worker := queue.NewWorker(rdb, paymentService.Expire, logger)
	worker.Start(ctx)

	srv := server.NewServer(checkoutService, paymentService, notifier, cfg.Webhook.APIKey)
	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}
	cancel()
	worker.WaitClosed()
	notifier.WaitClosed()
}
