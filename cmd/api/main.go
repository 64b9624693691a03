package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
	"github.com/oneshop/marketplace-orders/internal/checkout"
	"github.com/oneshop/marketplace-orders/internal/config"
	"github.com/oneshop/marketplace-orders/internal/directsale"
	"github.com/oneshop/marketplace-orders/internal/httpx"
	kafkax "github.com/oneshop/marketplace-orders/internal/kafka"
	"github.com/oneshop/marketplace-orders/internal/postgres"
	"github.com/oneshop/marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
	if cfg.FallbackSellerID == "" {
		log.Warn("FALLBACK_SELLER_ID not set: external-feed cart items will be dropped")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := &redisx.OrderCache{R: rdb}

	checkoutProd := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicCheckoutCompleted, 1024, log)
	checkoutProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicOrderStatusChanged, 1024, log)
	statusProd.Start(ctx)

	ledger := catalog.NewLedger(db)
	repo := &checkout.Repo{DB: db, Log: log}
	resolver := &checkout.Resolver{
		Products:         ledger,
		Sellers:          repo,
		FallbackSellerID: cfg.FallbackSellerID,
		Log:              log,
	}
	composer := &checkout.Service{
		Resolver:    resolver,
		Store:       repo,
		Producer:    checkoutProd,
		Log:         log,
		ServiceName: cfg.ServiceName,
	}
	coordinator := &checkout.Coordinator{
		DB:          db,
		Log:         log,
		Producer:    statusProd,
		Cache:       cache,
		ServiceName: cfg.ServiceName,
	}
	sales := &directsale.Service{
		Store: &directsale.Repo{DB: db, Log: log},
		Log:   log,
	}

	router := httpx.NewRouter()
	(&httpx.CheckoutHandler{Svc: composer, Log: log}).Register(router)
	(&httpx.OrdersHandler{
		Coordinator:       coordinator,
		Orders:            repo,
		Stock:             ledger,
		Cache:             cache,
		Log:               log,
		LowStockThreshold: cfg.LowStockThreshold,
	}).Register(router)
	(&httpx.SalesHandler{Svc: sales, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)

	checkoutProd.Close() // flush & close writers
	statusProd.Close()
	cancel()
	checkoutProd.WaitClosed()
	statusProd.WaitClosed()
}
