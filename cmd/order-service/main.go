package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/config"
	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/httpx"
	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/logging"
	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/notify"
	ord "github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/order"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store := ord.NewFileStore(cfg.DataFile, ord.StoreOptions{
		MaxRecords:   cfg.MaxOrders,
		CacheTTL:     cfg.CacheTTL,
		WriteRetries: cfg.WriteRetries,
		RetryDelay:   cfg.RetryDelay,
	}, logger)

	dispatcher := notify.NewDispatcher(
		notify.NewHTTPEmailSender(cfg.EmailAPIBase, cfg.EmailAPIKey, cfg.EmailFrom),
		notify.NewHTTPSMSSender(cfg.SMSAPIBase, cfg.SMSAPIKey, cfg.SMSSender),
		cfg.NotifyTimeout,
		logger,
	)

	svc := ord.NewService(store, dispatcher, logger)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(logger))

	r.POST("/orders", createOrderHandler(svc))
	r.GET("/orders", listOrdersHandler(store))
	r.GET("/orders/:id", getOrderHandler(store))
	r.POST("/orders/:id/status", updateOrderStatusHandler(svc))
	r.GET("/orders/:id/status", getStatusOptionsHandler(store))
	r.GET("/healthz", healthHandler(store))

	logger.Info("order-service listening", zap.String("addr", cfg.Addr))
	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
