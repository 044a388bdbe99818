package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quickshop/quickshop-backend/config"
	"github.com/quickshop/quickshop-backend/internal/app/controller"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/app/service"
	"github.com/quickshop/quickshop-backend/internal/db"
	"github.com/quickshop/quickshop-backend/internal/realtime"
	"github.com/quickshop/quickshop-backend/internal/router"
	"github.com/quickshop/quickshop-backend/internal/scheduler"
	"github.com/quickshop/quickshop-backend/internal/storage"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/payment/midtrans"
	"github.com/quickshop/quickshop-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting QuickShop Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis (guest carts, token blacklist)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer redis.Close()

	// Payment gateway
	gateway, err := midtrans.NewClient(midtrans.Config{
		ServerKey:    cfg.Payment.Midtrans.ServerKey,
		ClientKey:    cfg.Payment.Midtrans.ClientKey,
		BaseURL:      cfg.Payment.Midtrans.BaseURL,
		IsProduction: cfg.Payment.Midtrans.IsProduction,
	})
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway", err)
	}

	// Product change feed
	hub := realtime.NewHub()
	go hub.Run()

	// Repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	guestCartRepo := repository.NewGuestCartRepository(redis.GetClient(), cfg.Cart.GuestTTL)
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	productService := service.NewProductService(productRepo, categoryRepo, hub)
	cartService := service.NewCartService(cartRepo, guestCartRepo, productRepo)
	syncService := service.NewCartSyncService(cartRepo, guestCartRepo, productRepo, cartService)
	checkoutService := service.NewCheckoutService(db.GetDB(), cartRepo, productRepo, orderRepo, userRepo, gateway, hub)
	orderService := service.NewOrderService(db.GetDB(), orderRepo, productRepo, cfg.Payment.Midtrans.ServerKey, hub)

	// Storage
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Controllers
	ctrls := router.Controllers{
		Auth:     controller.NewAuthController(authService, cartService, syncService),
		Product:  controller.NewProductController(productService),
		Cart:     controller.NewCartController(cartService, syncService),
		Checkout: controller.NewCheckoutController(checkoutService),
		Order:    controller.NewOrderController(orderService),
		Payment:  controller.NewPaymentController(orderService),
		Admin:    controller.NewAdminController(orderService),
		Upload:   controller.NewUploadController(s3Storage),
	}

	// Stock reservation release job
	reservationScheduler := scheduler.NewReservationScheduler(orderService, cfg.Order.ReservationTTL)
	if err := reservationScheduler.Start(); err != nil {
		logger.Fatal("Failed to start reservation scheduler", err)
	}
	defer reservationScheduler.Stop()

	engine := router.Setup(cfg, ctrls, hub)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
}
