package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiplystart/kiplystart-backend/config"
	"github.com/kiplystart/kiplystart-backend/internal/app/controller"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/db"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
	"github.com/kiplystart/kiplystart-backend/internal/router"
	"github.com/kiplystart/kiplystart-backend/internal/scheduler"
	"github.com/kiplystart/kiplystart-backend/internal/storage"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/kiplystart/kiplystart-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format != "json",
	})

	logger.Info("Starting KiplyStart Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"cart_store":  cfg.Cart.Store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
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

	if err := db.Seed(db.GetDB(), db.SeedOptions{
		AdminEmail:     cfg.Admin.Email,
		AdminPassword:  cfg.Admin.Password,
		WhatsAppNumber: cfg.Checkout.WhatsAppNumber,
		StoreName:      cfg.Checkout.StoreName,
	}); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis backs token revocation and, optionally, cart sessions
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	cartStore, closeStore, err := openCartStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open cart store", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Failed to close cart store", err)
		}
	}()

	tiers := cart.Tiers{Tier2Pct: cfg.Cart.Tier2Pct, Tier3PlusPct: cfg.Cart.Tier3PlusPct}
	cartManager := cart.NewManager(cartStore, tiers)
	m := metrics.New()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	var presigner controller.Presigner
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		s3Storage, err := storage.NewS3Storage(ctx,
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", err)
		}
		presigner = s3Storage
	} else {
		logger.Warn("S3 credentials not configured, image uploads disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	customerRepo := repository.NewCustomerRepository(db.GetDB())
	settingRepo := repository.NewSettingRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	settingService := service.NewSettingService(settingRepo, service.SettingDefaults{
		model.SettingWhatsAppNumber:  cfg.Checkout.WhatsAppNumber,
		model.SettingStoreName:       cfg.Checkout.StoreName,
		model.SettingCheckoutEnabled: "true",
	})
	productService := service.NewProductService(productRepo, tiers)
	cartService := service.NewCartService(cartManager, productService, m)
	orderService := service.NewOrderService(orderRepo, customerRepo, hub)
	checkoutService := service.NewCheckoutService(
		cartService,
		orderRepo,
		customerRepo,
		settingService,
		hub,
		m,
		cfg.Checkout.OrderCodePrefix,
	)

	// Setup router
	r := router.NewRouter(router.Controllers{
		Auth:     controller.NewAuthController(authService),
		Product:  controller.NewProductController(productService),
		Cart:     controller.NewCartController(cartService),
		Checkout: controller.NewCheckoutController(checkoutService),
		Order:    controller.NewOrderController(orderService),
		Setting:  controller.NewSettingController(settingService),
		Upload:   controller.NewUploadController(presigner),
		Events:   controller.NewEventsController(hub, cfg.CORS.AllowedOrigins),
	}, middleware.NewAuthMiddleware(cfg.JWT.Secret), m, cfg)

	sweeper := scheduler.NewCartSweeper(cartStore, cfg.Cart.TTL, cfg.Cart.SweepSchedule, m)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start cart sweeper", err)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}

// openCartStore returns the configured cart store and a func releasing it.
func openCartStore(cfg *config.Config) (cart.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cart.Store {
	case "pebble":
		store, err := cart.NewPebbleStore(cfg.Cart.PebbleDir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "redis":
		if !cfg.Redis.Enabled {
			return nil, nil, errors.New("CART_STORE=redis requires REDIS_ENABLED=true")
		}
		return cart.NewRedisStore(redis.GetClient(), cfg.Cart.TTL), noop, nil
	case "memory":
		logger.Warn("Using in-memory cart store, carts are lost on restart")
		return cart.NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cart store %q", cfg.Cart.Store)
	}
}
