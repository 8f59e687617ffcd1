package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/config"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/handlers"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/middleware"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/mongodb"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/cache"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/database"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/payment"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/push"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/websocket"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     cfg.App.LogFormat,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Storage
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		appLogger.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIndex()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Repositories
	cacheService := services.NewCacheService(redisCache)
	orderRepo := mongodb.NewOrderRepository(db.Database, cacheService)
	paymentRepo := mongodb.NewPaymentRepository(db.Database)
	promoRepo := mongodb.NewPromoRepository(db.Database, cacheService)
	userRepo := mongodb.NewUserRepository(db.Database)
	restaurantRepo := mongodb.NewRestaurantRepository(db.Database)
	riderRepo := mongodb.NewRiderRepository(db.Database)

	// Outbound integrations
	gateways := buildGatewayRegistry(cfg.Payment)

	pushProvider := buildPushProvider(cfg.Push, appLogger)

	wsHandler := websocket.NewHandler()

	// Services
	notifications := services.NewNotificationService(wsHandler.Hub(), redisCache, pushProvider, userRepo, appLogger)
	promoService := services.NewPromoService(promoRepo, orderRepo, appLogger)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, gateways, promoService, notifications, appLogger)
	orderService := services.NewOrderService(orderRepo, promoService, paymentService, notifications, redisCache, appLogger)
	assignmentService := services.NewAssignmentService(orderRepo, riderRepo, restaurantRepo, redisCache, notifications, appLogger)

	// Handlers
	orderHandler := handlers.NewOrderHandler(orderService, restaurantRepo, riderRepo)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService, riderRepo)
	paymentHandler := handlers.NewPaymentHandler(paymentService, orderService)
	promoHandler := handlers.NewPromoHandler(promoService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupOrderRoutes(v1, orderHandler, cfg.Security.JWTSecret)
		routes.SetupAssignmentRoutes(v1, assignmentHandler, cfg.Security.JWTSecret)
		routes.SetupPaymentRoutes(v1, paymentHandler, cfg.Security.JWTSecret)
		routes.SetupPromoRoutes(v1, promoHandler, cfg.Security.JWTSecret)
	}

	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"mongodb": "up", "redis": "up"}
		if err := db.Ping(); err != nil {
			checks["mongodb"] = "down"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":  checks,
			"name":    utils.AppName,
			"version": utils.AppVersion,
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting %s on port %d", utils.AppName, cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}

// buildPushProvider picks the mobile push rail for this deployment.
// Push stays best effort: a misconfigured provider logs and disables
// itself instead of blocking startup.
func buildPushProvider(cfg *config.PushConfig, appLogger *logger.Logger) push.Provider {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Provider {
	case "fcm":
		provider, err := push.NewFCMProvider(cfg.FCM.CredentialsFile)
		if err != nil {
			appLogger.WithError(err).Warn("FCM unavailable, push notifications disabled")
			return nil
		}
		return provider
	case "apns":
		provider, err := push.NewAPNSProvider(
			cfg.APNS.KeyFile, cfg.APNS.KeyID, cfg.APNS.TeamID,
			cfg.APNS.BundleID, cfg.APNS.Production,
		)
		if err != nil {
			appLogger.WithError(err).Warn("APNS unavailable, push notifications disabled")
			return nil
		}
		return provider
	}

	appLogger.Warnf("Unknown push provider %q, push notifications disabled", cfg.Provider)
	return nil
}

func buildGatewayRegistry(cfg *config.PaymentConfig) *payment.Registry {
	var clients []payment.GatewayClient

	if cfg.Bkash.Enabled {
		clients = append(clients, payment.NewBkashClient(
			cfg.Bkash.BaseURL, cfg.Bkash.AppKey, cfg.Bkash.AppSecret,
			cfg.Bkash.Username, cfg.Bkash.Password,
		))
	}
	if cfg.Nagad.Enabled {
		clients = append(clients, payment.NewNagadClient(
			cfg.Nagad.BaseURL, cfg.Nagad.MerchantID,
			cfg.Nagad.PublicKey, cfg.Nagad.PrivateKey,
		))
	}
	if cfg.SSLCommerz.Enabled {
		clients = append(clients, payment.NewSSLCommerzClient(
			cfg.SSLCommerz.BaseURL, cfg.SSLCommerz.StoreID, cfg.SSLCommerz.StorePassword,
		))
	}
	if cfg.Stripe.Enabled {
		clients = append(clients, payment.NewStripeClient(cfg.Stripe.SecretKey))
	}

	return payment.NewRegistry(clients...)
}
