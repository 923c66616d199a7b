package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-storefront-service/config"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/history"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/threshold"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
	"github.com/fekuna/omnipos-storefront-service/internal/product"
	"github.com/fekuna/omnipos-storefront-service/pkg/broker"
	"github.com/fekuna/omnipos-storefront-service/pkg/cache"
	"github.com/fekuna/omnipos-storefront-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/fekuna/omnipos-storefront-service/pkg/search"
	"github.com/fekuna/omnipos-storefront-service/pkg/telemetry"

	cartH "github.com/fekuna/omnipos-storefront-service/internal/cart/handler"
	cartRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/cart/repository"
	cartUCPkg "github.com/fekuna/omnipos-storefront-service/internal/cart/usecase"

	checkoutH "github.com/fekuna/omnipos-storefront-service/internal/checkout/handler"
	checkoutRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/checkout/repository"
	checkoutUCPkg "github.com/fekuna/omnipos-storefront-service/internal/checkout/usecase"

	invH "github.com/fekuna/omnipos-storefront-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-storefront-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-storefront-service/internal/inventory/usecase"

	orderH "github.com/fekuna/omnipos-storefront-service/internal/order/handler"
	orderRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-storefront-service/internal/order/usecase"

	prodH "github.com/fekuna/omnipos-storefront-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-storefront-service/internal/product/usecase"

	promoH "github.com/fekuna/omnipos-storefront-service/internal/promotion/handler"
	promoRepoPkg "github.com/fekuna/omnipos-storefront-service/internal/promotion/repository"
	promoUCPkg "github.com/fekuna/omnipos-storefront-service/internal/promotion/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2.5 Telemetry
	shutdownTelemetry, err := telemetry.Setup(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: "1.0.0",
	})
	if err != nil {
		appLogger.Warn("Could not set up telemetry", zap.Error(err))
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			appLogger.Fatal("Could not apply schema", zap.Error(err))
		}
	}

	// 4. Initialize Repositories
	prodRepo := prodRepoPkg.NewPGRepository(db)
	promoRepo := promoRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	checkoutRepo := checkoutRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	cartStore := cartRepoPkg.NewRedisRepository(redisClient.Client, time.Duration(cfg.Cart.TTL)*time.Hour)
	sessionStore := checkoutRepoPkg.NewRedisSessionStore(redisClient.Client, time.Duration(cfg.Checkout.SessionTTL)*time.Second)

	// 5.5 Initialize Kafka
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.AdjustmentsTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()

	kafkaProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrdersTopic,
	})
	defer kafkaProducer.Close()
	appLogger.Info("Kafka configured",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("consume", cfg.Kafka.AdjustmentsTopic),
		zap.String("produce", cfg.Kafka.OrdersTopic),
	)

	// 5.8 Initialize Elasticsearch
	var searcher product.Searcher
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch (Search features might be limited)", zap.Error(err))
	} else {
		searcher = esClient
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 5.9 Payment gateway
	var verifier payment.Verifier
	if cfg.Payment.VerifyEnabled {
		verifier = payment.NewPaystackClient(&payment.PaystackConfig{
			BaseURL:   cfg.Payment.BaseURL,
			SecretKey: cfg.Payment.SecretKey,
			Timeout:   time.Duration(cfg.Payment.Timeout) * time.Second,
		})
	} else {
		appLogger.Warn("Payment verification disabled, orders will be recorded as unverified")
	}

	// 6. Initialize UseCases
	policy := threshold.Policy{GlobalDefault: cfg.Inventory.DefaultLowStockThreshold}

	promoUC := promoUCPkg.NewPromotionUseCase(promoRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, promoRepo, redisClient, searcher, policy, appLogger)
	cartUC := cartUCPkg.NewCartUseCase(cartStore, prodUC, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, redisClient, prodUC, history.NewReconstructor(appLogger), policy, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, kafkaProducer, appLogger)
	checkoutUC := checkoutUCPkg.NewCheckoutUseCase(checkoutUCPkg.Deps{
		Repo:      checkoutRepo,
		Sessions:  sessionStore,
		Cart:      cartUC,
		Verifier:  verifier,
		Publisher: kafkaProducer,
		Cache:     prodUC,
		Locker:    redisClient,
	}, checkoutUCPkg.Config{
		PublicKey:   cfg.Payment.PublicKey,
		Currency:    cfg.Payment.Currency,
		DeliveryFee: cfg.Checkout.DeliveryFee,
	}, appLogger)

	// 6.5 Initialize Listeners
	invListener := invListenerPkg.NewInventoryListener(kafkaConsumer, invUC, appLogger)
	go invListener.Start(ctx)

	// 7. HTTP API
	if !logConfig.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authenticator := auth.NewAuthenticator(cfg.JWT.SecretKey)

	api := router.Group("/api/v1")
	user := api.Group("")
	user.Use(authenticator.Middleware())
	admin := api.Group("/admin")
	admin.Use(authenticator.Middleware(), auth.RequireAdmin())

	prodH.NewProductHandler(prodUC, appLogger).Register(api, admin)
	promoH.NewPromotionHandler(promoUC, appLogger).Register(api, admin)
	cartH.NewCartHandler(cartUC, appLogger).Register(user)
	checkoutH.NewCheckoutHandler(checkoutUC, appLogger).Register(user)
	orderH.NewOrderHandler(orderUC, appLogger).Register(user, admin)
	invH.NewInventoryHandler(invUC, appLogger).Register(admin)
	auth.NewPromptHandler(&auth.PromptGate{}).Register(api)

	httpPort := cfg.Server.HTTPPort
	if !strings.HasPrefix(httpPort, ":") {
		httpPort = ":" + httpPort
	}
	httpServer := &http.Server{
		Addr:              httpPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 8. gRPC health endpoint
	grpcPort := cfg.Server.GRPCPort
	if !strings.HasPrefix(grpcPort, ":") {
		grpcPort = ":" + grpcPort
	}

	lis, err := net.Listen("tcp", grpcPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		appLogger.Error("telemetry shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
