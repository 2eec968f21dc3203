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

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnisamohammad/cinehub-backend/internal/handler"
	"github.com/unnisamohammad/cinehub-backend/internal/metrics"
	"github.com/unnisamohammad/cinehub-backend/internal/middleware"
	"github.com/unnisamohammad/cinehub-backend/internal/pricing"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
	"github.com/unnisamohammad/cinehub-backend/internal/service"
	"github.com/unnisamohammad/cinehub-backend/internal/worker"
	"github.com/unnisamohammad/cinehub-backend/pkg/config"
	"github.com/unnisamohammad/cinehub-backend/pkg/database"
	"github.com/unnisamohammad/cinehub-backend/pkg/logger"
	pkgredis "github.com/unnisamohammad/cinehub-backend/pkg/redis"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("starting cinehub booking service",
		zap.String("environment", cfg.App.Environment))

	ctx := context.Background()

	tel, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:       cfg.OTel.Enabled,
		ServiceName:   cfg.OTel.ServiceName,
		CollectorAddr: cfg.OTel.CollectorAddr,
		SampleRatio:   cfg.OTel.SampleRatio,
	})
	if err != nil {
		appLog.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	if err := metrics.Init(); err != nil {
		appLog.Fatal("failed to initialize metrics", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("database connected")

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		appLog.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()
	appLog.Info("redis connected")

	var publisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			BookingTopic: cfg.Kafka.Topic,
			ClientID:     cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("kafka connection failed, events disabled", zap.Error(err))
		} else {
			publisher = kafkaPublisher
			appLog.Info("kafka event publisher connected")
		}
	}
	defer publisher.Close()

	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	paymentRepo := repository.NewPostgresPaymentRepository(db.Pool())
	catalogRepo := repository.NewPostgresCatalogRepository(db.Pool())
	userRepo := repository.NewPostgresUserRepository(db.Pool())
	seatLockRepo := repository.NewRedisSeatLockRepository(redisClient)

	feePct, err := decimal.NewFromString(cfg.Booking.ConvenienceFeePct)
	if err != nil {
		appLog.Fatal("invalid convenience fee percent", zap.Error(err))
	}
	taxPct, err := decimal.NewFromString(cfg.Booking.TaxPct)
	if err != nil {
		appLog.Fatal("invalid tax percent", zap.Error(err))
	}
	calculator := pricing.NewCalculator(pricing.Config{
		ConvenienceFeePct: feePct,
		TaxPct:            taxPct,
	})

	bookingService := service.NewBookingService(
		bookingRepo, seatLockRepo, catalogRepo, userRepo, calculator, publisher,
		&service.BookingServiceConfig{
			HoldTTL:            cfg.Booking.HoldTTL,
			MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
		},
	)
	paymentService := service.NewPaymentService(
		paymentRepo, bookingRepo, bookingService, publisher,
		&service.PaymentServiceConfig{WebhookSecret: cfg.Payment.WebhookSecret},
	)

	expiryWorker, err := worker.NewExpiryWorker(bookingService, &worker.ExpiryWorkerConfig{
		Interval:  cfg.Booking.SweepInterval,
		BatchSize: cfg.Booking.SweepBatchSize,
	})
	if err != nil {
		appLog.Fatal("failed to create expiry worker", zap.Error(err))
	}
	if err := expiryWorker.Start(); err != nil {
		appLog.Fatal("failed to start expiry worker", zap.Error(err))
	}
	defer func() {
		if err := expiryWorker.Stop(); err != nil {
			appLog.Warn("expiry worker stop failed", zap.Error(err))
		}
	}()

	router := buildRouter(cfg, bookingService, paymentService, db, redisClient)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	bookingService service.BookingService,
	paymentService service.PaymentService,
	db *database.PostgresDB,
	redisClient *pkgredis.Client,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthChecker{
		"postgres": db,
		"redis":    redisClient,
	})

	router.GET("/health/live", healthHandler.Live)
	router.GET("/health/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	api.GET("/shows/:id/seats", bookingHandler.GetAvailableSeats)
	api.POST("/payments/callback", paymentHandler.HandleCallback)
	api.POST("/tickets/:number/scan", bookingHandler.ScanTicket)

	authorized := api.Group("")
	authorized.Use(middleware.Auth(cfg.JWT.Secret))
	authorized.POST("/bookings", bookingHandler.InitiateBooking)
	authorized.GET("/bookings", bookingHandler.GetUserBookings)
	authorized.GET("/bookings/:id", bookingHandler.GetBooking)
	authorized.GET("/bookings/number/:number", bookingHandler.GetBookingByNumber)
	authorized.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
	authorized.GET("/bookings/:id/payment", paymentHandler.GetBookingPayment)
	authorized.POST("/payments", paymentHandler.InitiatePayment)
	authorized.GET("/payments/:id", paymentHandler.GetPayment)
	authorized.POST("/payments/refund", paymentHandler.Refund)
	authorized.GET("/tickets/:number", bookingHandler.GetTicket)
	authorized.GET("/tickets/:number/qr", bookingHandler.TicketQR)

	return router
}
