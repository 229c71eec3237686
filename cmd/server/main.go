package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fable-server/internal/config"
	"fable-server/internal/database"
	"fable-server/internal/handler"
	appLogger "fable-server/internal/logger"
	appMiddleware "fable-server/internal/middleware"
	"fable-server/internal/service"
	"fable-server/migrations"
	"fable-server/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fable-server/internal/messaging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal in container deployments.
		os.Stderr.WriteString("Warning: .env file not loaded\n")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := appLogger.New(appLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := setupDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to set up database", zap.Error(err))
	}
	defer dbPool.Close()
	logger.Info("Connected to PostgreSQL")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool, logger)
	if err = migrator.Up(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err = redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	logger.Info("Connected to RabbitMQ")

	notifier, err := messaging.NewRabbitMQNotificationPublisher(rabbitConn, cfg.NotificationQueue, logger)
	if err != nil {
		logger.Fatal("Failed to create notification publisher", zap.Error(err))
	}

	// Repositories
	storyRepo := database.NewPgStoryRepository(logger)
	participantRepo := database.NewPgParticipantRepository(logger)
	turnRepo := database.NewPgTurnRepository(logger)
	segmentRepo := database.NewPgSegmentRepository(logger)
	editRepo := database.NewPgEditRequestRepository(logger)
	invitationRepo := database.NewPgInvitationRepository(logger)
	userRepo := database.NewPgUserRepository(logger)
	tokenRepo := database.NewRedisInviteTokenRepository(redisClient, logger)
	txRunner := database.NewPgxTxRunner(dbPool)

	// Services
	storyService := service.NewStoryService(dbPool, txRunner, storyRepo, participantRepo, turnRepo, segmentRepo, userRepo, notifier, logger)
	segmentService := service.NewSegmentService(dbPool, txRunner, storyRepo, participantRepo, turnRepo, segmentRepo, notifier, logger)
	editService := service.NewEditRequestService(dbPool, txRunner, storyRepo, participantRepo, segmentRepo, editRepo, notifier, logger)
	invitationService := service.NewInvitationService(dbPool, txRunner, storyRepo, participantRepo, invitationRepo, tokenRepo, userRepo, notifier, logger)

	storyHandler := handler.NewStoryHandler(storyService, segmentService, editService, invitationService, logger, cfg.JWTSecret)

	e := echo.New()
	e.HideBanner = true
	e.Use(appMiddleware.EchoZapLogger(logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	storyHandler.RegisterRoutes(e)

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func setupDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, err
	}
	return dbPool, nil
}

// connectRabbitMQ retries the dial a few times so the service survives a
// broker that comes up slightly later than it does.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
