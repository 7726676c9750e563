package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/cache"
	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/config"
	"github.com/campuslink/backend/internal/container"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/events"
	"github.com/campuslink/backend/internal/handlers"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"github.com/campuslink/backend/internal/moderation"
	"github.com/campuslink/backend/internal/recommendations"
	"github.com/campuslink/backend/internal/repository"
	"github.com/campuslink/backend/internal/storage"
	"github.com/campuslink/backend/internal/telemetry"
	"github.com/campuslink/backend/internal/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "campuslink-backend"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== campuslink server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	ctx := context.Background()
	c, h, err := build(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to start", zap.Error(err))
	}

	router := newRouter(cfg, c, h)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("campuslink backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Realtime sessions first so hijacked connections do not hold up Shutdown.
	if err := c.WebSocket().Shutdown(shutdownCtx); err != nil {
		logger.WarnWithFields("WebSocket shutdown warning", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := c.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}

	logger.Log.Info("Server exited")
}

// build opens every resource, registers its cleanup and wires the chat
// pipeline. Optional integrations are skipped with a log line when not
// configured.
func build(ctx context.Context, cfg *config.Config) (*container.Container, *handlers.Handlers, error) {
	c := container.New().SetLogger(logger.Log)
	metrics.Initialize()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: 1.0,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	} else if tp != nil {
		c.OnCleanup(tp.Shutdown)
		logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTelEndpoint))
	}

	db, err := database.Open(cfg.Database, !cfg.IsProduction())
	if err != nil {
		return nil, nil, err
	}
	c.SetDB(db).OnCleanup(func(context.Context) error { return database.Close(db) })

	if tp != nil {
		if err := db.Use(telemetry.GORMTracingPlugin(cfg.Database.Driver)); err != nil {
			logger.WarnWithFields("Failed to install database tracing", err)
		}
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}

	if cfg.RedisHost != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without it", err)
		} else {
			c.SetCache(redisClient).OnCleanup(func(context.Context) error { return redisClient.Close() })
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaMessageTopic)
		c.SetPublisher(publisher).OnCleanup(func(context.Context) error { return publisher.Close() })
		logger.Log.Info("Publishing chat events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	if cfg.AWSBucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.WarnWithFields("S3 unavailable, media uploads disabled", err)
		} else {
			if err := uploader.CheckBucketAccess(ctx); err != nil {
				logger.WarnWithFields("S3 bucket access check failed", err, zap.String("bucket", cfg.AWSBucket))
			}
			c.SetUploader(uploader)
		}
	}

	authService := auth.NewService(db, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.AllowedEmailDomain)
	c.SetAuthService(authService)

	conversations := chat.NewConversationStore(db)
	messages := chat.NewMessageStore(db)
	membership := chat.NewMembershipManager(db, conversations)

	hub := websocket.NewHub()
	go hub.Run()
	coordinator := chat.NewCoordinator(conversations, messages, hub, c.Publisher())

	wsHandler := websocket.NewHandler(hub, authService, coordinator, conversations, cfg.CORSOrigins)
	wsHandler.RegisterChatHandlers()
	c.SetHub(hub).SetCoordinator(coordinator).SetWebSocketHandler(wsHandler)

	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	h := handlers.NewHandlers(
		authService,
		repository.NewUserRepository(db),
		repository.NewPostRepository(db),
		conversations,
		membership,
		coordinator,
	)
	h.SetSpamClassifier(moderation.NewSpamClient(cfg.SpamAPIURL, cfg.UpstreamTimeout))
	h.SetRanker(recommendations.NewClient(cfg.RecommenderAPIURL, cfg.UpstreamTimeout))
	if uploader := c.Uploader(); uploader != nil {
		h.SetMediaUploader(uploader)
	}
	if redisClient := c.Cache(); redisClient != nil {
		h.SetFeedCache(redisClient)
	}

	return c, h, nil
}
