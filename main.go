package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/learnhub/learnhub/handlers"
	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/chats"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/database"
	"github.com/learnhub/learnhub/internal/payments"
	"github.com/learnhub/learnhub/internal/progress"
	"github.com/learnhub/learnhub/internal/storage"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/metrics"
	"github.com/learnhub/learnhub/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v razorpay=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Razorpay.KeyID != "")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS: the frontend sends credentials (cookies), so the origin must be
	// echoed explicitly, never "*".
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && origin == cfg.Server.ClientURL {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Connect to Redis early so the rate limiter can use it when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// Connect to MongoDB with retry/backoff to tolerate startup races
	ctx := context.Background()
	const maxAttempts = 5
	backoff := time.Second
	var client *mongo.Client
	var errConn error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if errConn == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if errConn != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	// MinIO-backed media storage is optional; uploads answer 503 without it
	var media *storage.MediaStore
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		media, err = storage.NewMediaStore(mcfg)
		if err != nil {
			logger.Warnf("media storage unavailable: %v", err)
		}
	}

	accountsRepo := accounts.NewMongoRepository(db.Collection("users"))
	courseStore := courses.NewMongoStore(db.Collection("courses"), db.Collection("videos"))
	progressStore := progress.NewMongoStore(db.Collection("progress"), db.Collection("ratings"), db.Collection("certificates"))
	chatStore := chats.NewMongoStore(db.Collection("chats"), db.Collection("notifications"))
	paymentStore := payments.NewMongoStore(db.Collection("payments"))
	authSvc := auth.NewService(cfg, accountsRepo)
	gateway := payments.NewClient(cfg)

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["mongodb"] = client.Ping(c.Request.Context(), nil) == nil
		if !deps["mongodb"] {
			ready = false
		}
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}
		deps["media"] = media != nil

		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api")
	handlers.NewAuthHandler(cfg, authSvc, accountsRepo, courseStore).Register(api)
	handlers.NewCoursesHandler(cfg, courseStore, accountsRepo).Register(api)
	handlers.NewVideosHandler(cfg, courseStore, accountsRepo).Register(api)
	handlers.NewProgressHandler(cfg, progressStore, courseStore, accountsRepo).Register(api)
	handlers.NewRatingsHandler(cfg, progressStore, courseStore, accountsRepo).Register(api)
	handlers.NewChatsHandler(cfg, chatStore, courseStore, accountsRepo).Register(api)
	handlers.NewNotificationsHandler(cfg, chatStore, accountsRepo).Register(api)
	handlers.NewPaymentsHandler(cfg, paymentStore, gateway, courseStore, accountsRepo).Register(api)
	handlers.NewAdminHandler(cfg, accountsRepo, courseStore, paymentStore, chatStore).Register(api)
	handlers.NewUploadsHandler(cfg, media, accountsRepo).Register(api)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting learnhub api on %s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
