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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fishcollege/fishcollege/backend/go-services/handlers"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/admins"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/applications"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
	contenthandler "github.com/fishcollege/fishcollege/backend/go-services/internal/content/handler"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/content/repository"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/content/service"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/database"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/mailer"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/sessions"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/tokens"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

const mongoAttempts = 5

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: mongo=%v redis=%v uploads=%s mail=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Uploads.Backend, cfg.Mail.Enabled())

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.Server.CORSOrigins))

	ctx := context.Background()

	// Redis is optional: sessions, token blacklist and rate limiting use it when reachable.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			rdb = c
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to Redis: %s", addr)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, "rl", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB; without it the API keeps running on in-memory repositories.
	var mongoClient *mongo.Client
	contentRepo := repository.Repository(repository.NewMemoryRepo())
	var appRepo applications.Repository = applications.NewMemoryRepository()
	var adminRepo admins.Repository = admins.NewMemoryRepository()
	var sessionRepo sessions.Repository = sessions.NewMemoryRepository()

	mongoClient, err = database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoAttempts)
	if err != nil {
		logger.Errorf("MongoDB unavailable, falling back to in-memory storage: %v", err)
	} else {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		db := mongoClient.Database(cfg.MongoDB.Database)

		cr := repository.NewMongoRepo(db)
		ar := applications.NewMongoRepository(db.Collection("applications"))
		adr := admins.NewMongoRepository(db.Collection("admins"))
		sr := sessions.NewMongoRepository(db.Collection("sessions"))
		for name, ensure := range map[string]func(context.Context) error{
			"content":      cr.EnsureIndexes,
			"applications": ar.EnsureIndexes,
			"admins":       adr.EnsureIndexes,
			"sessions":     sr.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				logger.Warnf("failed to ensure %s indexes: %v", name, err)
			}
		}
		contentRepo, appRepo, adminRepo, sessionRepo = cr, ar, adr, sr
		logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
	}

	// Prefer Redis-based sessions when configured
	if rdb != nil {
		sessionRepo = sessions.NewRedisRepository(rdb, "")
		logger.Infof("using Redis for session storage")
	}

	var backend storage.Backend
	switch cfg.Uploads.Backend {
	case "minio":
		backend, err = storage.NewMinIOBackend(cfg.MinIO)
	default:
		backend, err = storage.NewLocalBackend(cfg.Uploads.Dir)
	}
	if err != nil {
		logger.Fatalf("failed to initialize %s upload storage: %v", cfg.Uploads.Backend, err)
	}
	store := storage.NewStore(backend, cfg.Uploads.MaxSize)
	urls := fileurl.New(cfg.Server.PublicURL)

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		logger.Fatalf("failed to initialize mailer: %v", err)
	}

	adminSvc := admins.NewService(adminRepo)
	if _, err := adminSvc.Seed(ctx, cfg.Admin); err != nil {
		logger.Errorf("failed to seed admin account: %v", err)
	}
	sessionsSvc := sessions.NewService(sessionRepo)
	if cfg.JWT.Secret == "" {
		logger.Warnf("JWT_SECRET is not set; admin login is disabled")
	}
	verifier := tokens.NewVerifier(cfg.JWT.Secret)
	requireAdmin := middleware.AuthMiddleware(verifier)

	contentSvc := service.New(contentRepo, store, urls)
	contenthandler.RegisterContentRoutes(r, contentSvc, contenthandler.Guards{
		Admin:    requireAdmin,
		Optional: middleware.OptionalAuth(verifier),
	})
	contenthandler.RegisterPublicRoutes(r, contentSvc)

	appSvc := applications.NewService(appRepo, store, mail, applications.Options{
		AdminEmail: cfg.Mail.AdminEmail,
		College:    cfg.Server.SiteName,
		BaseURL:    cfg.Server.PublicURL,
	})
	applyLimit := middleware.RateLimitMiddleware(cfg.RateLimit.ApplyRPS, cfg.RateLimit.ApplyBurst)
	if rdb != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		applyLimit = middleware.RedisRateLimitMiddleware(rdb, "rl:apply", cfg.RateLimit.ApplyRPS, cfg.RateLimit.ApplyBurst, win)
	}
	applications.RegisterRoutes(r, appSvc, store, requireAdmin, applyLimit)

	storage.RegisterRoutes(r, store)
	handlers.NewAuthHandler(cfg.JWT, adminSvc, sessionsSvc).Register(r, requireAdmin)
	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the configured dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{"mongodb": mongoClient != nil && mongoClient.Ping(pctx, nil) == nil}
		if cfg.Redis.Host != "" {
			deps["redis"] = rdb != nil && rdb.Ping(pctx).Err() == nil
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting fishcollege API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
