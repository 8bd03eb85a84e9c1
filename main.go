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

	"github.com/ibtikar/ibtikar-backend/handlers"
	"github.com/ibtikar/ibtikar-backend/internal/applications"
	"github.com/ibtikar/ibtikar-backend/internal/authprovider"
	"github.com/ibtikar/ibtikar-backend/internal/config"
	"github.com/ibtikar/ibtikar-backend/internal/database"
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/messages"
	"github.com/ibtikar/ibtikar-backend/internal/oidc"
	"github.com/ibtikar/ibtikar-backend/internal/payments"
	"github.com/ibtikar/ibtikar-backend/internal/projects"
	"github.com/ibtikar/ibtikar-backend/internal/refresh"
	"github.com/ibtikar/ibtikar-backend/internal/storage"
	"github.com/ibtikar/ibtikar-backend/internal/tokens"
	"github.com/ibtikar/ibtikar-backend/pkg/logger"
	"github.com/ibtikar/ibtikar-backend/pkg/metrics"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v sso=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.SSO.IssuerURL != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production should use a stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis first: rate limiter, refresh sessions and the token blacklist use
	// it when available.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Document gateway: MongoDB when configured, in-memory otherwise.
	var gw gateway.Gateway
	if cfg.MongoDB.URI != "" {
		client, errConn := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if errConn != nil {
			logger.Warnf("failed to connect to MongoDB: %v", errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			gw = gateway.NewMongo(client.Database(cfg.MongoDB.Database))
			logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
		}
	}
	if gw == nil {
		logger.Warnf("no MongoDB available; using in-memory gateway (data is not persisted)")
		gw = gateway.NewMemory()
	}

	// Refresh sessions: Redis when available, Mongo-backed gateway otherwise.
	var refreshRepo refresh.Repository
	if rdb != nil {
		refreshRepo = refresh.NewRedisRepository(rdb, "refresh:")
		logger.Infof("using Redis for refresh sessions")
	} else {
		refreshRepo = refresh.NewGatewayRepository(gw)
	}
	refreshSvc := refresh.NewService(refreshRepo)
	blacklist := refresh.NewBlacklist(rdb)

	provider := authprovider.NewLocal(gw)

	// Verifiers: locally issued HS256 tokens always; SSO id tokens when the
	// issuer is configured.
	verifier := tokens.Chain{tokens.NewHSVerifier(cfg.JWT.Secret)}
	if cfg.SSO.IssuerURL != "" && cfg.SSO.ClientID != "" {
		if ssoVer, err := oidc.NewVerifier(ctx, cfg.SSO.IssuerURL, cfg.SSO.ClientID); err != nil {
			logger.Warnf("failed to initialize SSO verifier: %v", err)
		} else {
			verifier = append(verifier, ssoVer)
			logger.Infof("SSO sign-in enabled for issuer %s", cfg.SSO.IssuerURL)
		}
	}

	projectsSvc := projects.NewService(gw)
	applicationsSvc := applications.NewService(gw, projectsSvc)
	paymentsSvc := payments.NewService(gw)
	messagesSvc := messages.NewService(gw)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"gateway": gw != nil,
			"redis":   !cfg.RateLimit.UseRedis || rdb != nil,
		}
		ready := true
		for _, ok := range deps {
			if !ok {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	authHandler := handlers.NewAuthHandler(cfg, gw, provider, refreshSvc, blacklist)
	authHandler.Register(r.Group("/"))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(verifier, blacklist), middleware.RequireIdentity(gw))
	handlers.NewMeHandler(gw).Register(api)
	handlers.NewProjectsHandler(projectsSvc, applicationsSvc).Register(api)
	handlers.NewPaymentsHandler(paymentsSvc).Register(api)
	handlers.NewMessagesHandler(gw, messagesSvc).Register(api)

	// Attachments are optional; the API works without an object store.
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		att, err := storage.NewAttachments(storage.Config{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			Bucket:    bucketName(),
		})
		if err != nil {
			logger.Warnf("attachments disabled: %v", err)
		} else {
			handlers.NewAttachmentsHandler(att).Register(api)
			logger.Infof("attachments enabled (bucket %s)", bucketName())
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting ibtikar backend on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func bucketName() string {
	if b := os.Getenv("MINIO_BUCKET"); b != "" {
		return b
	}
	return "ibtikar"
}
