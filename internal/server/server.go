package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-churiwal/auth-gateway/internal/config"
	"github.com/aman-churiwal/auth-gateway/internal/handler"
	"github.com/aman-churiwal/auth-gateway/internal/healthcheck"
	"github.com/aman-churiwal/auth-gateway/internal/middleware"
	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/aman-churiwal/auth-gateway/internal/ratelimit"
	"github.com/aman-churiwal/auth-gateway/internal/repository"
	"github.com/aman-churiwal/auth-gateway/internal/service"
	"github.com/aman-churiwal/auth-gateway/internal/storage"
	"github.com/aman-churiwal/auth-gateway/internal/usage"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	postgres *storage.Postgres
	redis    *storage.RedisClient

	verifier *service.CredentialVerifier
	limiter  *ratelimit.TierLimiter
	recorder *usage.Recorder
	checker  *healthcheck.Checker
	gate     *middleware.Gate

	authHandler   *handler.AuthHandler
	apiKeyHandler *handler.APIKeyHandler
	usageHandler  *handler.UsageHandler

	httpServer *http.Server
	startTime  time.Time
}

func New(cfg *config.Config, logger *zap.Logger, postgres *storage.Postgres, redis *storage.RedisClient) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := repository.NewUserRepository(postgres)
	apiKeyRepo := repository.NewAPIKeyRepository(postgres)
	tierRepo := repository.NewTierRepository(postgres)
	usageRepo := repository.NewUsageRepository(postgres)

	verifier := service.NewCredentialVerifier(cfg.Argon2)
	totp := service.NewTOTPValidator()
	tokens := service.NewTokenService(cfg.JWT)
	authService := service.NewAuthService(userRepo, apiKeyRepo, verifier, totp, tokens, logger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, verifier, logger)

	limiter := ratelimit.NewTierLimiter(ratelimit.Config{
		CacheTTL: cfg.RateLimit.CacheTTL,
		Window:   cfg.RateLimit.Window,
	}, tierRepo, usageRepo, logger)

	recorder := usage.NewRecorder(usageRepo, cfg.Usage.FlushInterval, logger)

	gate := middleware.NewGate(tokens, userRepo, limiter, recorder, cfg.JWT, logger)

	checker := healthcheck.NewChecker(healthcheck.Config{}, logger)
	checker.Register("postgres", postgres.Ping)
	checker.Register("redis", redis.Ping)

	s := &Server{
		router:        gin.New(),
		config:        cfg,
		logger:        logger,
		postgres:      postgres,
		redis:         redis,
		verifier:      verifier,
		limiter:       limiter,
		recorder:      recorder,
		checker:       checker,
		gate:          gate,
		authHandler:   handler.NewAuthHandler(authService, tokens, redis, cfg.JWT, cfg.Server.HTTPSEnabled, logger),
		apiKeyHandler: handler.NewAPIKeyHandler(apiKeyService),
		usageHandler:  handler.NewUsageHandler(usageRepo),
		startTime:     time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/signup", s.authHandler.Signup)
	s.router.POST("/login", s.authHandler.Login)
	s.router.GET("/auth/validate", s.authHandler.Validate)

	authed := s.router.Group("/")
	authed.Use(s.gate.RequireRoles(models.RoleUser, models.RoleAdmin))
	{
		authed.GET("/protected", s.authHandler.Protected)
		authed.GET("/usage/day", s.usageHandler.LastDay)
		authed.GET("/usage/week", s.usageHandler.LastWeek)
		authed.POST("/apikeys", s.apiKeyHandler.Create)
		authed.GET("/apikeys", s.apiKeyHandler.List)
		authed.POST("/apikeys/rotate/:id", s.apiKeyHandler.Rotate)
		authed.DELETE("/apikeys/:id", s.apiKeyHandler.Disable)
	}

	admin := s.router.Group("/admin")
	admin.Use(s.gate.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/status", s.adminStatus)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	checks := s.checker.Snapshot()
	healthy := s.checker.Healthy()

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "auth-gateway",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gateway":       "running",
		"uptime":        time.Since(s.startTime).Seconds(),
		"usage_pending": s.recorder.Pending(),
		"breaker_state": s.limiter.BreakerState().String(),
		"timestamp":     time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.checker.Start()
	s.recorder.Start()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	s.logger.Info("starting auth gateway",
		zap.String("addr", addr),
		zap.String("environment", s.config.Server.Environment))

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then drains the usage queue and stops
// the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.checker.Stop()
	s.recorder.Close()
	s.limiter.Close()
	s.verifier.Close()

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
