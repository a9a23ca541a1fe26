package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/auth"
	"github.com/aman-churiwal/hackathon-portal/internal/config"
	"github.com/aman-churiwal/hackathon-portal/internal/handler"
	"github.com/aman-churiwal/hackathon-portal/internal/middleware"
	"github.com/aman-churiwal/hackathon-portal/internal/objectstore"
	"github.com/aman-churiwal/hackathon-portal/internal/ratelimit"
	"github.com/aman-churiwal/hackathon-portal/internal/repository"
	"github.com/aman-churiwal/hackathon-portal/internal/service"
	"github.com/aman-churiwal/hackathon-portal/internal/storage"
	"github.com/aman-churiwal/hackathon-portal/internal/teamid"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	limiter    ratelimit.Limiter
	logWriter  *middleware.RequestLogWriter
	analytics  *service.AnalyticsService
	httpServer *http.Server

	stopRetention chan struct{}
	retentionDone sync.WaitGroup
}

// New wires repositories, services and routes. redis may be nil, which
// disables the registration cache.
func New(cfg *config.Config, postgres *storage.Postgres, redis *storage.RedisClient, limiter ratelimit.Limiter, presigner objectstore.Presigner) (*Server, error) {
	router, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}

	registrationRepo := repository.NewRegistrationRepository(postgres)
	requestLogRepo := repository.NewRequestLogRepository(postgres)

	var cache service.Cache
	checks := map[string]handler.Pinger{"database": postgres}
	if redis != nil {
		cache = redis
		checks["redis"] = redis
	}

	allocator := teamid.NewAllocator(registrationRepo, cfg.Registration.TeamIDPrefix, cfg.Registration.MaxProbes)
	registrations := service.NewRegistrationService(registrationRepo, allocator, cache, presigner, service.RegistrationOptions{
		InsertAttempts: cfg.Registration.InsertAttempts,
		MinMembers:     cfg.Registration.MinMembers,
		MaxMembers:     cfg.Registration.MaxMembers,
		CacheTTL:       time.Duration(cfg.Registration.CacheTTL) * time.Second,
	})
	analytics := service.NewAnalyticsService(requestLogRepo, registrationRepo)

	s := &Server{
		router:        router,
		config:        cfg,
		limiter:       limiter,
		analytics:     analytics,
		stopRetention: make(chan struct{}),
	}

	if cfg.RequestLog.Enabled {
		s.logWriter = middleware.NewRequestLogWriter(requestLogRepo, cfg.RequestLog.BufferSize, cfg.RequestLog.BatchSize, 5*time.Second)
		s.startLogRetention(24 * time.Hour)
	}

	s.setupMiddleware()
	s.setupRoutes(
		handler.NewRegistrationHandler(registrations),
		handler.NewAnalyticsHandler(analytics),
		handler.NewSystemHandler(checks, registrations, analytics, gin.H{
			"environment":    cfg.Server.Environment,
			"team_id_prefix": cfg.Registration.TeamIDPrefix,
			"rate_limit":     cfg.RateLimit.Backend,
		}),
		auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AdminRole),
	)

	return s, nil
}

// newRouter builds the engine. Forwarded headers are only read from the
// configured proxies; with none, ClientIP is the peer address.
func newRouter(cfg *config.Config) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	return router, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CanonicalLog())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	if s.logWriter != nil {
		s.router.Use(middleware.RequestLogger(s.logWriter))
	}
}

func (s *Server) setupRoutes(registrations *handler.RegistrationHandler, analytics *handler.AnalyticsHandler, system *handler.SystemHandler, verifier *auth.Verifier) {
	rl := s.config.RateLimit

	s.router.GET("/health", system.Health)

	api := s.router.Group("/api")
	{
		api.POST("/registrations", middleware.RateLimit(s.limiter, rl.RegisterLimit, "register"), registrations.Create)
		api.GET("/registrations/:teamId", middleware.RateLimit(s.limiter, rl.LookupLimit, "lookup"), registrations.Lookup)
		api.POST("/registrations/:teamId/payment-proof", middleware.RateLimit(s.limiter, rl.UploadLimit, "upload"), registrations.PaymentProofUpload)
	}

	admin := s.router.Group("/admin", middleware.RequireAdmin(verifier))
	{
		admin.GET("/status", system.Status)
		admin.GET("/analytics", analytics.GetSummary)
		admin.GET("/logs", analytics.GetLogs)

		admin.GET("/registrations", registrations.List)
		admin.GET("/registrations/:teamId", registrations.Get)
		admin.POST("/registrations/:teamId/approve", registrations.Approve)
		admin.POST("/registrations/:teamId/reject", registrations.Reject)
		admin.DELETE("/registrations/:teamId", registrations.Delete)
		admin.GET("/registrations/:teamId/payment-proof", registrations.PaymentProofView)
	}
}

// startLogRetention prunes request logs older than the configured retention once per interval.
func (s *Server) startLogRetention(every time.Duration) {
	days := s.config.RequestLog.RetentionDays
	if days <= 0 {
		return
	}

	prune := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		deleted, err := s.analytics.CleanupOldLogs(ctx, days)
		if err != nil {
			log.Printf("Failed to prune request logs: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("Pruned %d request logs older than %d days", deleted, days)
		}
	}

	s.retentionDone.Add(1)
	go func() {
		defer s.retentionDone.Done()

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		prune()
		for {
			select {
			case <-ticker.C:
				prune()
			case <-s.stopRetention:
				return
			}
		}
	}()
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting hackathon portal on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, then stops the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	close(s.stopRetention)
	s.retentionDone.Wait()

	if s.logWriter != nil {
		if cerr := s.logWriter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
