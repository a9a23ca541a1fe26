package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/config"
	"github.com/aman-churiwal/hackathon-portal/internal/objectstore"
	"github.com/aman-churiwal/hackathon-portal/internal/ratelimit"
	"github.com/aman-churiwal/hackathon-portal/internal/server"
	"github.com/aman-churiwal/hackathon-portal/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	configPath := "config.json"
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	postgres, err := storage.NewPostgres(cfg.Database.DSN, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Connected to postgres successfully")

	redis, err := storage.NewRedis(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		if cfg.RateLimit.Backend == "redis" {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("Redis unavailable, running without the registration cache: %v", err)
		redis = nil
	} else {
		defer redis.Close()
		log.Println("Connected to redis successfully")
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		limiter = ratelimit.NewRedisLimiter(redis, cfg.RateLimit.Interval())
	default:
		limiter = ratelimit.NewInterval(cfg.RateLimit.Interval(), cfg.RateLimit.MaxTokens)
	}
	defer limiter.Close()

	presigner, err := objectstore.NewS3(context.Background(), objectstore.S3Config{
		Bucket:      cfg.Storage.Bucket,
		Region:      cfg.Storage.Region,
		Endpoint:    cfg.Storage.Endpoint,
		AccessKeyID: cfg.Storage.AccessKeyID,
		SecretKey:   cfg.Storage.SecretKey,
		Expiry:      time.Duration(cfg.Storage.PresignSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	srv, err := server.New(cfg, postgres, redis, limiter, presigner)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
