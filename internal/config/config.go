package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Redis        RedisConfig        `json:"redis"`
	Registration RegistrationConfig `json:"registration"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	Auth         AuthConfig         `json:"auth"`
	Storage      StorageConfig      `json:"storage"`
	RequestLog   RequestLogConfig   `json:"request_log"`
}

type ServerConfig struct {
	Port           string   `json:"port" validate:"required,numeric"`
	Environment    string   `json:"environment" validate:"oneof=development staging production"`
	AllowedOrigins []string `json:"allowed_origins"`
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the socket address is the client IP.
	TrustedProxies []string `json:"trusted_proxies" validate:"dive,cidr|ip"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn" validate:"required"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db" validate:"gte=0,lte=15"`
}

func (r RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// RegistrationConfig controls team-id allocation and what a valid team looks like.
type RegistrationConfig struct {
	TeamIDPrefix   string `json:"team_id_prefix" validate:"required,alphanum,len=4"`
	MaxProbes      int    `json:"max_probes" validate:"gte=1"`
	InsertAttempts int    `json:"insert_attempts" validate:"gte=1"`
	MinMembers     int    `json:"min_members" validate:"gte=1"`
	MaxMembers     int    `json:"max_members" validate:"gtefield=MinMembers"`
	CacheTTL       int    `json:"cache_ttl_seconds" validate:"gt=0"`
}

type RateLimitConfig struct {
	// Backend is "memory" (process-local, default) or "redis".
	Backend       string `json:"backend" validate:"oneof=memory redis"`
	IntervalMs    int    `json:"interval_ms" validate:"gt=0"`
	MaxTokens     int    `json:"max_tokens" validate:"gt=0"`
	RegisterLimit int    `json:"register_limit" validate:"gt=0"`
	LookupLimit   int    `json:"lookup_limit" validate:"gt=0"`
	UploadLimit   int    `json:"upload_limit" validate:"gt=0"`
}

func (r RateLimitConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" validate:"required,min=16"`
	AdminRole string `json:"admin_role" validate:"required"`
}

type StorageConfig struct {
	Bucket         string `json:"bucket" validate:"required"`
	Region         string `json:"region" validate:"required"`
	Endpoint       string `json:"endpoint" validate:"omitempty,url"`
	AccessKeyID    string `json:"access_key_id"`
	SecretKey      string `json:"secret_key"`
	PresignSeconds int    `json:"presign_seconds" validate:"gt=0,lte=604800"`
}

type RequestLogConfig struct {
	Enabled       bool `json:"enabled"`
	BufferSize    int  `json:"buffer_size" validate:"gte=0"`
	BatchSize     int  `json:"batch_size" validate:"gte=0"`
	RetentionDays int  `json:"retention_days" validate:"gte=0"`
}

// Load reads the JSON config at path, applies env overrides and defaults, and validates the result.
// A missing file is not an error; everything can come from the environment.
func Load(path string) (*Config, error) {
	var config Config

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORTAL_PORT")
	setString(&c.Server.Environment, "ENVIRONMENT")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Port, "REDIS_PORT")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Storage.Bucket, "S3_BUCKET")
	setString(&c.Storage.Region, "S3_REGION")
	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&c.Storage.SecretKey, "S3_SECRET_ACCESS_KEY")
	setString(&c.Registration.TeamIDPrefix, "TEAM_ID_PREFIX")

	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.Server.TrustedProxies = strings.Split(v, ",")
		for i := range c.Server.TrustedProxies {
			c.Server.TrustedProxies[i] = strings.TrimSpace(c.Server.TrustedProxies[i])
		}
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}

	reg := &c.Registration
	if reg.MaxProbes == 0 {
		reg.MaxProbes = 10
	}
	if reg.InsertAttempts == 0 {
		reg.InsertAttempts = 3
	}
	if reg.MinMembers == 0 {
		reg.MinMembers = 2
	}
	if reg.MaxMembers == 0 {
		reg.MaxMembers = 4
	}
	if reg.CacheTTL == 0 {
		reg.CacheTTL = 300
	}

	rl := &c.RateLimit
	if rl.Backend == "" {
		rl.Backend = "memory"
	}
	if rl.IntervalMs == 0 {
		rl.IntervalMs = 60000
	}
	if rl.MaxTokens == 0 {
		rl.MaxTokens = 500
	}
	if rl.RegisterLimit == 0 {
		rl.RegisterLimit = 5
	}
	if rl.LookupLimit == 0 {
		rl.LookupLimit = 30
	}
	if rl.UploadLimit == 0 {
		rl.UploadLimit = 10
	}

	if c.Auth.AdminRole == "" {
		c.Auth.AdminRole = "admin"
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.PresignSeconds == 0 {
		c.Storage.PresignSeconds = 900
	}
	if c.RequestLog.BufferSize == 0 {
		c.RequestLog.BufferSize = 1000
	}
	if c.RequestLog.BatchSize == 0 {
		c.RequestLog.BatchSize = 100
	}
	if c.RequestLog.RetentionDays == 0 {
		c.RequestLog.RetentionDays = 30
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
