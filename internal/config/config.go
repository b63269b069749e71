package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI                  string
	Database             string
	Timeout              time.Duration
	WhiteboardCollection string
	AuditCollection      string
}

type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MigrateOnStart bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port, empty when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	MaxUploadBytes int64
	PresignTTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	return load("")
}

// LoadConfigFor is LoadConfig with the store backend fixed by the caller
// instead of STORE_BACKEND.
func LoadConfigFor(backend string) (*Config, error) {
	return load(backend)
}

func load(backend string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	if backend != "" {
		v.Set("STORE_BACKEND", backend)
	}

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("MONGODB_DATABASE", "compdash")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_WHITEBOARD_COLLECTION", "whiteboards")
	v.SetDefault("MONGODB_AUDIT_COLLECTION", "audit_log")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_MIGRATE_ON_START", true)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "compdash-whiteboards")
	v.SetDefault("MINIO_MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("MINIO_PRESIGN_TTL_MINUTES", 15)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		},
		MongoDB: MongoDBConfig{
			URI:                  v.GetString("MONGODB_URI"),
			Database:             v.GetString("MONGODB_DATABASE"),
			Timeout:              time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			WhiteboardCollection: v.GetString("MONGODB_WHITEBOARD_COLLECTION"),
			AuditCollection:      v.GetString("MONGODB_AUDIT_COLLECTION"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("POSTGRES_DSN"),
			MaxConns:       v.GetInt32("POSTGRES_MAX_CONNS"),
			MigrateOnStart: v.GetBool("POSTGRES_MIGRATE_ON_START"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:       v.GetString("MINIO_ENDPOINT"),
			AccessKey:      v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:      v.GetString("MINIO_SECRET_KEY"),
			UseSSL:         v.GetBool("MINIO_USE_SSL"),
			Bucket:         v.GetString("MINIO_BUCKET"),
			MaxUploadBytes: v.GetInt64("MINIO_MAX_UPLOAD_BYTES"),
			PresignTTL:     time.Duration(v.GetInt("MINIO_PRESIGN_TTL_MINUTES")) * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo backend"))
		}
		if c.MongoDB.Database == "" {
			errs = append(errs, errors.New("MONGODB_DATABASE is required for the mongo backend"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
		}
		if c.RateLimit.UseRedis && c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required for the redis rate limiter"))
		}
	}
	if c.MinIO.Endpoint != "" && c.MinIO.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MINIO_MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
