package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("REDIS_HOST", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "whiteboards", cfg.MongoDB.WhiteboardCollection)
	assert.Equal(t, 15*time.Minute, cfg.MinIO.PresignTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Redis.Addr())
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigFor_OverridesEnvBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := LoadConfigFor(BackendMongo)
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.Store.Backend)

	// postgres from the env would have failed validation without a DSN
	t.Setenv("POSTGRES_DSN", "")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Mongo(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "compdash_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "compdash_test", cfg.MongoDB.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory ok", Config{Store: StoreConfig{Backend: BackendMemory}}, ""},
		{"mongo without uri", Config{Store: StoreConfig{Backend: BackendMongo}, MongoDB: MongoDBConfig{Database: "d"}}, "MONGODB_URI"},
		{"postgres without dsn", Config{Store: StoreConfig{Backend: BackendPostgres}}, "POSTGRES_DSN"},
		{"postgres ok", Config{Store: StoreConfig{Backend: BackendPostgres}, Postgres: PostgresConfig{DSN: "postgres://x"}}, ""},
		{"unknown backend", Config{Store: StoreConfig{Backend: "sqlite"}}, "unknown STORE_BACKEND"},
		{"redis limiter without redis", Config{
			Store:     StoreConfig{Backend: BackendMemory},
			RateLimit: RateLimitConfig{Enabled: true, RPS: 1, Burst: 1, UseRedis: true},
		}, "REDIS_HOST"},
		{"limiter without rate", Config{
			Store:     StoreConfig{Backend: BackendMemory},
			RateLimit: RateLimitConfig{Enabled: true},
		}, "RATE_LIMIT_RPS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
