package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 1*time.Second))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/r"))
	// same window; fails only if the wall clock crossed a second boundary in between
	code := serve(r, http.MethodGet, "/r")
	require.Contains(t, []int{http.StatusOK, http.StatusTooManyRequests}, code)

	// expired window keys reset the count
	m.FastForward(2 * time.Second)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/r"))
}

func TestRedisRateLimitMiddleware_KeysHaveTTL(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 100, 10, 5*time.Second))
	r.PUT("/w", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodPut, "/w"))
	keys := m.Keys()
	require.Len(t, keys, 1)
	require.Contains(t, keys[0], "rl:write:ip:")
	require.Equal(t, 6*time.Second, m.TTL(keys[0]))
}

func TestRedisRateLimitMiddleware_FailsOpen(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/r"))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0.1, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/r"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/r"))
}
