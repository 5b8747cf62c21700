package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"taskmaster-backend/shared/config"
)

// RateLimiter throttles the credential endpoints with Redis counters.
// One INCR+EXPIRE window per client IP and route. When Redis is
// unreachable requests pass through: availability of login wins over
// strictness of the limiter.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter connects to Redis using the shared config
func NewRateLimiter() (*RateLimiter, error) {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		redisDB = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	log.Printf("✅ Rate limiter connected to Redis - %s:%s DB:%d", cfg.RedisHost, cfg.RedisPort, redisDB)
	return &RateLimiter{client: client}, nil
}

// LimitLogin throttles login attempts per client IP
func (rl *RateLimiter) LimitLogin() gin.HandlerFunc {
	cfg := config.GetConfig()
	return rl.limit("login", cfg.GetLoginRateLimitMaxAttempts(),
		time.Duration(cfg.GetLoginRateLimitWindowSeconds())*time.Second)
}

// LimitRegister throttles registrations per client IP
func (rl *RateLimiter) LimitRegister() gin.HandlerFunc {
	cfg := config.GetConfig()
	return rl.limit("register", cfg.GetRegisterRateLimitMaxAttempts(),
		time.Duration(cfg.GetRegisterRateLimitWindowSeconds())*time.Second)
}

func (rl *RateLimiter) limit(route string, maxAttempts int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", route, c.ClientIP())
		ctx := c.Request.Context()

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("⚠️ Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			rl.client.Expire(ctx, key, window)
		}

		if count > int64(maxAttempts) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Please try again later."})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Close releases the Redis connection
func (rl *RateLimiter) Close() error {
	if rl == nil || rl.client == nil {
		return nil
	}
	return rl.client.Close()
}
