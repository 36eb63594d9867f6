package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var RDB *redis.Client

// InitRedis connects to REDIS_ADDR. It returns nil when Redis is not
// configured or unreachable; callers fall back to single-instance behaviour.
func InitRedis(s *Settings) *redis.Client {
	if s.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Warnf("Redis unreachable at %s, continuing without it: %v", s.RedisAddr, err)
		_ = client.Close()
		return nil
	}

	RDB = client
	logrus.Infof("Redis connected at %s", s.RedisAddr)
	return client
}
