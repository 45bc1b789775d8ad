package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient parses redisURL and checks the server answers.
func NewRedisClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	const op = "lock.NewRedisClient"

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid URL: %w", op, err)
	}
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	logger.Info("redis client connected", slog.String("addr", options.Addr))
	return client, nil
}

// Redis is a Locker shared by every replica using the same server.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	const op = "lock.Redis.Acquire"

	fullKey := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
				r.logger.Warn("failed to release lock", slog.String("key", fullKey), slog.Any("error", err))
			}
		})
	}, nil
}
