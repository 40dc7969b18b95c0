package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// NewRedisClient opens a connection pool sized for pub/sub fan-out and
// verifies it with a ping before handing it out.
func NewRedisClient(ctx context.Context, host string, port int) (*redis.Client, error) {
	maxPool := runtime.NumCPU() * 8
	if maxPool > 512 {
		maxPool = 512
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		PoolSize: maxPool,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		zap.L().Error("redis_connect", zap.Error(err))
		rc.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rc, nil
}
