package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"securelink-backend/internal/shared/telemetry"
)

// Connect builds a Redis client and verifies it with PING. An empty addr
// returns (nil, nil) so callers can fall back to in-process stores.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	telemetry.Info("redis.connected", map[string]any{"addr": addr, "db": db})
	return client, nil
}
