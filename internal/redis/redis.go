package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

// InitRedis connects Rdb. An empty address leaves Rdb nil and every cache
// operation becomes a miss.
func InitRedis(redisAddress string, redisUsername string, redisPassword string) error {
	if redisAddress == "" {
		log.Warn().Msg("REDIS_ADDRESS not set, playback cache disabled")
		return nil
	}
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", redisAddress).Msg("connected to redis")
	return nil
}
