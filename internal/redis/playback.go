package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	generationKey = "playback:gen"

	// HeartbeatEvery bounds how often a polling device writes last_seen.
	HeartbeatEvery = 30 * time.Second
)

// PlaybackCache holds rendered playback responses per device and minute.
// Any schedule, video or TV change bumps a generation counter, which orphans
// every cached response at once. A nil client disables caching.
type PlaybackCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPlaybackCache(rdb *redis.Client) *PlaybackCache {
	return &PlaybackCache{rdb: rdb, ttl: time.Minute}
}

// ETag is the entity tag of a response body.
func ETag(body []byte) string {
	sum := sha1.Sum(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func (c *PlaybackCache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *PlaybackCache) key(ctx context.Context, deviceID, minute string) (string, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("playback:%d:%s:%s", gen, deviceID, minute), nil
}

// Entry is one cached playback response. Key is bound to the generation seen
// by Get, so a body resolved before an Invalidate is stored where no later Get
// will look.
type Entry struct {
	Key  string
	Body []byte
	ETag string
}

// Get looks up the response for deviceID in minute. On a miss the returned
// entry still carries the key Put must write to.
func (c *PlaybackCache) Get(ctx context.Context, deviceID, minute string) (Entry, bool) {
	if !c.enabled() {
		return Entry{}, false
	}
	key, err := c.key(ctx, deviceID, minute)
	if err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to read playback generation")
		return Entry{}, false
	}
	body, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("failed to read cached playback")
		}
		return Entry{Key: key}, false
	}
	return Entry{Key: key, Body: body, ETag: ETag(body)}, true
}

// Put stores body under the key of an entry returned by Get.
func (c *PlaybackCache) Put(ctx context.Context, e Entry, body []byte) {
	if !c.enabled() || e.Key == "" {
		return
	}
	if err := c.rdb.Set(ctx, e.Key, body, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", e.Key).Msg("failed to cache playback")
	}
}

// Invalidate drops every cached response.
func (c *PlaybackCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate playback cache")
		return
	}
	log.Debug().Msg("invalidated playback cache")
}

// ClaimHeartbeat reports whether the caller should persist a heartbeat for
// deviceID now. Without redis every poll is a heartbeat.
func (c *PlaybackCache) ClaimHeartbeat(ctx context.Context, deviceID string) bool {
	if !c.enabled() {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, "heartbeat:"+deviceID, 1, HeartbeatEvery).Result()
	if err != nil {
		return true
	}
	return ok
}

// ForgetHeartbeat makes the next poll of deviceID persist a heartbeat.
func (c *PlaybackCache) ForgetHeartbeat(ctx context.Context, deviceID string) {
	if !c.enabled() {
		return
	}
	c.rdb.Del(ctx, "heartbeat:"+deviceID)
}
