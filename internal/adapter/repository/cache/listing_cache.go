package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "listing:"
	genPrefix = "listing-gen:"

	// genTTL outlives any single read by a wide margin; an expired counter
	// restarts at zero.
	genTTL = 24 * time.Hour
)

// ListingCache keeps expanded listings in Redis as JSON, next to a per-listing
// generation counter that Delete increments.
type ListingCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewListingCache(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *ListingCache {
	return &ListingCache{client: client, ttl: ttl, logger: log.Named("ListingCache")}
}

func key(id string) string    { return keyPrefix + id }
func genKey(id string) string { return genPrefix + id }

// Get returns nil and the current generation on a miss.
func (c *ListingCache) Get(ctx context.Context, id string) (*domain.ListingDetails, int64, error) {
	vals, err := c.client.MGet(ctx, key(id), genKey(id)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis mget failed: %w", err)
	}

	var generation int64
	if raw, ok := vals[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("corrupt cache generation for %s: %w", id, err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, nil
	}
	var details domain.ListingDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("listing_id", id), zap.Error(err))
		_ = c.client.Del(ctx, key(id)).Err()
		return nil, generation, nil
	}
	return &details, generation, nil
}

// Set stores details if the listing's generation still equals generation.
// A fill that lost the race against Delete is skipped without error.
func (c *ListingCache) Set(ctx context.Context, details *domain.ListingDetails, generation int64) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode cached listing: %w", err)
	}

	gk := genKey(details.ID)
	stale := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			stale = true
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(details.ID), data, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		stale, err = true, nil
	}
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stale {
		c.logger.Debug("Skipping stale cache fill", zap.String("listing_id", details.ID), zap.Int64("generation", generation))
	}
	return nil
}

// Delete drops the entry and bumps the generation so in-flight fills are discarded.
func (c *ListingCache) Delete(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(id))
		pipe.Expire(ctx, genKey(id), genTTL)
		pipe.Del(ctx, key(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}
