package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caresync-health/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps JSON snapshots of hot read models in redis, such as a
// patient's most recent vitals. Writers invalidate; readers repopulate under
// a version check.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache returns a cache whose keys are namespaced by prefix. A zero
// ttl keeps entries until they are invalidated.
func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the snapshot into dst and reports whether one was present.
func (c *SnapshotCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A snapshot we cannot decode is treated as a miss and dropped.
		logger.WithError(err).WithField("key", c.key(key)).Warn("discarding undecodable snapshot")
		_ = c.client.Del(ctx, c.key(key)).Err()
		return false, nil
	}
	return true, nil
}

// Version returns the invalidation counter for key, zero if it was never
// invalidated. Read it before loading the value that will be cached.
func (c *SnapshotCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading snapshot version %s: %w", key, err)
	}
	return v, nil
}

// SetIfVersion stores value only while key is still at version. A snapshot
// loaded before a concurrent Invalidate is discarded rather than cached.
func (c *SnapshotCache) SetIfVersion(ctx context.Context, key string, version int64, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encoding snapshot %s: %w", key, err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.versionKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(key), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, c.versionKey(key))
	if errors.Is(err, redis.TxFailedErr) {
		stored, err = false, nil
	}
	if err != nil {
		return false, fmt.Errorf("writing snapshot %s: %w", key, err)
	}

	logger.WithFields(map[string]interface{}{
		"key":     c.key(key),
		"size":    len(data),
		"version": version,
		"stored":  stored,
	}).Debug("caching snapshot")
	return stored, nil
}

// Invalidate drops the snapshot and bumps its version so in-flight loaders
// cannot write back what they read before the change.
func (c *SnapshotCache) Invalidate(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey(key))
		pipe.Del(ctx, c.key(key))
		return nil
	})
	return err
}

func (c *SnapshotCache) key(key string) string {
	return c.prefix + key
}

func (c *SnapshotCache) versionKey(key string) string {
	return c.prefix + key + ":v"
}
