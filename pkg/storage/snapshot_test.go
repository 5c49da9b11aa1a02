package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	HeartRate int    `json:"heart_rate"`
	Source    string `json:"source"`
}

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *SnapshotCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewSnapshotCache(client, "test:", ttl)
}

func TestSnapshotRoundTrip(t *testing.T) {
	mr, cache := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	var got reading
	ok, err := cache.Get(ctx, "vitals:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := cache.SetIfVersion(ctx, "vitals:1", 0, reading{HeartRate: 72, Source: "fitbit"})
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("test:vitals:1"))
	assert.Equal(t, time.Minute, mr.TTL("test:vitals:1"))

	ok, err = cache.Get(ctx, "vitals:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, reading{HeartRate: 72, Source: "fitbit"}, got)
}

func TestSnapshotInvalidateAndExpiry(t *testing.T) {
	mr, cache := setupTestRedis(t, 10*time.Second)
	ctx := context.Background()

	_, err := cache.SetIfVersion(ctx, "a", 0, reading{HeartRate: 1})
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "a"))
	assert.False(t, mr.Exists("test:a"))
	v, err := cache.Version(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = cache.SetIfVersion(ctx, "b", 0, reading{HeartRate: 2})
	require.NoError(t, err)
	mr.FastForward(11 * time.Second)
	var got reading
	ok, err := cache.Get(ctx, "b", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotZeroTTLPersists(t *testing.T) {
	mr, cache := setupTestRedis(t, 0)
	_, err := cache.SetIfVersion(context.Background(), "k", 0, reading{})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), mr.TTL("test:k"))
}

func TestSnapshotCorruptEntryIsMiss(t *testing.T) {
	mr, cache := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("test:bad", "{not json"))

	var got reading
	ok, err := cache.Get(context.Background(), "bad", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("test:bad"))
}

func TestSnapshotBackendErrorSurfaces(t *testing.T) {
	mr, cache := setupTestRedis(t, 0)
	mr.Close()

	var got reading
	_, err := cache.Get(context.Background(), "k", &got)
	assert.Error(t, err)
}

func TestSnapshotStaleLoadIsNotCached(t *testing.T) {
	mr, cache := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	// A reader takes the version, then a writer invalidates before the
	// reader gets to store what it loaded.
	before, err := cache.Version(ctx, "vitals:7")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "vitals:7"))

	stored, err := cache.SetIfVersion(ctx, "vitals:7", before, reading{HeartRate: 60})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("test:vitals:7"))

	after, err := cache.Version(ctx, "vitals:7")
	require.NoError(t, err)
	stored, err = cache.SetIfVersion(ctx, "vitals:7", after, reading{HeartRate: 65})
	require.NoError(t, err)
	assert.True(t, stored)

	var got reading
	ok, err := cache.Get(ctx, "vitals:7", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 65, got.HeartRate)
}
