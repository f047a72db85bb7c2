package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Collection snapshot cache keys
const (
	collectionKeyPrefix = "garage:collection:"
	collectionTTL       = 2 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection. On failure the package stays
// disabled and every helper becomes a no-op.
func Init(addr, password string, db int) error {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// GetClient returns the Redis client, nil when Redis is unavailable
func GetClient() *redis.Client {
	return client
}

// Close releases the connection
func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func collectionVersionKey(table string) string {
	return collectionKeyPrefix + table + ":v"
}

func collectionKey(table string, version int64) string {
	return fmt.Sprintf("%s%s:%d", collectionKeyPrefix, table, version)
}

// GetCachedCollection returns the cached JSON snapshot of a table along
// with the table's current version. On a miss the version is still
// returned so the caller can store what it fetches under it.
func GetCachedCollection(ctx context.Context, table string) ([]byte, int64, bool) {
	if client == nil {
		return nil, 0, false
	}
	version, err := client.Get(ctx, collectionVersionKey(table)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false
	}
	data, err := client.Get(ctx, collectionKey(table, version)).Bytes()
	if err != nil {
		return nil, version, false
	}
	return data, version, true
}

// CacheCollection stores a table snapshot under the version read before
// it was fetched. Nothing is stored once the table has moved past that
// version, and entries of older versions are never read again.
func CacheCollection(ctx context.Context, table string, version int64, data []byte) {
	if client == nil {
		return
	}
	current, err := client.Get(ctx, collectionVersionKey(table)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return
	}
	if current != version {
		return
	}
	client.Set(ctx, collectionKey(table, version), data, collectionTTL)
}

// InvalidateCollection bumps the table version after a change so any
// snapshot fetched before it is no longer served.
func InvalidateCollection(ctx context.Context, table string) {
	if client == nil {
		return
	}
	version, err := client.Incr(ctx, collectionVersionKey(table)).Result()
	if err != nil {
		return
	}
	client.Del(ctx, collectionKey(table, version-1))
}
