package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"

	"routemap/internal/domain"
)

// RedisCache stores resolved layer bundles as gzipped JSON so upstream
// geodata services are not queried again across sessions and restarts.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisCache(addr, password string, db int, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "routemap:",
		logger: logger.With("component", "redis_cache"),
	}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// GetBundle returns nil without error on a miss.
func (c *RedisCache) GetBundle(ctx context.Context, key string) (*domain.LayerBundle, error) {
	start := time.Now()
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	raw, err := gzipDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	var bundle domain.LayerBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	c.logger.Debug("cache hit", "key", key, "size_bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	return &bundle, nil
}

// SetBundle stores a bundle; a zero ttl keeps it forever.
func (c *RedisCache) SetBundle(ctx context.Context, key string, bundle *domain.LayerBundle, ttl time.Duration) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	data, err := gzipCompress(raw)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	c.logger.Debug("cache set", "key", key, "original_size", len(raw), "compressed_size", len(data), "ttl", ttl)
	return nil
}

// DeletePattern removes every key matching pattern and returns how many
// were deleted.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	iter := c.client.Scan(ctx, 0, c.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, iter.Err()
}

func (c *RedisCache) PoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
