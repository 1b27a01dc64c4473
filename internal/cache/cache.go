package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/subvoc/subvoc/pkg/models"
)

// Cache provides read-path caching for video and account records using
// Redis. Writers must invalidate after every status or ledger update.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetVideo caches a video record
func (c *Cache) SetVideo(ctx context.Context, video *models.Video) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	return c.client.Set(ctx, videoKey(video.ID), data, c.ttl).Err()
}

// GetVideo retrieves a video record from cache; (nil, nil) on miss.
func (c *Cache) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	data, err := c.client.Get(ctx, videoKey(videoID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get video from cache: %w", err)
	}

	var video models.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}

	return &video, nil
}

// InvalidateVideo removes a video record from cache
func (c *Cache) InvalidateVideo(ctx context.Context, videoID string) error {
	return c.client.Del(ctx, videoKey(videoID)).Err()
}

// SetUsage caches an account's usage summary
func (c *Cache) SetUsage(ctx context.Context, accountID string, summary *models.UsageSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal usage summary: %w", err)
	}

	return c.client.Set(ctx, usageKey(accountID), data, c.ttl).Err()
}

// GetUsage retrieves an account's usage summary; (nil, nil) on miss.
func (c *Cache) GetUsage(ctx context.Context, accountID string) (*models.UsageSummary, error) {
	data, err := c.client.Get(ctx, usageKey(accountID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get usage summary from cache: %w", err)
	}

	var summary models.UsageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage summary: %w", err)
	}

	return &summary, nil
}

// InvalidateUsage removes an account's usage summary from cache.
// Called after every RecordUsage so stale ledgers are never served.
func (c *Cache) InvalidateUsage(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, usageKey(accountID)).Err()
}

// Health checks if Redis is reachable
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func videoKey(id string) string {
	return fmt.Sprintf("video:%s", id)
}

func usageKey(id string) string {
	return fmt.Sprintf("usage:%s", id)
}
