// Package stats fetches player statistics from the platform, used to put
// the player's avatar on tasks they authored.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/task-lobby/internal/models"
)

// ErrUpstream wraps failures of the platform stats endpoint
var ErrUpstream = errors.New("stats upstream error")

// Cache stores encoded stats by user id
type Cache interface {
	Get(ctx context.Context, userID string) ([]byte, bool, error)
	Set(ctx context.Context, userID string, data []byte) error
}

// Client reads GET {base}/api/v1/user/{id}/stats, caching good responses
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// NewClient creates a stats client. cache may be nil.
func NewClient(baseURL string, timeout time.Duration, cache Cache) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Get returns the stats of userID. Cache errors are logged and bypassed;
// upstream errors are returned wrapped in ErrUpstream, never retried.
func (c *Client) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("stats cache read failed", "user_id", userID, "error", err)
		} else if ok {
			var stats models.UserStats
			if err := json.Unmarshal(data, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	data, err := c.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	var stats models.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("%w: failed to decode stats: %v", ErrUpstream, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, userID, data); err != nil {
			slog.Warn("stats cache write failed", "user_id", userID, "error", err)
		}
	}

	return &stats, nil
}

func (c *Client) fetch(ctx context.Context, userID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v1/user/%s/stats", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for user %s", ErrUpstream, resp.StatusCode, userID)
	}
	return body, nil
}

// RedisCache keeps stats under "stats:<user id>" for ttl
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, "stats:"+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, data []byte) error {
	return c.client.Set(ctx, "stats:"+userID, data, c.ttl).Err()
}
