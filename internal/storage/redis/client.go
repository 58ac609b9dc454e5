package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
	"github.com/redis/go-redis/v9"
)

// CredentialTTL matches the longest session the backend issues (30 days).
const CredentialTTL = 30 * 24 * time.Hour

const keyPrefix = "taskflow:credential:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) Load(ctx context.Context, profile string) (string, error) {
	val, err := c.cli.Get(ctx, keyPrefix+profile).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis load credential: %w", err)
	}
	return val, nil
}

// Save stores the credential under taskflow:credential:{profile} and refreshes its TTL.
func (c *Client) Save(ctx context.Context, profile, credential string) error {
	if err := c.cli.Set(ctx, keyPrefix+profile, credential, CredentialTTL).Err(); err != nil {
		return fmt.Errorf("redis save credential: %w", err)
	}
	return nil
}

func (c *Client) Clear(ctx context.Context, profile string) error {
	if err := c.cli.Del(ctx, keyPrefix+profile).Err(); err != nil {
		return fmt.Errorf("redis clear credential: %w", err)
	}
	return nil
}
