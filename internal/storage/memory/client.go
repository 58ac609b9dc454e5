package memory

import (
	"context"
	"sync"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

const credentialTTL = 30 * 24 * time.Hour

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu          sync.RWMutex
	credentials map[string]item
}

func New() *Client {
	return &Client{credentials: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) Load(ctx context.Context, profile string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.credentials[profile]
	if !ok || time.Now().After(v.exp) {
		return "", storage.ErrNoCredential
	}
	return v.val, nil
}

func (c *Client) Save(ctx context.Context, profile, credential string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials[profile] = item{val: credential, exp: time.Now().Add(credentialTTL)}
	return nil
}

func (c *Client) Clear(ctx context.Context, profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, profile)
	return nil
}
