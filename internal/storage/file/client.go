package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

// Client keeps one credential per profile as a 0600 file under dir.
type Client struct {
	dir string
}

func New(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credential dir: %w", err)
	}
	return &Client{dir: dir}, nil
}

func (c *Client) Close() error { return nil }

func (c *Client) path(profile string) string {
	return filepath.Join(c.dir, filepath.Base(profile)+".token")
}

func (c *Client) Load(ctx context.Context, profile string) (string, error) {
	data, err := os.ReadFile(c.path(profile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", storage.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", storage.ErrNoCredential
	}
	return tok, nil
}

func (c *Client) Save(ctx context.Context, profile, credential string) error {
	tmp := c.path(profile) + ".tmp"
	if err := os.WriteFile(tmp, []byte(credential), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp, c.path(profile)); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (c *Client) Clear(ctx context.Context, profile string) error {
	err := os.Remove(c.path(profile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
