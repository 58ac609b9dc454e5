package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

func testClient(t *testing.T) *Client {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_SaveLoadClear(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	profile := "test-" + time.Now().Format("150405.000000")

	if err := c.Save(ctx, profile, "tok"); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	got, err := c.Load(ctx, profile)
	if err != nil || got != "tok" {
		t.Fatalf("Load() = %q, %v", got, err)
	}
	if err := c.Clear(ctx, profile); err != nil {
		t.Fatalf("Clear() err = %v", err)
	}
	if _, err := c.Load(ctx, profile); !errors.Is(err, storage.ErrNoCredential) {
		t.Errorf("Load() after Clear err = %v, want ErrNoCredential", err)
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(context.Background(), "not a url"); err == nil {
		t.Error("New() with bad url returned nil error")
	}
}
