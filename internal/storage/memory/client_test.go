package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

func TestClient_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	if _, err := c.Load(ctx, "default"); !errors.Is(err, storage.ErrNoCredential) {
		t.Fatalf("Load() on empty store err = %v, want ErrNoCredential", err)
	}
	if err := c.Save(ctx, "default", "tok"); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	got, err := c.Load(ctx, "default")
	if err != nil || got != "tok" {
		t.Fatalf("Load() = %q, %v", got, err)
	}
	if _, err := c.Load(ctx, "other"); !errors.Is(err, storage.ErrNoCredential) {
		t.Errorf("Load(other) err = %v, want ErrNoCredential", err)
	}
	if err := c.Clear(ctx, "default"); err != nil {
		t.Fatalf("Clear() err = %v", err)
	}
	if _, err := c.Load(ctx, "default"); !errors.Is(err, storage.ErrNoCredential) {
		t.Errorf("Load() after Clear err = %v, want ErrNoCredential", err)
	}
}
