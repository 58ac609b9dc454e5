package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

func TestClient_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "creds")
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	if _, err := c.Load(ctx, "default"); !errors.Is(err, storage.ErrNoCredential) {
		t.Fatalf("Load() err = %v, want ErrNoCredential", err)
	}
	if err := c.Save(ctx, "default", "tok\n"); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "default.token"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	if got, err := c.Load(ctx, "default"); err != nil || got != "tok" {
		t.Errorf("Load() = %q, %v", got, err)
	}
	if err := c.Clear(ctx, "default"); err != nil {
		t.Fatalf("Clear() err = %v", err)
	}
	if err := c.Clear(ctx, "default"); err != nil {
		t.Errorf("second Clear() err = %v", err)
	}
}
