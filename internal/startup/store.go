package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/config"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage/file"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage/memory"
)

// OpenCredentialStore returns the credential store named by cfg.CredentialStore.
func OpenCredentialStore(ctx context.Context, cfg *config.Config) (storage.CredentialStore, error) {
	switch cfg.CredentialStore {
	case config.StoreMemory:
		return memory.New(), nil
	case "", config.StoreFile:
		c, err := file.New(cfg.CredentialDir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.StoreRedis:
		c, err := ConnectRedisWithRetry(ctx, cfg.Redis.URL, 20*time.Second, "")
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore)
	}
}
