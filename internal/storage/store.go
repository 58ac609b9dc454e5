package storage

import (
	"context"
	"errors"
)

// ErrNoCredential is returned by Load when nothing has been saved for the profile.
var ErrNoCredential = errors.New("storage: no credential saved")

// CredentialStore keeps the session bearer credential between runs.
// Implementations: redis.Client (shared across machines), memory.Client (tests, single run).
type CredentialStore interface {
	Load(ctx context.Context, profile string) (string, error)
	Save(ctx context.Context, profile, credential string) error
	Clear(ctx context.Context, profile string) error
	Close() error
}
