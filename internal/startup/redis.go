package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	redisstorage "github.com/moses-Dera/TaskFlow-sub000/internal/storage/redis"
)

// ConnectRedisWithRetry connects to Redis, retrying with doubling backoff (capped at 30s)
// until maxWait has passed or ctx is done.
// logPrefix is prepended to log lines (e.g. "watch: ").
func ConnectRedisWithRetry(ctx context.Context, redisURL string, maxWait time.Duration, logPrefix string) (*redisstorage.Client, error) {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := redisstorage.New(dialCtx, redisURL)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("%sredis (gave up after %v): %w", logPrefix, maxWait, err)
		}
		logger.Errorf("%sredis connect failed, retry in %v: %v", logPrefix, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
