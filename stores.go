package linkforty

import (
	"context"

	"github.com/LinkForty/linkforty-go/internal/storage"
)

// Store constructors for the embedding application. Any of these can be
// passed through Options.Store; the zero Options selects a file store
// under the user cache directory.

// NewMemoryStore returns an in-process Store. State does not survive a
// restart.
func NewMemoryStore() Store {
	return storage.NewMemory()
}

// NewFileStore returns a Store persisting to a single JSON document at
// path. The parent directory is created if needed.
func NewFileStore(path string) (Store, error) {
	return storage.NewFile(path)
}

// NewRedisStore returns a Store backed by Redis, for server-side
// embeddings that keep SDK state in shared infrastructure. All keys are
// stored under prefix (may be empty). Connectivity is verified before
// returning.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (Store, error) {
	return storage.NewRedis(ctx, redisURL, prefix)
}

// NewPostgresStore returns a Store backed by a single key/value table,
// bootstrapped on first use. Connectivity is verified before returning.
func NewPostgresStore(ctx context.Context, databaseURL string) (Store, error) {
	return storage.NewPostgres(ctx, databaseURL)
}
