// Package storage provides the durable key/value capability the SDK
// persists attribution state and the offline event queue through.
//
// Consumers treat read and decode failures as absence rather than
// propagating them, so implementations only need best-effort durability.
package storage

import "context"

// Store is the persistence capability injected into the SDK.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
