// Package ledger keeps the client's local records: one entry per
// anonymously created paste (its revocation key and creation time) and
// the auth token with its expiry. Entries never leave the machine; a
// revocation key is only sent when the user deletes that paste.
package ledger

import (
	"context"
)

// Store is the key-value persistence the ledger runs on. Keys returns
// keys with the given prefix in insertion order. Implementations are
// safe for use from a single goroutine at a time, which is all the
// event-driven client needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
