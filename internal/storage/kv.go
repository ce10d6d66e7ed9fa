// Package storage persists the ledger dataset in a key-value store and
// handles its export, import, backup and reset.
package storage

import (
	"context"
	"errors"
)

// ErrMiss is returned by KV.Load when the key holds no value.
var ErrMiss = errors.New("storage: key not found")

// KV is a blocking byte store keyed by string.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
