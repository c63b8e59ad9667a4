package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the client-local key-value persistence layer. The history store
// and the explanation cache are its only consumers; both treat every failure
// as recoverable and degrade to in-memory behavior.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
