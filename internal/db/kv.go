// Package db defines the key-value storage contract used by caching layers.
package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyNotFound signals a missing key.
var ErrKeyNotFound = errors.New("key not found")

// KV is a minimal byte-oriented key-value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Op identifies a store operation for error reporting.
type Op string

const (
	// OpGet is a read operation.
	OpGet Op = "get"
	// OpSet is a write operation.
	OpSet Op = "set"
)

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("kv %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
