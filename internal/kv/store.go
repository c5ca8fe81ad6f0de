// Package kv is the key-value access layer the CMS persists into.
//
// A Store holds opaque string values under string keys. Get returns "" with a
// nil error when the key is absent; callers treat an absent key and an empty
// value the same way. Errors are reserved for transport or backend failures.
// Put has no retries and no batching: a failed write is reported to the caller
// immediately.
package kv

import (
	"context"
	"errors"
	"time"
)

var ErrUnconfigured = errors.New("kv: store is not configured")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Put writes value under key. A ttl of zero means no expiry.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}
