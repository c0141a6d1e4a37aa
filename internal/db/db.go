// Package db declares the key-value persistence kept next to the search
// backend: facet vocabularies as hashes, base data and cached search
// responses as blobs.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	HashStore
	BlobStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Hash is the full content of one hash key. An empty Fields map leaves
// the key absent after ReplaceHashes.
type Hash struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and atomically replaces whole hashes.
type HashStore interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ReplaceHashes(ctx context.Context, hashes []Hash) error
}

// BlobStore stores opaque values, optionally with a TTL.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
