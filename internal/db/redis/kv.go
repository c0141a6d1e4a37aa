package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/picmap/internal/db"
)

// scanBatch is the COUNT hint of every SCAN call in DeletePrefix.
const scanBatch = 500

var errEmptyPrefix = errors.New("refusing to delete with an empty prefix")

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// Set stores a value without expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// DeletePrefix walks the keyspace with SCAN and unlinks every key starting
// with prefix. It returns the number of keys removed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, &db.Error{Op: db.OpScan, Err: errEmptyPrefix}
	}

	var (
		cursor  uint64
		removed int
	)
	for {
		scan := s.client.B().Scan().Cursor(cursor).Match(prefix + "*").Count(scanBatch).Build()
		entry, err := s.client.Do(ctx, scan).AsScanEntry()
		if err != nil {
			return removed, &db.Error{Op: db.OpScan, Key: prefix, Err: err}
		}
		if len(entry.Elements) > 0 {
			unlink := s.client.B().Unlink().Key(entry.Elements...).Build()
			n, err := s.client.Do(ctx, unlink).AsInt64()
			if err != nil {
				return removed, &db.Error{Op: db.OpUnlink, Key: prefix, Err: err}
			}
			removed += int(n)
		}
		if entry.Cursor == 0 {
			return removed, nil
		}
		cursor = entry.Cursor
	}
}
