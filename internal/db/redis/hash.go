package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/picmap/internal/db"
)

// HGetAllMulti fetches several hashes in one pipelined round-trip. A
// missing key yields an empty map at its position.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.client.B().Hgetall().Key(key).Build()
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Key: keys[i], Err: err}
		}
		out[i] = m
	}
	return out, nil
}

// ReplaceHashes swaps the content of every given hash inside one
// MULTI/EXEC block, so readers never observe a half-written vocabulary.
func (s *Store) ReplaceHashes(ctx context.Context, hashes []db.Hash) error {
	if len(hashes) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, 2*len(hashes)+2)
	cmds = append(cmds, s.client.B().Multi().Build())
	for _, h := range hashes {
		cmds = append(cmds, s.client.B().Del().Key(h.Key).Build())
		if len(h.Fields) == 0 {
			continue
		}
		hset := s.client.B().Hset().Key(h.Key).FieldValue()
		for field, value := range h.Fields {
			hset = hset.FieldValue(field, value)
		}
		cmds = append(cmds, hset.Build())
	}
	cmds = append(cmds, s.client.B().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpReplace, Err: err}
		}
	}
	exec := results[len(results)-1]
	if err := exec.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return &db.Error{Op: db.OpReplace, Err: db.ErrTxAborted}
		}
		return &db.Error{Op: db.OpReplace, Err: fmt.Errorf("exec: %w", err)}
	}
	return nil
}
