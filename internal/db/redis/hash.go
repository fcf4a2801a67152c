package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/williamjung/voiceagent/internal/db"
)

// vectorField is the hash field holding the FLOAT32 blob.
const vectorField = "vector"

// Upsert stores each record as a hash in a single DoMulti round-trip.
// The index argument is unused: FT indexes pick hashes up by key prefix.
func (s *Store) Upsert(ctx context.Context, _ string, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(records))
	for i, rec := range records {
		cmd := s.b().Hset().Key(s.key(rec.Key)).FieldValue()
		for k, v := range rec.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmd = cmd.FieldValue(vectorField, vectorToBytes(rec.Vector))
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", records[i].Key, err)}
		}
	}
	return nil
}
