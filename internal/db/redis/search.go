package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/williamjung/voiceagent/internal/db"
)

const scoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Results are sorted by distance and capped at K; FT.SEARCH otherwise stops at 10.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := db.ValidateKNN(q); err != nil {
		return nil, err
	}

	k := strconv.Itoa(q.K)
	args := []string{q.IndexName, fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, vectorField, scoreField)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1), scoreField)
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %s", db.ErrIndexNotFound, q.IndexName)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseKNNResult(raw, s.prefix)
	if err != nil {
		return nil, err
	}
	return filterByScore(res, q.MinScore), nil
}

func parseKNNResult(raw []rueidis.RedisMessage, prefix string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, min(int(total), (len(raw)-1)/2))
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    stripPrefix(key, prefix),
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := entry.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = db.SimilarityFromDistance(d)
			}
			delete(entry.Fields, scoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func filterByScore(res *db.SearchResult, minScore float64) *db.SearchResult {
	if minScore <= 0 {
		return res
	}
	kept := res.Entries[:0]
	for _, e := range res.Entries {
		if e.Score >= minScore {
			kept = append(kept, e)
		}
	}
	res.Entries = kept
	res.Total = len(kept)
	return res
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// stripPrefix turns a hash key back into the record ID.
func stripPrefix(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
