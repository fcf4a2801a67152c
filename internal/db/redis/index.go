package redis

import (
	"context"
	"strconv"

	"github.com/williamjung/voiceagent/internal/db"
)

// HNSW defaults applied when IndexSpec leaves them at zero.
const (
	defaultM           = 16
	defaultEFConstruct = 200
)

// EnsureIndex creates the FT index over prefixed hashes. An existing index is not an error.
func (s *Store) EnsureIndex(ctx context.Context, spec db.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Prefix == "" {
		spec.Prefix = s.prefix
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(buildCreateArgs(spec)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

func buildCreateArgs(spec db.IndexSpec) []string {
	m := spec.M
	if m <= 0 {
		m = defaultM
	}
	ef := spec.EFConstruct
	if ef <= 0 {
		ef = defaultEFConstruct
	}

	args := []string{spec.Name, "ON", "HASH"}
	if spec.Prefix != "" {
		args = append(args, "PREFIX", "1", spec.Prefix)
	}

	args = append(args, "SCHEMA",
		db.FieldTitle, "TEXT",
		db.FieldContent, "TEXT",
		db.FieldURL, "TAG",
		db.FieldType, "TAG",
		db.FieldTags, "TAG", "SEPARATOR", ",",
	)

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(spec.Dimensions),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(m),
		"EF_CONSTRUCTION", strconv.Itoa(ef),
	}
	args = append(args, vectorField, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}
