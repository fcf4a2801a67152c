package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/williamjung/voiceagent/internal/db"
)

// docIDField keeps the caller's record key; Qdrant point IDs must be UUIDs.
const docIDField = "doc_id"

// SearchKNN runs Points.Search against a cosine collection with score_threshold.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := db.ValidateKNN(q); err != nil {
		return nil, err
	}

	req := &qc.SearchPoints{
		CollectionName: s.collectionName(q.IndexName),
		Vector:         q.Vector,
		Limit:          uint64(q.K),
		WithPayload:    payloadSelector(q.ReturnFields),
	}
	if q.MinScore > 0 {
		threshold := float32(q.MinScore)
		req.ScoreThreshold = &threshold
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		fields := make(map[string]string, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			fields[k] = v.GetStringValue()
		}
		key := fields[docIDField]
		delete(fields, docIDField)
		if key == "" {
			key = pointIDString(p.GetId())
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  db.ClampSimilarity(float64(p.GetScore())),
			Fields: fields,
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Upsert writes points and waits for the operation to be applied.
func (s *Store) Upsert(ctx context.Context, index string, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, 0, len(records))
	for _, rec := range records {
		payload := make(map[string]*qc.Value, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			payload[k] = &qc.Value{Kind: &qc.Value_StringValue{StringValue: v}}
		}
		payload[docIDField] = &qc.Value{Kind: &qc.Value_StringValue{StringValue: rec.Key}}

		points = append(points, &qc.PointStruct{
			Id: &qc.PointId{
				PointIdOptions: &qc.PointId_Uuid{Uuid: pointUUID(rec.Key)},
			},
			Vectors: &qc.Vectors{
				VectorsOptions: &qc.Vectors_Vector{
					Vector: &qc.Vector{Data: rec.Vector},
				},
			},
			Payload: payload,
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: s.collectionName(index),
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: fmt.Errorf("%d points: %w", len(points), err)}
	}
	return nil
}

func payloadSelector(fields []string) *qc.WithPayloadSelector {
	if len(fields) == 0 {
		return &qc.WithPayloadSelector{
			SelectorOptions: &qc.WithPayloadSelector_Enable{Enable: true},
		}
	}
	include := append([]string{docIDField}, fields...)
	return &qc.WithPayloadSelector{
		SelectorOptions: &qc.WithPayloadSelector_Include{
			Include: &qc.PayloadIncludeSelector{Fields: include},
		},
	}
}

// pointUUID keeps valid UUID keys and maps anything else to a stable SHA1 UUID.
func pointUUID(key string) string {
	if id, err := uuid.Parse(key); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func pointIDString(id *qc.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}
