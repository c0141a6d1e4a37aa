package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

type searchResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
			Sort   query.SortKey   `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key         any    `json:"key"`
			KeyAsString string `json:"key_as_string"`
			DocCount    int64  `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func decodeResponse(data []byte) (query.Response, error) {
	var raw searchResponse
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return query.Response{}, fmt.Errorf("decode search response: %w", err)
	}

	total, err := decodeTotal(raw.Hits.Total)
	if err != nil {
		return query.Response{}, err
	}

	out := query.Response{Total: total, Hits: make([]query.Hit, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		hit := query.Hit{ID: h.ID, Source: []byte(h.Source), Sort: h.Sort}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}

	if len(raw.Aggregations) > 0 {
		out.Aggregations = make(aggregation.Result, len(raw.Aggregations))
		for name, agg := range raw.Aggregations {
			buckets := make([]aggregation.Bucket, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				key := b.KeyAsString
				if key == "" {
					key = bucketKey(b.Key)
				}
				buckets = append(buckets, aggregation.Bucket{Value: key, Count: b.DocCount})
			}
			out.Aggregations[name] = buckets
		}
	}
	return out, nil
}

// decodeTotal accepts both {"value": n} and a bare number.
func decodeTotal(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '{' {
		var t struct {
			Value int64 `json:"value"`
		}
		if err := sonic.Unmarshal(raw, &t); err != nil {
			return 0, fmt.Errorf("decode hits total: %w", err)
		}
		return t.Value, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode hits total: %w", err)
	}
	return n, nil
}

func bucketKey(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func decodeError(data []byte) string {
	var e errorResponse
	if err := sonic.Unmarshal(data, &e); err != nil || e.Error.Type == "" {
		return string(bytes.TrimSpace(data))
	}
	if e.Error.Reason == "" {
		return e.Error.Type
	}
	return e.Error.Type + ": " + e.Error.Reason
}
