package searchcache

import (
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

type hitDTO struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score,omitempty"`
	Source []byte  `json:"source,omitempty"`
}

type bucketDTO struct {
	Value string `json:"v"`
	Count int64  `json:"c"`
}

type responseDTO struct {
	Total        int64                  `json:"total"`
	Hits         []hitDTO               `json:"hits,omitempty"`
	Aggregations map[string][]bucketDTO `json:"aggs,omitempty"`
}

func toDTO(r query.Response) responseDTO {
	out := responseDTO{Total: r.Total}
	if len(r.Hits) > 0 {
		out.Hits = make([]hitDTO, len(r.Hits))
		for i, h := range r.Hits {
			out.Hits[i] = hitDTO{ID: h.ID, Score: h.Score, Source: h.Source}
		}
	}
	if len(r.Aggregations) > 0 {
		out.Aggregations = make(map[string][]bucketDTO, len(r.Aggregations))
		for name, buckets := range r.Aggregations {
			bs := make([]bucketDTO, len(buckets))
			for i, b := range buckets {
				bs[i] = bucketDTO{Value: b.Value, Count: b.Count}
			}
			out.Aggregations[name] = bs
		}
	}
	return out
}

func fromDTO(d responseDTO) query.Response {
	out := query.Response{Total: d.Total}
	if len(d.Hits) > 0 {
		out.Hits = make([]query.Hit, len(d.Hits))
		for i, h := range d.Hits {
			out.Hits[i] = query.Hit{ID: h.ID, Score: h.Score, Source: h.Source}
		}
	}
	if d.Aggregations != nil {
		out.Aggregations = make(aggregation.Result, len(d.Aggregations))
		for name, buckets := range d.Aggregations {
			bs := make([]aggregation.Bucket, len(buckets))
			for i, b := range buckets {
				bs[i] = aggregation.Bucket{Value: b.Value, Count: b.Count}
			}
			out.Aggregations[name] = bs
		}
	}
	return out
}
