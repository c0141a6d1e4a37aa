package picmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

// --- searchBackend mock ---

type mockBackend struct {
	mu       sync.Mutex
	requests []query.Request
	err      error
}

func (m *mockBackend) Search(_ context.Context, req query.Request) (query.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return query.Response{}, m.err
	}
	if req.TargetDocType == "constituent" {
		return query.Response{
			Total:        1,
			Hits:         []query.Hit{{ID: "1", Source: []byte(`{"ConstituentID":1,"DisplayName":"Abbott, Berenice"}`)}},
			Aggregations: aggregation.Result{"gender.TermID": {{Value: "1", Count: 1}}},
		}, nil
	}
	var hits []query.Hit
	for i := req.Offset; i < req.Offset+req.PageSize && i < 4; i++ {
		src := fmt.Sprintf(`{"ConAddressID":%d,"ConstituentID":1,"Location":{"lat":%d,"lon":%d}}`, i, 40+i, 2+i)
		hits = append(hits, query.Hit{ID: fmt.Sprint(i), Source: []byte(src)})
	}
	return query.Response{
		Total:        4,
		Hits:         hits,
		Aggregations: aggregation.Result{"address.CountryID": {{Value: "5", Count: 4}}},
	}, nil
}

func (m *mockBackend) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
