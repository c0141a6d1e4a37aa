package searchcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

func testRequest(offset int) query.Request {
	return query.Request{
		Query: &query.Search{
			TargetType: "address",
			Must:       []query.TextClause{query.NewTextClause("(address.CountryID:12)")},
		},
		PageSize:      100,
		Offset:        offset,
		TargetDocType: "address",
	}
}

func testResponse() query.Response {
	return query.Response{
		Total: 2,
		Hits: []query.Hit{
			{ID: "a1", Score: 1.5, Source: []byte(`{"ConAddressID":1}`)},
			{ID: "a2", Source: []byte(`{"ConAddressID":2}`)},
		},
		Aggregations: aggregation.Result{
			"address.CountryID": {{Value: "12", Count: 2}},
		},
	}
}

func TestSearch_CacheMissThenHit(t *testing.T) {
	inner := &mockSearcher{resp: testResponse()}
	c, ms := newTestClient(t, inner)
	cacheTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_search_cache"}, []string{"result"})
	c.cacheTotal = cacheTotal
	ctx := context.Background()

	first, err := c.Search(ctx, testRequest(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Search(ctx, testRequest(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached response differs:\n%+v\n%+v", first, second)
	}
	if ttl := ms.ttls[c.Key(testRequest(0))]; ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
	if v := testutil.ToFloat64(cacheTotal.WithLabelValues("hit")); v != 1 {
		t.Errorf("hits = %v", v)
	}
	if v := testutil.ToFloat64(cacheTotal.WithLabelValues("miss")); v != 1 {
		t.Errorf("misses = %v", v)
	}
}

func TestSearch_DistinctRequests(t *testing.T) {
	inner := &mockSearcher{resp: testResponse()}
	c, _ := newTestClient(t, inner)
	ctx := context.Background()

	for _, off := range []int{0, 100, 0, 100} {
		if _, err := c.Search(ctx, testRequest(off)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", inner.calls)
	}
}

func TestSearch_ErrorNotCached(t *testing.T) {
	inner := &mockSearcher{err: domain.NewBackendStatus(503, "unavailable")}
	c, ms := newTestClient(t, inner)

	_, err := c.Search(context.Background(), testRequest(0))
	if !errors.Is(err, domain.ErrSearchBackend) {
		t.Fatalf("expected ErrSearchBackend, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Errorf("error response was cached")
	}
}

func TestSearch_StoreFailuresIgnored(t *testing.T) {
	inner := &mockSearcher{resp: testResponse()}
	c, ms := newTestClient(t, inner)
	ms.getErr = errors.New("connection lost")
	ms.setErr = errors.New("connection lost")

	resp, err := c.Search(context.Background(), testRequest(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestSearch_CorruptEntry(t *testing.T) {
	inner := &mockSearcher{resp: testResponse()}
	c, ms := newTestClient(t, inner)
	ms.data[c.Key(testRequest(0))] = []byte("{oops")

	if _, err := c.Search(context.Background(), testRequest(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected fallthrough to backend, calls = %d", inner.calls)
	}
}

func TestKey_Prefix(t *testing.T) {
	c, _ := newTestClient(t, &mockSearcher{})
	k := c.Key(testRequest(0))
	if !strings.HasPrefix(k, "picmap:search_cache:") || len(k) != len("picmap:search_cache:")+64 {
		t.Errorf("key = %q", k)
	}
}

func TestFlush_DropsOnlyCachedResponses(t *testing.T) {
	inner := &mockSearcher{resp: testResponse()}
	c, ms := newTestClient(t, inner)
	ms.data["picmap:basedata"] = []byte("[]")

	for i := 0; i < 2; i++ {
		if _, err := c.Search(context.Background(), testRequest(i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	n, err := c.Flush(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 flushed, got %d", n)
	}
	if _, ok := ms.data["picmap:basedata"]; !ok {
		t.Error("flush removed a key outside the cache prefix")
	}

	if _, err := c.Search(context.Background(), testRequest(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected backend call after flush, calls = %d", inner.calls)
	}
}
