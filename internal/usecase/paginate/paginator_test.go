package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/kailas-cloud/picmap/internal/domain/aggregation"
	"github.com/kailas-cloud/picmap/internal/domain/query"
)

// --- Mocks ---

// fakeBackend serves a fixed number of integer records.
type fakeBackend struct {
	total    int
	aggs     aggregation.Result
	failAt   int
	requests []Request
}

func (f *fakeBackend) fetch(_ context.Context, req Request) (Page[int], error) {
	f.requests = append(f.requests, req)
	if f.failAt > 0 && len(f.requests) == f.failAt {
		return Page[int]{}, errors.New("backend down")
	}
	end := req.Offset + req.PageSize
	if end > f.total {
		end = f.total
	}
	var recs []int
	for i := req.Offset; i < end; i++ {
		recs = append(recs, i)
	}
	return Page[int]{Total: int64(f.total), Records: recs, Aggregations: f.aggs}, nil
}

func TestDrain_ExampleScenario(t *testing.T) {
	b := &fakeBackend{total: 230}
	p := New[int](100, nil)

	if err := Drain(context.Background(), p, b.fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.requests) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(b.requests))
	}
	for i, want := range []int{0, 100, 200} {
		if b.requests[i].Offset != want {
			t.Errorf("fetch %d offset = %d, want %d", i, b.requests[i].Offset, want)
		}
	}
	if p.State() != Done {
		t.Errorf("state = %s", p.State())
	}
	if p.Accumulated() != 230 || p.Total() != 230 {
		t.Errorf("accumulated = %d, total = %d", p.Accumulated(), p.Total())
	}
}

func TestDrain_Termination(t *testing.T) {
	tests := []struct {
		total, pageSize, fetches int
	}{
		{0, 100, 1},
		{1, 100, 1},
		{99, 100, 1},
		{100, 100, 1},
		{101, 100, 2},
		{1000, 100, 10},
		{7, 1, 7},
		{5, 3, 2},
	}
	for _, tc := range tests {
		b := &fakeBackend{total: tc.total}
		p := New[int](tc.pageSize, nil)
		if err := Drain(context.Background(), p, b.fetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(b.requests) != tc.fetches || p.Fetches() != tc.fetches {
			t.Errorf("total=%d size=%d: fetches = %d, want %d", tc.total, tc.pageSize, len(b.requests), tc.fetches)
		}
		if p.Accumulated() != tc.total {
			t.Errorf("total=%d size=%d: accumulated = %d", tc.total, tc.pageSize, p.Accumulated())
		}
		if p.State() != Done {
			t.Errorf("total=%d: state = %s", tc.total, p.State())
		}
	}
}

func TestReceive_StaleGenerationIgnored(t *testing.T) {
	p := New[int](10, nil)
	first := p.Begin()
	second := p.Begin()

	_, _, err := p.Receive(first.Generation, Page[int]{Total: 500, Records: []int{1, 2, 3}})
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("expected ErrStaleGeneration, got %v", err)
	}
	if p.Accumulated() != 0 || p.Total() != 0 || p.State() != Fetching {
		t.Errorf("stale page mutated state: acc=%d total=%d state=%s", p.Accumulated(), p.Total(), p.State())
	}
	if err := p.Fail(first.Generation, errors.New("late")); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("stale failure should be rejected, got %v", err)
	}
	if p.Err() != nil {
		t.Errorf("stale failure recorded: %v", p.Err())
	}

	if _, more, err := p.Receive(second.Generation, Page[int]{Total: 2, Records: []int{7, 8}}); err != nil || more {
		t.Fatalf("current page: more=%v err=%v", more, err)
	}
	if p.Accumulated() != 2 {
		t.Errorf("accumulated = %d", p.Accumulated())
	}
}

func TestReceive_AfterDone(t *testing.T) {
	p := New[int](10, nil)
	req := p.Begin()
	if _, _, err := p.Receive(req.Generation, Page[int]{Total: 1, Records: []int{1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := p.Receive(req.Generation, Page[int]{Total: 1, Records: []int{1}})
	if !errors.Is(err, ErrNotFetching) {
		t.Errorf("expected ErrNotFetching, got %v", err)
	}
	if p.Accumulated() != 1 {
		t.Errorf("duplicate page merged: %d", p.Accumulated())
	}
}

func TestReceive_AggregationsFromFirstPageOnly(t *testing.T) {
	var calls []aggregation.Result
	p := New[int](100, func(r aggregation.Result) { calls = append(calls, r) })
	b := &fakeBackend{total: 250, aggs: aggregation.Result{"Nationality": {{Value: "Dutch", Count: 3}}}}

	if err := Drain(context.Background(), p, b.fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("sink called %d times, want 1", len(calls))
	}
	if calls[0]["Nationality"][0].Value != "Dutch" {
		t.Errorf("sink got %v", calls[0])
	}
}

func TestDrain_FailureIsTerminal(t *testing.T) {
	b := &fakeBackend{total: 500, failAt: 2}
	p := New[int](100, nil)

	err := Drain(context.Background(), p, b.fetch)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(b.requests) != 2 {
		t.Errorf("expected no retry, got %d fetches", len(b.requests))
	}
	if p.State() != Done || p.Err() == nil {
		t.Errorf("state = %s, err = %v", p.State(), p.Err())
	}
	if p.Accumulated() != 100 {
		t.Errorf("accumulated = %d", p.Accumulated())
	}
}

func TestDrain_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBackend{total: 10}
	p := New[int](5, nil)

	if err := Drain(ctx, p, b.fetch); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(b.requests) != 0 {
		t.Errorf("fetched %d pages after cancel", len(b.requests))
	}
	if p.State() != Done {
		t.Errorf("state = %s", p.State())
	}
}

func TestBegin_ResetsCursor(t *testing.T) {
	p := New[int](2, nil)
	req := p.Begin()
	if _, _, err := p.Receive(req.Generation, Page[int]{Total: 10, Records: []int{1, 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Offset() != 2 {
		t.Fatalf("offset = %d", p.Offset())
	}

	next := p.Begin()
	if next.Generation <= req.Generation {
		t.Errorf("generation did not advance: %d -> %d", req.Generation, next.Generation)
	}
	if next.Offset != 0 || p.Accumulated() != 0 || p.Total() != 0 {
		t.Errorf("cursor not reset: %+v acc=%d", next, p.Accumulated())
	}
}

func TestComplete_ShortCircuit(t *testing.T) {
	p := New[int](100, nil)
	req := p.Begin()
	gen := p.Complete([]int{1, 2, 3})

	if gen == req.Generation {
		t.Error("complete must start a new generation")
	}
	if p.State() != Done || p.Total() != 3 || p.Accumulated() != 3 {
		t.Errorf("state=%s total=%d acc=%d", p.State(), p.Total(), p.Accumulated())
	}
	if _, _, err := p.Receive(req.Generation, Page[int]{Total: 9}); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("expected stale, got %v", err)
	}
}

func TestNew_InvalidPageSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New[int](0, nil)
}

// seekBackend refuses offsets past its window and pages by sort key only.
type seekBackend struct {
	total    int
	window   int
	requests []Request
}

func (f *seekBackend) fetch(_ context.Context, req Request) (Page[int], error) {
	f.requests = append(f.requests, req)
	start := 0
	if len(req.After) > 0 {
		last, err := strconv.Atoi(string(req.After[0]))
		if err != nil {
			return Page[int]{}, err
		}
		start = last + 1
	} else if req.Offset >= f.window {
		return Page[int]{}, errors.New("result window is too large")
	}
	var recs []int
	for i := start; i < start+req.PageSize && i < f.total; i++ {
		recs = append(recs, i)
	}
	page := Page[int]{Total: int64(f.total), Records: recs}
	if len(recs) > 0 {
		page.After = query.SortKey{json.RawMessage(strconv.Itoa(recs[len(recs)-1]))}
	}
	return page, nil
}

func TestDrain_SeeksPastResultWindow(t *testing.T) {
	b := &seekBackend{total: 250, window: 100}
	p := New[int](40, nil)

	if err := Drain(context.Background(), p, b.fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Accumulated() != 250 {
		t.Fatalf("accumulated = %d, want 250", p.Accumulated())
	}
	for i, r := range p.Records() {
		if r != i {
			t.Fatalf("record %d = %d", i, r)
		}
	}
	if len(b.requests[0].After) != 0 {
		t.Errorf("first request carries a cursor: %v", b.requests[0].After)
	}
	last := b.requests[len(b.requests)-1]
	if last.Offset != 240 || last.After.String() != "239" {
		t.Errorf("last request = offset %d after %s", last.Offset, last.After)
	}
}

func TestBegin_ResetsSeekCursor(t *testing.T) {
	p := New[int](2, nil)
	req := p.Begin()
	next, more, err := p.Receive(req.Generation, Page[int]{
		Total: 10, Records: []int{1, 2}, After: query.SortKey{json.RawMessage("2")},
	})
	if err != nil || !more {
		t.Fatalf("Receive() = more %v, err %v", more, err)
	}
	if next.After.String() != "2" {
		t.Fatalf("after = %s", next.After)
	}
	if again := p.Begin(); again.After != nil {
		t.Errorf("cursor not reset: %v", again.After)
	}
}
