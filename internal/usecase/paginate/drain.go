package paginate

import (
	"context"
)

// Fetcher loads one page.
type Fetcher[T any] func(ctx context.Context, req Request) (Page[T], error)

// Drain runs a new generation to completion on the calling goroutine.
func Drain[T any](ctx context.Context, p *Paginator[T], fetch Fetcher[T]) error {
	req := p.Begin()
	for {
		if err := ctx.Err(); err != nil {
			_ = p.Fail(req.Generation, err)
			return err
		}
		page, err := fetch(ctx, req)
		if err != nil {
			_ = p.Fail(req.Generation, err)
			return err
		}
		next, more, err := p.Receive(req.Generation, page)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		req = next
	}
}
