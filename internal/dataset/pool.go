package dataset

import (
	"context"
	"sync"
)

// Pool bounds the number of blocking dataset operations (disk I/O, brute
// force scans) that run concurrently, the same channel-semaphore shape used
// throughout this codebase for bounding fan-out.
type Pool struct {
	sem chan struct{}
}

// NewPool returns a Pool that admits at most maxWorkers concurrent Submit
// calls. maxWorkers <= 0 is treated as 1.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Pool{sem: make(chan struct{}, maxWorkers)}
}

// Submit runs fn once a worker slot is free, blocking until then or until
// ctx is canceled. The result of fn (or ctx.Err()) is returned.
func (p *Pool) Submit(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

// SubmitAll runs fn once per item with bounded parallelism, collecting the
// first error encountered. All submitted goroutines still run to
// completion; SubmitAll does not cancel sibling work on first error.
func (p *Pool) SubmitAll(ctx context.Context, n int, fn func(i int) error) error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Submit(ctx, func() error { return fn(i) })
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
