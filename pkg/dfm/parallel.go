package dfm

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest slice of work handed to one goroutine.
const minChunk = 256

// parallelFor splits [0, n) into contiguous chunks and calls fn(lo, hi) for
// each on a bounded errgroup. Chunks must write disjoint output ranges.
// A panic in fn is returned as an error instead of crashing the process.
func parallelFor(ctx context.Context, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	workers := runtime.GOMAXPROCS(0)
	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		if err := gctx.Err(); err != nil {
			break
		}
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("dfm: panic in worker [%d, %d): %v", lo, hi, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
