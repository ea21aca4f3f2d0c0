package parallel

import (
	"context"
	"errors"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

type item[T any] struct {
	input T
	index int
}

// Process applies f to every input using nWorkers goroutines and returns the
// outputs in input order. The first error cancels the remaining work. A non
// positive nWorkers uses one worker per CPU.
func Process[S, T any](ctx context.Context, nWorkers int, inputs []S, f func(S) (T, error)) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	itemCh := make(chan item[S])
	g.Go(func() error {
		defer close(itemCh)
		for i := range inputs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case itemCh <- item[S]{inputs[i], i}:
			}
		}
		return nil
	})
	ret := make([]T, len(inputs))
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	for i := 0; i < nWorkers; i++ {
		g.Go(func() error {
			for item := range itemCh {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
					var err error
					if ret[item.index], err = f(item.input); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return ret, g.Wait()
}

// Partition drains next, which returns io.EOF once exhausted, and hands every
// item to exactly one of the workers. Worker i runs f with owners[i], so an
// owner is never used by two goroutines. The first error from next or f
// cancels the remaining work and is returned.
func Partition[S, T any](ctx context.Context, owners []S, next func(context.Context) (T, error), f func(context.Context, S, T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	itemCh := make(chan T)
	g.Go(func() error {
		defer close(itemCh)
		for {
			v, err := next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case itemCh <- v:
			}
		}
	})
	for i := range owners {
		owner := owners[i]
		g.Go(func() error {
			for v := range itemCh {
				if err := f(ctx, owner, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
