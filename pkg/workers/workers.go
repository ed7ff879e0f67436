// Package workers runs work on a bounded number of slots.
//
// A Pool does not own goroutines. A caller acquires a slot, runs its
// function on its own goroutine, and releases the slot when the function
// returns, so at most Size functions run at once.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrPanic wraps a panic recovered from a pooled function.
var ErrPanic = errors.New("worker panic")

// Pool bounds concurrent execution.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a Pool with size slots. A non-positive size uses the number
// of CPUs.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Run waits for a slot and runs fn. Once fn starts it runs to completion
// even if ctx is cancelled. A panic in fn is returned as an error wrapping
// ErrPanic.
func (p *Pool) Run(ctx context.Context, fn func() error) (err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()

	return fn()
}

// Do runs fn on p and returns its result.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var result T
	err := p.Run(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// All runs every fn on p concurrently and waits for them. It returns the
// first error; the others still run to completion.
func All(ctx context.Context, p *Pool, fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(func() error {
			return p.Run(ctx, fn)
		})
	}
	return g.Wait()
}
