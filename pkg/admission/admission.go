// Package admission bounds the number of concurrently running jobs.
//
// Callers past capacity wait in arrival order; admission never rejects.
// Backpressure shows up as latency.
package admission

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 10

// Stats is a point-in-time view of the controller.
type Stats struct {
	Capacity int64 `json:"capacity"`
	Active   int64 `json:"active"`
	Waiting  int64 `json:"waiting"`
}

// Controller hands out at most Capacity concurrent leases.
type Controller struct {
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64
	waiting  atomic.Int64
}

// New creates a Controller with the given capacity.
func New(capacity int) *Controller {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Controller{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free, granting slots first come, first
// served. It returns an error only if ctx ends while waiting, in which
// case no slot is held.
func (c *Controller) Acquire(ctx context.Context) (*Lease, error) {
	c.waiting.Add(1)
	err := c.sem.Acquire(ctx, 1)
	c.waiting.Add(-1)
	if err != nil {
		return nil, err
	}

	c.active.Add(1)
	return &Lease{controller: c}, nil
}

// Stats reports capacity and current usage.
func (c *Controller) Stats() Stats {
	return Stats{
		Capacity: c.capacity,
		Active:   c.active.Load(),
		Waiting:  c.waiting.Load(),
	}
}

// Lease is one held admission slot.
type Lease struct {
	controller *Controller
	once       sync.Once
}

// Release returns the slot. Calls after the first are no-ops.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.controller.active.Add(-1)
		l.controller.sem.Release(1)
	})
}
