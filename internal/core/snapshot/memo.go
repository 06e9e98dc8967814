package snapshot

import (
	"context"
	"fmt"
	"sync"
)

// CellState is the lifecycle position of a Cell.
type CellState int

const (
	Uncomputed CellState = iota
	InProgress
	Done
	Failed
)

func (s CellState) String() string {
	switch s {
	case Uncomputed:
		return "uncomputed"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cell computes a value at most once. The first caller of Get runs the
// computation; concurrent callers wait for it and every caller observes the
// same value or error. A failed computation is never retried.
type Cell[T any] struct {
	mu    sync.Mutex
	state CellState
	done  chan struct{}
	value T
	err   error
}

// State reports the current lifecycle position.
func (c *Cell[T]) State() CellState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Get returns the memoized result, running compute if no caller has yet.
// compute runs detached from ctx cancellation so an impatient first caller
// cannot fail the cell for everyone. A waiter whose ctx ends returns
// ctx.Err() without affecting the computation.
func (c *Cell[T]) Get(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	switch c.state {
	case Done, Failed:
		c.mu.Unlock()
		return c.value, c.err
	case InProgress:
		done := c.done
		c.mu.Unlock()
		select {
		case <-done:
			return c.value, c.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	c.state = InProgress
	c.done = make(chan struct{})
	c.mu.Unlock()

	value, err := runGuarded(context.WithoutCancel(ctx), compute)

	c.mu.Lock()
	c.value, c.err = value, err
	if err != nil {
		c.state = Failed
	} else {
		c.state = Done
	}
	close(c.done)
	c.mu.Unlock()

	return value, err
}

func runGuarded[T any](ctx context.Context, compute func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("snapshot: computation panicked: %v", r)
		}
	}()
	return compute(ctx)
}
