package authclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type refreshResult struct {
	token string
	err   error
}

// flight is the one outstanding refresh exchange. waiters are drained in
// join order, exactly once, by settle.
type flight struct {
	waiters []chan refreshResult
	settled bool
}

// Coordinator lets at most one refresh exchange run at a time. Callers that
// arrive while one is running wait for its outcome instead of starting
// another.
type Coordinator struct {
	mu        sync.Mutex
	current   *flight
	refreshes atomic.Int64
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// acquireOrJoin makes the caller the leader of a new flight when none is
// live, otherwise enqueues it on the live one and returns its channel.
func (c *Coordinator) acquireOrJoin() (*flight, bool, <-chan refreshResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		c.current = &flight{}
		return c.current, true, nil
	}

	ch := make(chan refreshResult, 1)
	c.current.waiters = append(c.current.waiters, ch)
	return c.current, false, ch
}

// settle clears the slot and resolves every waiter with the same outcome.
// Only the first call for a flight has any effect.
func (c *Coordinator) settle(f *flight, token string, err error) {
	c.mu.Lock()
	if f.settled {
		c.mu.Unlock()
		return
	}
	f.settled = true
	waiters := f.waiters
	f.waiters = nil
	if c.current == f {
		c.current = nil
	}
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}
}

// Do runs refresh as leader, or waits for the running one. A waiter whose
// ctx ends stops waiting; the flight itself carries on for the others.
func (c *Coordinator) Do(ctx context.Context, refresh func(context.Context) (string, error)) (string, error) {
	f, leader, wait := c.acquireOrJoin()
	if !leader {
		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.refreshes.Add(1)

	defer func() {
		if p := recover(); p != nil {
			c.settle(f, "", &RefreshError{Err: fmt.Errorf("%w: %v", errRefreshAborted, p)})
			panic(p)
		}
	}()

	// The leader's cancellation must not fail the waiters riding on it.
	token, err := refresh(context.WithoutCancel(ctx))
	c.settle(f, token, err)
	return token, err
}

// InFlight reports whether a refresh exchange is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Refreshes counts flights led since creation.
func (c *Coordinator) Refreshes() int64 {
	return c.refreshes.Load()
}
