package authclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCoordinator_SingleFlight(t *testing.T) {
	c := NewCoordinator()
	release := make(chan struct{})
	started := make(chan struct{})

	var calls int
	refresh := func(ctx context.Context) (string, error) {
		calls++
		close(started)
		<-release
		return "fresh", nil
	}

	var g errgroup.Group
	results := make([]string, 8)

	g.Go(func() error {
		tok, err := c.Do(context.Background(), refresh)
		results[0] = tok
		return err
	})
	<-started

	for i := 1; i < len(results); i++ {
		i := i
		g.Go(func() error {
			tok, err := c.Do(context.Background(), refresh)
			results[i] = tok
			return err
		})
	}

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.current != nil && len(c.current.waiters) == len(results)-1
	}, time.Second, time.Millisecond)
	assert.True(t, c.InFlight())

	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), c.Refreshes())
	assert.False(t, c.InFlight())
	for _, tok := range results {
		assert.Equal(t, "fresh", tok)
	}
}

func TestCoordinator_FailureReachesEveryWaiter(t *testing.T) {
	c := NewCoordinator()
	cause := errors.New("refresh rejected")
	release := make(chan struct{})
	started := make(chan struct{})

	refresh := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "", &RefreshError{Err: cause}
	}

	errs := make([]error, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Do(context.Background(), refresh)
	}()
	<-started

	for i := 1; i < len(errs); i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), refresh)
		}()
	}
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.current.waiters) == len(errs)-1
	}, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrRefreshExhausted)
		assert.ErrorIs(t, err, cause)
	}
	assert.Equal(t, errs[0], errs[1])
	assert.False(t, c.InFlight())
}

func TestCoordinator_WaitersResumeInJoinOrder(t *testing.T) {
	c := NewCoordinator()
	f, leader, _ := c.acquireOrJoin()
	require.True(t, leader)

	var chans []<-chan refreshResult
	for i := 0; i < 3; i++ {
		joined, isLeader, ch := c.acquireOrJoin()
		require.False(t, isLeader)
		require.Same(t, f, joined)
		chans = append(chans, ch)
	}

	c.settle(f, "tok", nil)
	for _, ch := range chans {
		select {
		case res := <-ch:
			assert.Equal(t, "tok", res.token)
		default:
			t.Fatal("waiter not resolved")
		}
	}

	// A second settle for the same flight is a no-op.
	assert.NotPanics(t, func() { c.settle(f, "other", errors.New("late")) })

	next, leader, _ := c.acquireOrJoin()
	assert.True(t, leader)
	assert.NotSame(t, f, next)
}

func TestCoordinator_PanicDoesNotWedge(t *testing.T) {
	c := NewCoordinator()
	started := make(chan struct{})
	release := make(chan struct{})

	waiterErr := make(chan error, 1)
	go func() {
		defer func() { _ = recover() }()
		_, _ = c.Do(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			panic("boom")
		})
	}()
	<-started

	go func() {
		_, err := c.Do(context.Background(), func(ctx context.Context) (string, error) {
			return "never", nil
		})
		waiterErr <- err
	}()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.current != nil && len(c.current.waiters) == 1
	}, time.Second, time.Millisecond)

	close(release)

	select {
	case err := <-waiterErr:
		assert.ErrorIs(t, err, ErrRefreshExhausted)
		assert.ErrorIs(t, err, errRefreshAborted)
	case <-time.After(time.Second):
		t.Fatal("waiter stuck after leader panic")
	}

	assert.False(t, c.InFlight())
	tok, err := c.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", tok)
}

func TestCoordinator_WaiterCancellation(t *testing.T) {
	c := NewCoordinator()
	started := make(chan struct{})
	release := make(chan struct{})

	leaderDone := make(chan string, 1)
	go func() {
		tok, _ := c.Do(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "fresh", nil
		})
		leaderDone <- tok
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, func(ctx context.Context) (string, error) { return "", nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Equal(t, "fresh", <-leaderDone)
	assert.Equal(t, int64(1), c.Refreshes())
}

func TestCoordinator_LeaderCancellationDoesNotReachRefresh(t *testing.T) {
	c := NewCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := c.Do(ctx, func(ctx context.Context) (string, error) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestMemoryTokenStore(t *testing.T) {
	s := NewMemoryTokenStore()
	assert.Empty(t, s.Get())

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			s.Set("tok")
			_ = s.Get()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, "tok", s.Get())

	s.Clear()
	assert.Empty(t, s.Get())
}
