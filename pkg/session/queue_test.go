package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInSubmissionOrder(t *testing.T) {
	q := newQueue()
	defer q.close()

	var mu sync.Mutex
	var order []int
	release := make(chan struct{})

	// Hold the worker so every task below queues up behind it.
	q.push(func() { <-release })
	for i := 0; i < 20; i++ {
		i := i
		q.push(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	close(release)

	require.NoError(t, q.do(context.Background(), func(context.Context) error { return nil }))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestQueue_OneAtATime(t *testing.T) {
	q := newQueue()
	defer q.close()

	var mu sync.Mutex
	running, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.do(context.Background(), func(context.Context) error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestQueue_PushFromInsideTask(t *testing.T) {
	q := newQueue()
	defer q.close()

	inner := make(chan struct{})
	err := q.do(context.Background(), func(context.Context) error {
		q.push(func() { close(inner) })
		return nil
	})
	require.NoError(t, err)

	select {
	case <-inner:
	case <-time.After(time.Second):
		t.Fatal("task pushed from inside a task never ran")
	}
}

func TestQueue_CancelledBeforeRun(t *testing.T) {
	q := newQueue()
	defer q.close()

	release := make(chan struct{})
	q.push(func() { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	errc := make(chan error, 1)
	go func() {
		errc <- q.do(ctx, func(context.Context) error {
			ran = true
			return nil
		})
	}()
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	close(release)

	// Drain the queue before checking ran.
	require.NoError(t, q.do(context.Background(), func(context.Context) error { return nil }))
	assert.False(t, ran)
}

func TestQueue_Closed(t *testing.T) {
	q := newQueue()
	q.close()

	err := q.do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, q.push(func() {}))
}
