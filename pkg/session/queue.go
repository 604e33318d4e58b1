package session

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("session controller closed")

// queue runs tasks one at a time in submission order. Submitting never
// blocks, so provider callbacks fired from inside a running task can
// enqueue follow-up work.
type queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

func newQueue() *queue {
	q := &queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// push appends task. It reports false once the queue is closed.
func (q *queue) push(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// do runs fn on the queue and waits for its result. fn is skipped if ctx
// is already done by the time it reaches the front of the queue.
func (q *queue) do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	ok := q.push(func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- fn(ctx)
	})
	if !ok {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}
}

func (q *queue) run() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if q.closed {
			q.tasks = nil
			q.mu.Unlock()
			return
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
			case <-q.done:
			}
			continue
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
	}
}

// close stops the worker after the running task, if any, and drops
// everything still pending.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()
}
