// Package ratelimiter dispatches tasks in FIFO order, at most one task per interval.
//
// Dispatch is driven by three events: a task being added, a task completing and
// the limiter's own timer firing. The timer keeps the pace independent of how
// long tasks take, so slow tasks never stall the queue.
package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Task is a unit of work submitted to a [Limiter].
type Task[T any] func() (T, error)

type entry struct {
	run func(dispatchedAt time.Time)
}

// Limiter spaces task starts at least Interval apart.
type Limiter struct {
	interval time.Duration

	mu           sync.Mutex
	queue        []entry
	lastDispatch time.Time
	timerPending bool
}

// New creates a limiter allowing rps task starts per second.
func New(rps int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	return &Limiter{
		interval: time.Second / time.Duration(rps),
	}
}

// Interval returns the minimum spacing between two task starts.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Pending returns the number of queued tasks not yet dispatched.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Add enqueues task and returns a future resolved with the task's outcome.
func Add[T any](l *Limiter, task Task[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	l.mu.Lock()
	l.queue = append(l.queue, entry{
		run: func(dispatchedAt time.Time) {
			f.dispatchedAt = dispatchedAt
			f.value, f.err = runTask(task)
			close(f.done)
		},
	})
	l.mu.Unlock()

	l.dispatch()
	return f
}

func runTask[T any](task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("task panicked: %v", r)
		}
	}()
	return task()
}

func (l *Limiter) dispatch() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return
	}

	now := time.Now()
	if wait := l.interval - now.Sub(l.lastDispatch); wait > 0 {
		l.schedule(wait)
		return
	}

	next := l.queue[0]
	l.queue[0] = entry{}
	l.queue = l.queue[1:]
	l.lastDispatch = now

	go func() {
		next.run(now)
		l.dispatch()
	}()

	if len(l.queue) > 0 {
		l.schedule(l.interval)
	}
}

// schedule must be called with l.mu held.
func (l *Limiter) schedule(wait time.Duration) {
	if l.timerPending {
		return
	}
	l.timerPending = true
	time.AfterFunc(wait, func() {
		l.mu.Lock()
		l.timerPending = false
		l.mu.Unlock()
		l.dispatch()
	})
}

// Future is the pending result of a task added to a [Limiter].
type Future[T any] struct {
	done         chan struct{}
	dispatchedAt time.Time
	value        T
	err          error
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done.
// The task's own value and error are returned unchanged.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.WithStack(ctx.Err())
	}
}

// DispatchedAt returns the time the task was started. It is only valid after Done is closed.
func (f *Future[T]) DispatchedAt() time.Time {
	return f.dispatchedAt
}

func (f *Future[T]) String() string {
	select {
	case <-f.done:
		return fmt.Sprintf("Future(done, dispatched_at=%s)", f.dispatchedAt.Format(time.RFC3339Nano))
	default:
		return "Future(pending)"
	}
}
