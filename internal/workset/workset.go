// Package workset runs a dynamically growing set of keyed units of work on a
// bounded pool of goroutines. Work may submit more work while it runs; each
// key executes at most once no matter how many goroutines race to submit it.
//
// The goroutine that calls WaitForAllWork takes part in execution, so a set
// created with n workers runs up to n+1 units concurrently. Callers that want
// a total degree of parallelism d create the set with d-1 workers.
package workset

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/projectgraph/internal/ctxlog"
)

// Func is one unit of work. The context is cancelled when the set fails or
// its parent context is cancelled.
type Func[R any] func(ctx context.Context) (R, error)

type item[K comparable, R any] struct {
	key  K
	work Func[R]
}

// WorkSet executes keyed work with at-most-once semantics per key.
type WorkSet[K comparable, R any] struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	stopAfter func() bool
	group     errgroup.Group

	mu        sync.Mutex
	cond      *sync.Cond
	claimed   map[K]struct{}
	queue     []item[K, R]
	pending   int // queued plus running
	completed map[K]R
	err       error
	closed    bool
	done      bool
}

// New creates a work set and starts its worker goroutines. A negative
// worker count is treated as zero, in which case only goroutines blocked in
// WaitForAllWork or WaitForCompletion execute work.
func New[K comparable, R any](ctx context.Context, workers int) *WorkSet[K, R] {
	if workers < 0 {
		workers = 0
	}
	ctx, cancel := context.WithCancelCause(ctx)
	ws := &WorkSet[K, R]{
		ctx:       ctx,
		cancel:    cancel,
		claimed:   make(map[K]struct{}),
		completed: make(map[K]R),
	}
	ws.cond = sync.NewCond(&ws.mu)
	ws.stopAfter = context.AfterFunc(ctx, func() {
		ws.mu.Lock()
		ws.cond.Broadcast()
		ws.mu.Unlock()
	})

	for i := 0; i < workers; i++ {
		workerID := i
		ws.group.Go(func() error { return ws.worker(workerID) })
	}
	return ws
}

// AddWork registers work under key. It returns true when this call claimed
// the key and queued work, and false when the key was claimed before or the
// set no longer accepts work. Claiming and enqueueing happen under one lock,
// so concurrent submissions of the same key result in exactly one execution.
//
// Complete only closes the set to outside callers: while any unit is queued
// or running, submissions are still executed, since they may come from that
// unit. Work submitted after the set has failed or been cancelled, or after a
// completed set has drained, is claimed but never executed.
func (ws *WorkSet[K, R]) AddWork(key K, work Func[R]) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if _, ok := ws.claimed[key]; ok {
		return false
	}
	ws.claimed[key] = struct{}{}

	if ws.failureLocked() != nil || (ws.closed && ws.pending == 0) {
		return false
	}
	ws.queue = append(ws.queue, item[K, R]{key: key, work: work})
	ws.pending++
	ws.cond.Signal()
	return true
}

// Err returns the first failure or the cancellation cause, or nil while the
// set is healthy.
func (ws *WorkSet[K, R]) Err() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.failureLocked()
}

// WaitForAllWork executes queued work on the calling goroutine until no work
// is queued or running. It returns early with the first failure, or with the
// cancellation cause once the parent context is cancelled.
func (ws *WorkSet[K, R]) WaitForAllWork() error {
	for {
		ws.mu.Lock()
		for {
			if err := ws.failureLocked(); err != nil {
				ws.dropQueueLocked()
				ws.mu.Unlock()
				return err
			}
			if len(ws.queue) > 0 {
				break
			}
			if ws.pending == 0 {
				ws.mu.Unlock()
				return nil
			}
			ws.cond.Wait()
		}
		it := ws.popLocked()
		ws.mu.Unlock()

		ws.run(it)
	}
}

// Complete signals that no more work will be submitted from outside the
// set. Workers exit once nothing is queued or running.
func (ws *WorkSet[K, R]) Complete() {
	ws.mu.Lock()
	ws.closed = true
	ws.cond.Broadcast()
	ws.mu.Unlock()
}

// WaitForCompletion completes the set, helps drain the remaining queue, and
// blocks until every worker goroutine has exited. It returns the first
// failure observed during the lifetime of the set.
func (ws *WorkSet[K, R]) WaitForCompletion() error {
	_ = ws.WaitForAllWork()
	ws.Complete()
	_ = ws.group.Wait()
	ws.stopAfter()

	ws.mu.Lock()
	defer ws.mu.Unlock()
	err := ws.failureLocked()
	ws.done = true
	ws.cancel(context.Canceled)
	return err
}

// IsCompleted reports whether WaitForCompletion has returned.
func (ws *WorkSet[K, R]) IsCompleted() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.done
}

// CompletedWork returns a copy of the results of every unit that finished
// successfully. It is only meaningful after WaitForCompletion.
func (ws *WorkSet[K, R]) CompletedWork() map[K]R {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make(map[K]R, len(ws.completed))
	for k, v := range ws.completed {
		out[k] = v
	}
	return out
}

func (ws *WorkSet[K, R]) worker(workerID int) error {
	logger := ctxlog.FromContext(ws.ctx).With("workerID", workerID)
	logger.Debug("Worker started.")
	defer logger.Debug("Worker finished.")

	for {
		it, ok := ws.next()
		if !ok {
			return nil
		}
		if err := ws.run(it); err != nil {
			return err
		}
	}
}

// next blocks until work is available. It returns false once the set is
// stopped, or completed with nothing queued or running.
func (ws *WorkSet[K, R]) next() (item[K, R], bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for {
		if ws.failureLocked() != nil {
			ws.dropQueueLocked()
			return item[K, R]{}, false
		}
		if len(ws.queue) > 0 {
			return ws.popLocked(), true
		}
		if ws.closed && ws.pending == 0 {
			return item[K, R]{}, false
		}
		ws.cond.Wait()
	}
}

func (ws *WorkSet[K, R]) run(it item[K, R]) error {
	result, err := ws.invoke(it)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.pending--
	if err != nil {
		if ws.err == nil {
			ws.err = err
			ws.cancel(err)
		}
	} else {
		ws.completed[it.key] = result
	}
	ws.cond.Broadcast()
	return err
}

func (ws *WorkSet[K, R]) invoke(it item[K, R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work for %v panicked: %v", it.key, r)
		}
	}()
	return it.work(ws.ctx)
}

func (ws *WorkSet[K, R]) popLocked() item[K, R] {
	it := ws.queue[0]
	ws.queue[0] = item[K, R]{}
	ws.queue = ws.queue[1:]
	return it
}

func (ws *WorkSet[K, R]) dropQueueLocked() {
	ws.pending -= len(ws.queue)
	ws.queue = nil
}

func (ws *WorkSet[K, R]) failureLocked() error {
	if ws.err != nil {
		return ws.err
	}
	if ws.ctx.Err() != nil {
		return context.Cause(ws.ctx)
	}
	return nil
}
