package workset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitTree submits work for n that recursively submits its children in a
// binary tree capped at limit. Every node is also submitted by its sibling to
// force duplicate submissions.
func submitTree(ws *WorkSet[int, int], n, limit int, runs *sync.Map) {
	ws.AddWork(n, func(ctx context.Context) (int, error) {
		counter, _ := runs.LoadOrStore(n, new(atomic.Int32))
		counter.(*atomic.Int32).Add(1)
		for _, child := range []int{2 * n, 2*n + 1, n + 1} {
			if child <= limit {
				submitTree(ws, child, limit, runs)
			}
		}
		return n * n, nil
	})
}

func TestWorkSet_RecursiveSubmissionRunsEachKeyOnce(t *testing.T) {
	testCases := []struct {
		name    string
		workers int
	}{
		{name: "implicit worker only", workers: 0},
		{name: "one worker", workers: 1},
		{name: "many workers", workers: 16},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			const limit = 300

			ws := New[int, int](context.Background(), tc.workers)
			var runs sync.Map
			submitTree(ws, 1, limit, &runs)

			require.NoError(t, ws.WaitForAllWork())
			ws.Complete()
			require.NoError(t, ws.WaitForCompletion())
			assert.True(t, ws.IsCompleted())

			completed := ws.CompletedWork()
			assert.Len(t, completed, limit)
			for n := 1; n <= limit; n++ {
				counter, ok := runs.Load(n)
				require.True(t, ok, "key %d never ran", n)
				assert.Equal(t, int32(1), counter.(*atomic.Int32).Load(), "key %d", n)
				assert.Equal(t, n*n, completed[n])
			}
		})
	}
}

func TestWorkSet_AddWorkClaimsAtomically(t *testing.T) {
	ws := New[string, struct{}](context.Background(), 4)

	var runs atomic.Int32
	var claimed atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ws.AddWork("shared", func(context.Context) (struct{}, error) {
				runs.Add(1)
				return struct{}{}, nil
			}) {
				claimed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.NoError(t, ws.WaitForAllWork())
	require.NoError(t, ws.WaitForCompletion())
	assert.Equal(t, int32(1), claimed.Load())
	assert.Equal(t, int32(1), runs.Load())
}

func TestWorkSet_FirstErrorWins(t *testing.T) {
	errBoom := errors.New("boom")
	ws := New[int, int](context.Background(), 2)

	var afterFailure atomic.Int32
	ws.AddWork(1, func(ctx context.Context) (int, error) {
		return 0, errBoom
	})

	require.ErrorIs(t, ws.WaitForAllWork(), errBoom)

	// Work added after the failure is claimed but never executed.
	assert.False(t, ws.AddWork(2, func(context.Context) (int, error) {
		afterFailure.Add(1)
		return 2, nil
	}))
	assert.False(t, ws.AddWork(2, nil))
	assert.ErrorIs(t, ws.Err(), errBoom)

	ws.Complete()
	assert.ErrorIs(t, ws.WaitForCompletion(), errBoom)
	assert.Zero(t, afterFailure.Load())
	assert.Empty(t, ws.CompletedWork())
}

func TestWorkSet_PanicBecomesError(t *testing.T) {
	ws := New[string, int](context.Background(), 1)
	ws.AddWork("bad", func(context.Context) (int, error) {
		panic("kaboom")
	})

	err := ws.WaitForAllWork()
	require.Error(t, err)
	assert.ErrorContains(t, err, "kaboom")
	assert.ErrorContains(t, err, "bad")
	assert.Error(t, ws.WaitForCompletion())
}

func TestWorkSet_FailureCancelsInFlightWork(t *testing.T) {
	errBoom := errors.New("boom")
	ws := New[int, int](context.Background(), 3)

	started := make(chan struct{})
	observedCancel := make(chan struct{})
	ws.AddWork(1, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		close(observedCancel)
		return 0, ctx.Err()
	})
	ws.AddWork(2, func(ctx context.Context) (int, error) {
		<-started
		return 0, errBoom
	})

	require.ErrorIs(t, ws.WaitForAllWork(), errBoom)
	select {
	case <-observedCancel:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight work never saw cancellation")
	}
	assert.ErrorIs(t, ws.WaitForCompletion(), errBoom)
}

func TestWorkSet_CancellationStopsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := New[int, int](ctx, 1)

	var startedCount atomic.Int32
	started := make(chan struct{}, 16)
	for i := 0; i < 10; i++ {
		ws.AddWork(i, func(ctx context.Context) (int, error) {
			startedCount.Add(1)
			started <- struct{}{}
			<-ctx.Done()
			return 0, ctx.Err()
		})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- ws.WaitForAllWork() }()

	// One background worker plus the implicit worker.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("work did not start")
		}
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForAllWork did not return after cancellation")
	}

	assert.ErrorIs(t, ws.WaitForCompletion(), context.Canceled)
	assert.Equal(t, int32(2), startedCount.Load(), "queued work must not start after cancellation")
}

func TestWorkSet_WaitForCompletionDrainsQueue(t *testing.T) {
	ws := New[int, int](context.Background(), 0)
	for i := 0; i < 5; i++ {
		ws.AddWork(i, func(context.Context) (int, error) { return i, nil })
	}

	ws.Complete()
	require.NoError(t, ws.WaitForCompletion())
	assert.Len(t, ws.CompletedWork(), 5)

	// Submissions after completion are refused.
	assert.False(t, ws.AddWork(99, func(context.Context) (int, error) { return 99, nil }))
	assert.Len(t, ws.CompletedWork(), 5)
	assert.NoError(t, ws.Err())
}

func TestWorkSet_CompleteKeepsRecursiveSubmissions(t *testing.T) {
	testCases := []struct {
		name    string
		workers int
	}{
		{name: "implicit worker only", workers: 0},
		{name: "one worker", workers: 1},
		{name: "many workers", workers: 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			const limit = 50

			ws := New[int, int](context.Background(), tc.workers)
			var runs sync.Map
			submitTree(ws, 1, limit, &runs)

			// Complete before the tree has been expanded; the root's children
			// are submitted from inside running work and must still run.
			ws.Complete()
			require.NoError(t, ws.WaitForCompletion())

			completed := ws.CompletedWork()
			assert.Len(t, completed, limit)
			for n := 1; n <= limit; n++ {
				assert.Equal(t, n*n, completed[n], "key %d", n)
			}
		})
	}
}

func TestWorkSet_CompleteWhileWorkIsRunning(t *testing.T) {
	ws := New[string, int](context.Background(), 2)

	release := make(chan struct{})
	running := make(chan struct{})
	ws.AddWork("parent", func(ctx context.Context) (int, error) {
		close(running)
		<-release
		ws.AddWork("child", func(context.Context) (int, error) { return 2, nil })
		return 1, nil
	})

	<-running
	ws.Complete()
	close(release)

	require.NoError(t, ws.WaitForCompletion())
	assert.Equal(t, map[string]int{"parent": 1, "child": 2}, ws.CompletedWork())
}
