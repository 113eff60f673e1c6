package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFetchMemoizesSuccessfulValue(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	var calls int32
	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "castor-oil", nil
	}

	for i := 0; i < 3; i++ {
		state, err := cache.Fetch(context.Background(), Key{"product", "castor-oil"}, fn)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !state.HasData || state.Data != "castor-oil" || state.IsLoading {
			t.Fatalf("unexpected state %+v", state)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single underlying call, got %d", got)
	}
}

func TestConcurrentFetchesCollapse(t *testing.T) {
	t.Parallel()

	cache := New[int]()
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 6, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := cache.Fetch(context.Background(), Key{"products"}, fn)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = state.Data
		}(i)
	}

	waitFor(t, func() bool { return cache.Peek(Key{"products"}).IsLoading })
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected concurrent fetches to share one call, got %d", got)
	}
	for i, v := range results {
		if v != 6 {
			t.Fatalf("caller %d got %d", i, v)
		}
	}
}

func TestFailureKeepsStaleData(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	key := Key{"products"}
	if _, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "v1", nil
	}); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	cache.Invalidate(key)
	boom := errors.New("storefront unavailable")
	state, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !state.HasData || state.Data != "v1" {
		t.Fatalf("expected stale value to survive failure, got %+v", state)
	}
	if !errors.Is(state.Err, boom) {
		t.Fatalf("expected error exposed on state, got %v", state.Err)
	}

	peek := cache.Peek(key)
	if peek.Data != "v1" || peek.Err == nil || peek.IsLoading {
		t.Fatalf("unexpected peek state %+v", peek)
	}
}

func TestFailureWithoutDataRefetchesOnNextCall(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	key := Key{"product", "argan-oil"}
	var calls int32
	fn := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errors.New("timeout")
		}
		return "argan", nil
	}

	if _, err := cache.Fetch(context.Background(), key, fn); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	state, err := cache.Fetch(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Data != "argan" || state.Err != nil {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestInvalidateSupersedesInflightResult(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	cache := New[string](WithName("catalog"), WithRecorder(rec))
	key := Key{"product", "jojoba-oil"}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan State[string], 1)
	go func() {
		state, _ := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- state
	}()

	<-started
	cache.Invalidate(key)

	fresh, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "new", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.Data != "new" {
		t.Fatalf("expected fresh value, got %q", fresh.Data)
	}

	close(release)
	old := <-done
	if old.Data != "old" {
		t.Fatalf("superseded caller should still see its own result, got %q", old.Data)
	}
	if got := cache.Peek(key).Data; got != "new" {
		t.Fatalf("superseded result must not overwrite the entry, got %q", got)
	}
	if rec.superseded.Load() != 1 {
		t.Fatalf("expected one superseded flight, got %d", rec.superseded.Load())
	}
}

func TestCallerCancellationDoesNotAbortFlight(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	key := Key{"products"}
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, key, func(ctx context.Context) (string, error) {
			<-release
			return "done", nil
		})
		errCh <- err
	}()

	waitFor(t, func() bool { return cache.Peek(key).IsLoading })
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	waitFor(t, func() bool { return cache.Peek(key).HasData })
}

func TestInvalidatePrefix(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	var calls int32
	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "x", nil
	}
	keys := []Key{{"product", "a"}, {"product", "b"}, {"products"}}
	for _, k := range keys {
		if _, err := cache.Fetch(context.Background(), k, fn); err != nil {
			t.Fatalf("fetch %v: %v", k, err)
		}
	}

	cache.InvalidatePrefix(Key{"product"})
	for _, k := range keys {
		if _, err := cache.Fetch(context.Background(), k, fn); err != nil {
			t.Fatalf("refetch %v: %v", k, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("expected only product:* keys to refetch (5 calls), got %d", got)
	}
}

func TestWatchStreamsLatestState(t *testing.T) {
	t.Parallel()

	cache := New[string]()
	key := Key{"products"}
	ch, stop := cache.Watch(key)
	defer stop()

	initial := <-ch
	if initial.HasData || initial.IsLoading {
		t.Fatalf("expected empty initial state, got %+v", initial)
	}

	if _, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "six oils", nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	latest := <-ch
	if latest.Data != "six oils" || latest.IsLoading {
		t.Fatalf("expected committed state, got %+v", latest)
	}

	stop()
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after stop")
	}
	stop()
}

type countingRecorder struct {
	hits, misses, failures, superseded atomic.Int32
}

func (r *countingRecorder) Hit(string)        { r.hits.Add(1) }
func (r *countingRecorder) Miss(string)       { r.misses.Add(1) }
func (r *countingRecorder) Failure(string)    { r.failures.Add(1) }
func (r *countingRecorder) Superseded(string) { r.superseded.Add(1) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
