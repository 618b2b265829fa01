package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moneytrail/moneytrail/internal/metrics"
)

// slowHasher blocks every call until release is closed and tracks peak concurrency.
type slowHasher struct {
	release chan struct{}
	active  int32
	peak    int32
}

func (h *slowHasher) enter() {
	n := atomic.AddInt32(&h.active, 1)
	for {
		p := atomic.LoadInt32(&h.peak)
		if n <= p || atomic.CompareAndSwapInt32(&h.peak, p, n) {
			break
		}
	}
	<-h.release
	atomic.AddInt32(&h.active, -1)
}

func (h *slowHasher) Hash(password string) (string, error) {
	h.enter()
	return "digest:" + password, nil
}

func (h *slowHasher) Verify(password, digest string) (bool, error) {
	h.enter()
	return digest == "digest:"+password, nil
}

func TestHashPool_HashAndVerify(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	pool := NewHashPool(NewBcryptHasher(4), 2, 5*time.Second, recorder)
	ctx := context.Background()

	digest, err := pool.Hash(ctx, "abcd")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := pool.Verify(ctx, "abcd", digest)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v; want true, nil", ok, err)
	}

	ok, err = pool.Verify(ctx, "abce", digest)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}

	if got := recorder.Snapshot().HashDurationCount; got != 3 {
		t.Errorf("HashDurationCount = %d, want 3", got)
	}
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	h := &slowHasher{release: make(chan struct{})}
	pool := NewHashPool(h, 2, 5*time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Hash(context.Background(), "pw")
		}()
	}

	// Let the goroutines pile up on the semaphore before releasing.
	time.Sleep(50 * time.Millisecond)
	close(h.release)
	wg.Wait()

	if peak := atomic.LoadInt32(&h.peak); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestHashPool_Timeout(t *testing.T) {
	t.Parallel()

	h := &slowHasher{release: make(chan struct{})}
	defer close(h.release)

	pool := NewHashPool(h, 1, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := pool.Hash(context.Background(), "pw")
	if !errors.Is(err, ErrHashTimeout) {
		t.Fatalf("err = %v, want ErrHashTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Hash returned after %s, expected near the 20ms deadline", elapsed)
	}

	// The slot is still held by the stuck hash, so a second call also times out.
	if _, err := pool.Verify(context.Background(), "pw", "digest:pw"); !errors.Is(err, ErrHashTimeout) {
		t.Errorf("second call err = %v, want ErrHashTimeout", err)
	}
}

func TestHashPool_CallerCancel(t *testing.T) {
	t.Parallel()

	h := &slowHasher{release: make(chan struct{})}
	defer close(h.release)

	pool := NewHashPool(h, 1, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Hash(ctx, "pw")
	if err == nil || errors.Is(err, ErrHashTimeout) {
		t.Fatalf("err = %v, want a cancellation error", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want wrapped context.Canceled", err)
	}
}
