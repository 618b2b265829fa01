package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/moneytrail/moneytrail/internal/metrics"
)

// ErrHashTimeout indicates a hash or verify did not finish before its deadline.
var ErrHashTimeout = errors.New("password hashing timed out")

// HashPool bounds concurrent password hashing and applies a per-call deadline.
// A slot stays occupied until the underlying hash finishes, even when the
// caller has already given up, so CPU use never exceeds the configured width.
type HashPool struct {
	hasher  PasswordHasher
	sem     *semaphore.Weighted
	timeout time.Duration
	metrics metrics.Recorder
}

// NewHashPool creates a HashPool running at most workers hashes at once.
func NewHashPool(hasher PasswordHasher, workers int, timeout time.Duration, recorder metrics.Recorder) *HashPool {
	if workers < 1 {
		workers = 1
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &HashPool{
		hasher:  hasher,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		metrics: recorder,
	}
}

// Hash creates a digest for password.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	var digest string
	err := p.run(ctx, func() error {
		var err error
		digest, err = p.hasher.Hash(password)
		return err
	})
	if err != nil {
		return "", err
	}
	return digest, nil
}

// Verify checks password against digest.
func (p *HashPool) Verify(ctx context.Context, password, digest string) (bool, error) {
	var ok bool
	err := p.run(ctx, func() error {
		var err error
		ok, err = p.hasher.Verify(password, digest)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (p *HashPool) run(ctx context.Context, fn func() error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return deadlineError(ctx)
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		start := time.Now()
		err := fn()
		p.metrics.ObserveHashDuration(time.Since(start))
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return deadlineError(ctx)
	}
}

func deadlineError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrHashTimeout
	}
	return fmt.Errorf("hash aborted: %w", ctx.Err())
}
