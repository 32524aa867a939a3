package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/apperrors"
)

func testLimiter(maxConcurrent int, minDelay time.Duration) *Limiter {
	return New(&Config{MaxConcurrent: maxConcurrent, MinDelay: minDelay}, zap.NewNop())
}

func TestDoReturnsTaskResult(t *testing.T) {
	l := testLimiter(2, time.Millisecond)

	err := l.Do(context.Background(), func() error { return nil })
	assert.NoError(t, err)

	wantErr := errors.New("boom")
	err = l.Do(context.Background(), func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestDoWithResult(t *testing.T) {
	l := testLimiter(2, time.Millisecond)

	got, err := DoWithResult(context.Background(), l, func() (string, error) {
		return "metadata", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "metadata", got)
}

func TestBatchingAndSpacing(t *testing.T) {
	const (
		tasks         = 12
		maxConcurrent = 5
		minDelay      = 50 * time.Millisecond
	)
	l := testLimiter(maxConcurrent, minDelay)

	var mu sync.Mutex
	starts := make([]time.Time, 0, tasks)

	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func() error {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Len(t, starts, tasks)

	// 12 tasks with a batch size of 5 need at least 3 dispatch batches, so
	// total spread covers at least two inter-batch delays.
	var earliest, latest time.Time
	for _, s := range starts {
		if earliest.IsZero() || s.Before(earliest) {
			earliest = s
		}
		if s.After(latest) {
			latest = s
		}
	}
	assert.GreaterOrEqual(t, latest.Sub(earliest), 2*minDelay,
		"expected at least 3 batches spaced by minDelay")
}

func TestFailureDoesNotAbortSiblings(t *testing.T) {
	l := testLimiter(5, time.Millisecond)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int

	for i := 0; i < 5; i++ {
		wg.Add(1)
		fail := i == 2
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func() error {
				if fail {
					return errors.New("boom")
				}
				return nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, succeeded)
}

func TestClearRejectsPending(t *testing.T) {
	// A long MinDelay keeps the second batch queued while we clear.
	l := testLimiter(1, 500*time.Millisecond)

	release := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()

	// Wait until the first task is dispatched so the next ones stay queued.
	time.Sleep(20 * time.Millisecond)

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Do(context.Background(), func() error { return nil })
		}()
	}

	// Let the queued tasks enqueue, then clear.
	time.Sleep(20 * time.Millisecond)
	cleared := l.Clear()
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, 3, cleared)
	for err := range results {
		assert.ErrorIs(t, err, apperrors.ErrQueueCleared)
	}
	assert.Equal(t, 0, l.Pending())
}

func TestDoRespectsContext(t *testing.T) {
	l := testLimiter(1, time.Hour) // second task would wait an hour

	started := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), func() error {
			close(started)
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
