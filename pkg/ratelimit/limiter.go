// Package ratelimit bounds outbound call rate against the Web API.
//
// Work is queued FIFO and drained in batches of at most MaxConcurrent tasks,
// with MinDelay between batch starts. Batch members run concurrently and each
// caller's result settles independently; a failing task never aborts its
// siblings or the queue.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/apperrors"
)

// Config defines throttling behavior for outbound metadata/data calls.
type Config struct {
	MaxConcurrent int           // tasks dispatched per batch
	MinDelay      time.Duration // minimum spacing between batch starts
}

// DefaultConfig returns defaults tuned for Web API service-protection limits.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent: 5,
		MinDelay:      200 * time.Millisecond,
	}
}

type task struct {
	run  func() error
	done chan error // buffered, settled exactly once
}

// Limiter is a FIFO throttle drained by a self-re-arming dispatcher: each
// drain takes one batch, and if the queue is non-empty afterward the next
// drain runs MinDelay later.
type Limiter struct {
	cfg    *Config
	logger *zap.Logger

	mu       sync.Mutex
	queue    []*task
	draining bool
}

// New creates a Limiter. A nil config gets defaults.
func New(cfg *Config, logger *zap.Logger) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Limiter{
		cfg:    cfg,
		logger: logger.Named("ratelimit"),
	}
}

// Do enqueues fn and blocks until it settles. The context guards the caller's
// wait only; an abandoned task may still execute, its result discarded.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	t := &task{run: fn, done: make(chan error, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, t)
	if !l.draining {
		l.draining = true
		go l.drain()
	}
	l.mu.Unlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoWithResult enqueues fn on l and returns its value once it settles.
func DoWithResult[T any](ctx context.Context, l *Limiter, fn func() (T, error)) (T, error) {
	var result T
	err := l.Do(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// drain dispatches one batch per pass, spacing passes by MinDelay.
// Dispatch order within a batch follows submission order; completion order is
// not guaranteed.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		n := len(l.queue)
		if n == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		if n > l.cfg.MaxConcurrent {
			n = l.cfg.MaxConcurrent
		}
		batch := l.queue[:n:n]
		l.queue = l.queue[n:]
		l.mu.Unlock()

		l.logger.Debug("dispatching batch", zap.Int("size", n))
		for _, t := range batch {
			go func(t *task) {
				t.done <- t.run()
			}(t)
		}

		time.Sleep(l.cfg.MinDelay)
	}
}

// Clear rejects every queued task with apperrors.ErrQueueCleared and returns
// how many were rejected. In-flight tasks are unaffected.
func (l *Limiter) Clear() int {
	l.mu.Lock()
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, t := range pending {
		t.done <- apperrors.ErrQueueCleared
	}
	if len(pending) > 0 {
		l.logger.Debug("queue cleared", zap.Int("rejected", len(pending)))
	}
	return len(pending)
}

// Pending returns the number of queued, not-yet-dispatched tasks.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
