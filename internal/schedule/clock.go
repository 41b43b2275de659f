// Package schedule makes the control loops' suspend points explicit so
// tests can run them against a fake clock instead of wall-clock sleeps.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Clock is the cooperative scheduling surface used by polling and retry
// loops.
type Clock interface {
	Now() time.Time
	// Wait blocks for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error
	// WaitUntil polls pred every poll interval until it returns true or
	// timeout elapses. Returns false on timeout, never an error for
	// "condition stayed false".
	WaitUntil(ctx context.Context, timeout, poll time.Duration, pred func(context.Context) (bool, error)) (bool, error)
	// OnInterval invokes fn every period until the returned stop
	// function is called or ctx is done.
	OnInterval(ctx context.Context, period time.Duration, fn func()) (stop func())
}

// Real is the production clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r Real) WaitUntil(ctx context.Context, timeout, poll time.Duration, pred func(context.Context) (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := r.Wait(ctx, poll); err != nil {
			return false, err
		}
	}
}

func (r Real) OnInterval(ctx context.Context, period time.Duration, fn func()) func() {
	stopCh := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { once.Do(func() { close(stopCh) }) }
}

// Fake is a deterministic clock for tests. Waits return immediately and
// advance the fake time; interval callbacks fire only via Tick.
type Fake struct {
	mu        sync.Mutex
	now       time.Time
	waits     []time.Duration
	intervals []func()
}

// NewFake starts a fake clock at a fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	return nil
}

func (f *Fake) WaitUntil(ctx context.Context, timeout, poll time.Duration, pred func(context.Context) (bool, error)) (bool, error) {
	deadline := f.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if f.Now().After(deadline) {
			return false, nil
		}
		if err := f.Wait(ctx, poll); err != nil {
			return false, err
		}
	}
}

func (f *Fake) OnInterval(_ context.Context, _ time.Duration, fn func()) func() {
	f.mu.Lock()
	f.intervals = append(f.intervals, fn)
	f.mu.Unlock()
	return func() {}
}

// Tick fires every registered interval callback once.
func (f *Fake) Tick() {
	f.mu.Lock()
	fns := append([]func(){}, f.intervals...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Waits returns every recorded Wait duration in order.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}
