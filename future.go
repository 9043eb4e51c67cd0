// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"context"
	"sync"
)

// Future is a cancelable handle on an in-flight run that did not resolve
// synchronously. It is the counterpart of the teacher's *Suspension — where
// Suspension yields one effect at a time and must be driven by repeated
// Resume calls, Future resolves exactly once and is driven by whatever
// completes the underlying asynchronous chain; there is nothing to resume.
type Future[A any] struct {
	mu     sync.Mutex
	done   bool
	value  A
	err    error
	waitCh chan struct{}
	scope  *StackedCancelable
}

func newFuture[A any](scope *StackedCancelable) *Future[A] {
	return &Future[A]{waitCh: make(chan struct{}), scope: scope}
}

func (f *Future[A]) complete(v A, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.value, f.err = v, err
	f.mu.Unlock()
	close(f.waitCh)
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first.
func (f *Future[A]) Wait(ctx context.Context) (A, error) {
	select {
	case <-f.waitCh:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	}
}

// TryGet reports the future's outcome without blocking. ok is false if the
// future has not yet resolved.
func (f *Future[A]) TryGet() (value A, err error, ok bool) {
	select {
	case <-f.waitCh:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err, true
	default:
		var zero A
		return zero, nil, false
	}
}

// Done returns a channel closed once the future resolves, for use in a
// select alongside other channels.
func (f *Future[A]) Done() <-chan struct{} { return f.waitCh }

// Cancel cancels the run backing this future. Future satisfies CancelToken.
func (f *Future[A]) Cancel() { f.scope.Cancel() }

// inlineCallback distinguishes a callback delivered before the run-loop's
// initial call returns (resolved synchronously) from one delivered later,
// handing the latter off to fut. Built fresh for this package — kont's
// Step/Suspension has no synchronous/asynchronous distinction to make,
// since every Cont step is synchronous by construction.
type inlineCallback[A any] struct {
	mu       sync.Mutex
	returned bool
	inline   bool
	value    A
	err      error
	fut      *Future[A]
}

func (c *inlineCallback[A]) OnSuccess(a A) {
	c.mu.Lock()
	if !c.returned {
		c.inline = true
		c.value = a
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.fut.complete(a, nil)
}

func (c *inlineCallback[A]) OnError(err error) {
	c.mu.Lock()
	if !c.returned {
		c.inline = true
		c.err = err
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	var zero A
	c.fut.complete(zero, err)
}

// settle marks the initial synchronous drive as finished, returning the
// inline outcome if there was one.
func (c *inlineCallback[A]) settle() (value A, err error, resolvedInline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returned = true
	return c.value, c.err, c.inline
}
