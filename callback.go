// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import "sync/atomic"

// Callback is a one-shot sink receiving either a success of A or a
// failure. Exactly one of OnSuccess/OnError is invoked, at most once, for
// any single run.
type Callback[A any] interface {
	OnSuccess(a A)
	OnError(err error)
}

// CallbackFunc adapts two plain functions into a Callback. A nil field is
// simply not invoked.
type CallbackFunc[A any] struct {
	Success func(A)
	Error   func(error)
}

func (c CallbackFunc[A]) OnSuccess(a A) {
	if c.Success != nil {
		c.Success(a)
	}
}

func (c CallbackFunc[A]) OnError(err error) {
	if c.Error != nil {
		c.Error(err)
	}
}

// safeCallback wraps a Callback with at-most-once enforcement, the same
// single-word CAS guard kont's Affine continuation uses to police
// one-shot resumption. A second completion attempt is dropped rather than
// delivered; if it represents a genuine double-completion by a
// misbehaving async register, it is reported to the scheduler instead of
// silently disappearing (§7.5). A panic raised by the wrapped handler
// itself is routed to the scheduler's failure sink (§7.4) — the run is
// already complete by the time the handler runs, so there is nowhere else
// for that panic to go.
type safeCallback[A any] struct {
	used  atomic.Uint32
	inner Callback[A]
	sched Scheduler
}

func newSafeCallback[A any](inner Callback[A], sched Scheduler) *safeCallback[A] {
	return &safeCallback[A]{inner: inner, sched: sched}
}

func (c *safeCallback[A]) OnSuccess(a A) {
	if !c.used.CompareAndSwap(0, 1) {
		c.sched.ReportFailure(errDoubleCompletion("success"))
		return
	}
	c.deliverSuccess(a)
}

func (c *safeCallback[A]) OnError(err error) {
	if !c.used.CompareAndSwap(0, 1) {
		c.sched.ReportFailure(wrapDiagnostic("duplicate completion", err))
		return
	}
	c.deliverError(err)
}

func (c *safeCallback[A]) deliverSuccess(a A) {
	defer c.recoverHandlerPanic()
	c.inner.OnSuccess(a)
}

func (c *safeCallback[A]) deliverError(err error) {
	defer c.recoverHandlerPanic()
	c.inner.OnError(err)
}

func (c *safeCallback[A]) recoverHandlerPanic() {
	if r := recover(); r != nil {
		err, _ := classifyPanic(r)
		c.sched.ReportFailure(wrapDiagnostic("panic in callback handler", err))
	}
}

// typedToErasedCallback views a typed Callback[A] as a Callback[Erased],
// the mirror image of erasedCallback in program.go.
type typedToErasedCallback[A any] struct{ inner Callback[A] }

func (c typedToErasedCallback[A]) OnSuccess(v Erased) { c.inner.OnSuccess(v.(A)) }
func (c typedToErasedCallback[A]) OnError(err error)  { c.inner.OnError(err) }

func eraseCallback[A any](cb Callback[A]) Callback[Erased] {
	return typedToErasedCallback[A]{inner: cb}
}
