// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"fmt"
	"sync"
	"time"
)

// Outcome is a reified run result: exactly one of Value/Err is meaningful.
// Materialize/Dematerialize move between a Program that can fail and a
// Program of Outcome that cannot.
type Outcome[A any] struct {
	Value A
	Err   error
}

// Materialize reifies p's failure into a value, producing a Program that
// never itself fails. It runs p eagerly against the ambient Scheduler
// supplied at run time, reusing the run-loop directly rather than
// composing through FlatMap — FlatMap's failNode short-circuit means a
// failure can never be observed by a continuation, so catching it requires
// stepping outside the bind chain.
func Materialize[A any](p Program[A]) Program[Outcome[A]] {
	return UnsafeAsync(func(sched Scheduler, scope *StackedCancelable, cb Callback[Outcome[A]]) {
		erased := eraseProgram[A](p)
		runLoopErased(erased, sched, scope, CallbackFunc[Erased]{
			Success: func(v Erased) { cb.OnSuccess(Outcome[A]{Value: v.(A)}) },
			Error:   func(err error) { cb.OnSuccess(Outcome[A]{Err: err}) },
		}, sched.ExecutionModel().initialFrameIndex())
	})
}

// Dematerialize is the inverse of Materialize: an Outcome carrying an error
// becomes a failed Program again.
func Dematerialize[A any](p Program[Outcome[A]]) Program[A] {
	return FlatMap(p, func(o Outcome[A]) Program[A] {
		if o.Err != nil {
			return Fail[A](o.Err)
		}
		return Now(o.Value)
	})
}

// OnErrorHandleWith substitutes handler(err) for p's outcome whenever p
// fails, otherwise passes p's success through unchanged.
func OnErrorHandleWith[A any](p Program[A], handler func(err error) Program[A]) Program[A] {
	return FlatMap(Materialize[A](p), func(o Outcome[A]) Program[A] {
		if o.Err != nil {
			return handler(o.Err)
		}
		return Now(o.Value)
	})
}

// FromFuture subscribes to an already-running Future. If the enclosing
// scope is canceled before f resolves, the result is dropped silently
// rather than delivered (§4.8) — this is the one combinator whose contract
// names cancellation explicitly, since a Future, unlike a Program, is
// already running independently of any particular subscriber's scope.
func FromFuture[A any](f *Future[A]) Program[A] {
	return Async(func(sched Scheduler, scope *StackedCancelable, cb Callback[A]) {
		stop := make(chan struct{})
		scope.Push(CancelFunc(func() {
			select {
			case <-stop:
			default:
				close(stop)
			}
		}))
		go func() {
			select {
			case <-f.Done():
				if scope.IsCanceled() {
					return
				}
				v, err, _ := f.TryGet()
				if err != nil {
					cb.OnError(err)
					return
				}
				cb.OnSuccess(v)
			case <-stop:
			}
		}()
	})
}

// MapBoth runs pa and pb concurrently and combines their results with f
// once both have completed. Either side failing fails the whole
// combination; the first failure observed wins and the other side's
// eventual outcome, success or failure, is discarded.
func MapBoth[A, B, C any](pa Program[A], pb Program[B], f func(A, B) C) Program[C] {
	return Async(func(sched Scheduler, scope *StackedCancelable, cb Callback[C]) {
		var mu sync.Mutex
		var aVal A
		var bVal B
		var aDone, bDone, settled bool

		tryDeliver := func() {
			if settled || !aDone || !bDone {
				return
			}
			settled = true
			cb.OnSuccess(f(aVal, bVal))
		}
		fail := func(err error) {
			if settled {
				return
			}
			settled = true
			cb.OnError(err)
		}

		tokenA := RunWithCallback(pa, sched, CallbackFunc[A]{
			Success: func(a A) {
				mu.Lock()
				defer mu.Unlock()
				aVal, aDone = a, true
				tryDeliver()
			},
			Error: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				fail(err)
			},
		})
		scope.Push(tokenA)

		tokenB := RunWithCallback(pb, sched, CallbackFunc[B]{
			Success: func(b B) {
				mu.Lock()
				defer mu.Unlock()
				bVal, bDone = b, true
				tryDeliver()
			},
			Error: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				fail(err)
			},
		})
		scope.Push(tokenB)
	})
}

// FirstCompletedOf races every Program in ps and resolves with whichever
// completes first, success or failure. The others are left to run to
// completion in the background; only the first outcome is ever delivered.
func FirstCompletedOf[A any](ps []Program[A]) Program[A] {
	return Async(func(sched Scheduler, scope *StackedCancelable, cb Callback[A]) {
		var mu sync.Mutex
		delivered := false
		claim := func() bool {
			mu.Lock()
			defer mu.Unlock()
			if delivered {
				return false
			}
			delivered = true
			return true
		}
		for _, p := range ps {
			token := RunWithCallback(p, sched, CallbackFunc[A]{
				Success: func(a A) {
					if claim() {
						cb.OnSuccess(a)
					}
				},
				Error: func(err error) {
					if claim() {
						cb.OnError(err)
					}
				},
			})
			scope.Push(token)
		}
	})
}

// Sequence runs every Program in ps in order, collecting their results
// into a single slice. A failure anywhere stops the remaining programs
// from starting.
func Sequence[A any](ps []Program[A]) Program[[]A] {
	acc := Now([]A{})
	for _, p := range ps {
		pp := p
		acc = FlatMap(acc, func(xs []A) Program[[]A] {
			return FlatMap(pp, func(x A) Program[[]A] {
				out := make([]A, len(xs), len(xs)+1)
				copy(out, xs)
				return Now(append(out, x))
			})
		})
	}
	return acc
}

// sleep is an Async that resolves after d elapses, canceled along with its
// scope. It is UnsafeAsync rather than Async because Scheduler.ScheduleOnce
// is already inherently asynchronous — wrapping it in a forced
// sched.Execute hop first would add a redundant scheduling round trip.
func sleep(d time.Duration) Program[struct{}] {
	return UnsafeAsync(func(sched Scheduler, scope *StackedCancelable, cb Callback[struct{}]) {
		token := sched.ScheduleOnce(d, func() {
			if scope.IsCanceled() {
				return
			}
			cb.OnSuccess(struct{}{})
		})
		scope.Push(token)
	})
}

// Delay runs p after waiting for d to elapse.
func Delay[A any](p Program[A], d time.Duration) Program[A] {
	return FlatMap(sleep(d), func(struct{}) Program[A] { return p })
}

// errTimeout is the failure Timeout produces when its deadline elapses
// before p does.
func errTimeout(d time.Duration) error {
	return fmt.Errorf("task: timed out after %s", d)
}

// Timeout fails with a timeout error if p does not complete within d;
// whichever of p or the deadline resolves first wins, per
// FirstCompletedOf's race semantics.
func Timeout[A any](p Program[A], d time.Duration) Program[A] {
	deadline := FlatMap(sleep(d), func(struct{}) Program[A] { return Fail[A](errTimeout(d)) })
	return FirstCompletedOf([]Program[A]{p, deadline})
}
