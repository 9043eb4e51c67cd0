// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import "sync"

// Erased represents a type-erased value at a bind boundary. Program node
// continuations are typed Erased -> Program[Erased] internally; soundness
// holds because only values produced by the predecessor node ever reach a
// continuation, and that continuation is known at build time to consume
// exactly that type.
type Erased = any

// Program is an immutable description of a possibly-asynchronous
// computation. It is one of a fixed set of node kinds (Now, Fail,
// EvalOnce, EvalAlways, Suspend, a bind-over-sync node, Async, a
// bind-over-async node, or a memoized node). Program values are never
// mutated after construction; FlatMap always produces a new node.
type Program[A any] interface {
	program(A) // unexported marker method; mentioning A lets callers' type arguments be inferred from a Program[A]
}

// nowNode is a resolved success.
type nowNode[A any] struct{ value A }

func (nowNode[A]) program(A) {}

// failNode is a resolved failure.
type failNode[A any] struct{ err error }

func (failNode[A]) program(A) {}

// onceCell backs EvalOnce: the thunk runs at most once and is discarded
// after caching, guarded by a mutex rather than a richer promise —
// EvalOnce's thunk is assumed to be a plain synchronous computation, not
// one that itself suspends, so a single critical section is sufficient.
type onceCell[A any] struct {
	mu    sync.Mutex
	done  bool
	value A
	err   error
	thunk func() A
}

func (c *onceCell[A]) evaluate() (A, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.value, c.err
	}
	v, err := callThunk(c.thunk)
	c.value, c.err = v, err
	c.done = true
	c.thunk = nil
	return v, err
}

// evalOnceNode is lazy, cached on first run across all runs sharing this node.
type evalOnceNode[A any] struct{ cell *onceCell[A] }

func (evalOnceNode[A]) program(A) {}

// evalAlwaysNode is lazy, recomputed on every run.
type evalAlwaysNode[A any] struct{ thunk func() A }

func (evalAlwaysNode[A]) program(A) {}

// suspendNode defers construction of the next node until run.
type suspendNode[A any] struct{ thunk func() Program[A] }

func (suspendNode[A]) program(A) {}

// bindSyncNode is the normalised result of FlatMap over a sync node.
type bindSyncNode[A any] struct {
	thunk func() Program[Erased]
	k     func(Erased) Program[A]
}

func (bindSyncNode[A]) program(A) {}

// asyncRegister registers a callback with the scheduler; it may complete
// the callback at most once. scope is the run's current cancellation
// scope, available so the register function can push child tokens.
type asyncRegister func(sched Scheduler, scope *StackedCancelable, cb Callback[Erased])

// asyncNode registers an asynchronous completion.
type asyncNode[A any] struct{ register asyncRegister }

func (asyncNode[A]) program(A) {}

// bindAsyncNode is the normalised result of FlatMap over an async node.
type bindAsyncNode[A any] struct {
	register asyncRegister
	k        func(Erased) Program[A]
}

func (bindAsyncNode[A]) program(A) {}

// Now lifts a resolved success value into a Program.
func Now[A any](a A) Program[A] { return nowNode[A]{value: a} }

// Fail lifts a resolved failure into a Program.
func Fail[A any](err error) Program[A] { return failNode[A]{err: err} }

// Unit is a Program that resolves immediately with no meaningful value.
func Unit() Program[struct{}] { return Now(struct{}{}) }

// Never is a Program that never completes and never invokes its callback.
func Never[A any]() Program[A] {
	return asyncNode[A]{register: func(Scheduler, *StackedCancelable, Callback[Erased]) {}}
}

// EvalOnce creates a lazy computation cached on first run; after caching,
// thunk is discarded, and every subsequent run of this Program (including
// concurrent ones) observes the cached outcome.
func EvalOnce[A any](thunk func() A) Program[A] {
	return evalOnceNode[A]{cell: &onceCell[A]{thunk: thunk}}
}

// EvalAlways creates a lazy computation recomputed on every run.
func EvalAlways[A any](thunk func() A) Program[A] { return evalAlwaysNode[A]{thunk: thunk} }

// Suspend defers construction of the next Program node until run.
func Suspend[A any](thunk func() Program[A]) Program[A] { return suspendNode[A]{thunk: thunk} }

// Defer is an alias for Suspend, matching the builder-surface name used
// by most callers ("defer the construction of the next step").
func Defer[A any](thunk func() Program[A]) Program[A] { return Suspend(thunk) }

// UnsafeAsync creates an asynchronous Program whose register function is
// invoked directly, on whatever goroutine reaches the async boundary —
// unlike Async, it makes no forced-hop guarantee.
func UnsafeAsync[A any](register func(sched Scheduler, scope *StackedCancelable, cb Callback[A])) Program[A] {
	erased := func(sched Scheduler, scope *StackedCancelable, cb Callback[Erased]) {
		register(sched, scope, adaptCallback[A](cb))
	}
	return asyncNode[A]{register: erased}
}

// Async creates an asynchronous Program whose register function is always
// submitted through the scheduler first, so register never runs on the
// caller's thread — the "forced async" contract of §4.5.
func Async[A any](register func(sched Scheduler, scope *StackedCancelable, cb Callback[A])) Program[A] {
	forced := func(sched Scheduler, scope *StackedCancelable, cb Callback[Erased]) {
		sched.Execute(func() {
			if scope.IsCanceled() {
				return
			}
			register(sched, scope, adaptCallback[A](cb))
		})
	}
	return asyncNode[A]{register: forced}
}

// adaptCallback recovers a typed Callback[A] view over an erased callback.
type erasedCallback[A any] struct{ inner Callback[Erased] }

func (c erasedCallback[A]) OnSuccess(a A) { c.inner.OnSuccess(Erased(a)) }
func (c erasedCallback[A]) OnError(err error) { c.inner.OnError(err) }

func adaptCallback[A any](cb Callback[Erased]) Callback[A] { return erasedCallback[A]{inner: cb} }

// eraseProgram converts Program[A] to Program[Erased], used when a bind
// boundary needs to store a heterogeneous continuation chain.
func eraseProgram[A any](p Program[A]) Program[Erased] {
	return FlatMap[A, Erased](p, func(a A) Program[Erased] { return nowNode[Erased]{value: Erased(a)} })
}

// FlatMap sequences p with a continuation k, normalising the result at
// build time so that an arbitrarily long chain of binds is always
// re-associated to the right — this is what keeps the run-loop iterative
// instead of recursive. See the rewrite table in the package design notes.
func FlatMap[A, B any](p Program[A], k func(A) Program[B]) Program[B] {
	switch n := p.(type) {
	case nowNode[A]:
		val := n.value
		return suspendNode[B]{thunk: func() Program[B] {
			return attemptCall(func() Program[B] { return k(val) })
		}}
	case failNode[A]:
		return failNode[B]{err: n.err} // short-circuit: k is never invoked
	case evalOnceNode[A]:
		cell := n.cell
		return suspendNode[B]{thunk: func() Program[B] {
			a, err := cell.evaluate()
			if err != nil {
				return failNode[B]{err: err}
			}
			return attemptCall(func() Program[B] { return k(a) })
		}}
	case evalAlwaysNode[A]:
		th := n.thunk
		return suspendNode[B]{thunk: func() Program[B] {
			a, err := callThunk(th)
			if err != nil {
				return failNode[B]{err: err}
			}
			return attemptCall(func() Program[B] { return k(a) })
		}}
	case suspendNode[A]:
		th := n.thunk
		return bindSyncNode[B]{
			thunk: func() Program[Erased] { return eraseProgram[A](th()) },
			k:     func(v Erased) Program[B] { return k(v.(A)) },
		}
	case bindSyncNode[A]:
		th := n.thunk
		g := n.k
		return suspendNode[B]{thunk: func() Program[B] {
			return bindSyncNode[B]{
				thunk: th,
				k:     func(x Erased) Program[B] { return FlatMap(g(x), k) },
			}
		}}
	case asyncNode[A]:
		reg := n.register
		return bindAsyncNode[B]{register: reg, k: func(v Erased) Program[B] { return k(v.(A)) }}
	case bindAsyncNode[A]:
		reg := n.register
		g := n.k
		return suspendNode[B]{thunk: func() Program[B] {
			return bindAsyncNode[B]{
				register: reg,
				k:        func(x Erased) Program[B] { return FlatMap(g(x), k) },
			}
		}}
	case *memoizedNode[A]:
		m := n
		return bindAsyncNode[B]{
			register: func(sched Scheduler, scope *StackedCancelable, cb Callback[Erased]) {
				m.subscribe(sched, scope, adaptCallback[A](cb))
			},
			k: func(v Erased) Program[B] { return k(v.(A)) },
		}
	default:
		panic("task: unknown program node in FlatMap")
	}
}

// Map applies a pure function to a Program's result.
// Map(p, f) ≡ FlatMap(p, func(a A) Program[B] { return Now(f(a)) }).
func Map[A, B any](p Program[A], f func(A) B) Program[B] {
	return FlatMap(p, func(a A) Program[B] { return Now(f(a)) })
}

// Then sequences p before n, discarding p's result.
func Then[A, B any](p Program[A], n Program[B]) Program[B] {
	return FlatMap(p, func(A) Program[B] { return n })
}

// Fork guarantees an asynchronous boundary at the start of p. If p is
// already asynchronous, or is a not-yet-started memoized node (whose own
// start will schedule), it is returned unchanged; otherwise it is wrapped
// in an Async that submits to the scheduler before resuming.
func Fork[A any](p Program[A]) Program[A] {
	switch n := p.(type) {
	case asyncNode[A], bindAsyncNode[A]:
		return p
	case *memoizedNode[A]:
		n.mu.Lock()
		started := n.started
		n.mu.Unlock()
		if !started {
			return p
		}
	}
	erasedProgram := eraseProgram[A](p)
	return asyncNode[A]{register: func(sched Scheduler, scope *StackedCancelable, cb Callback[Erased]) {
		sched.Execute(func() {
			if scope.IsCanceled() {
				return
			}
			runLoopErased(erasedProgram, sched, scope, cb, sched.ExecutionModel().initialFrameIndex())
		})
	}}
}
