// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package task provides a lazy, composable description of a possibly
// asynchronous computation — a deferred effect — together with the
// run-loop that executes it.
//
// The core type [Program] represents a computation that, once run with a
// [Scheduler] and a [Callback], eventually yields either a success of some
// type or a failure carrying an error. Construction builds an immutable
// program tree; nothing executes until the program is explicitly run.
//
// # Design Philosophy
//
// task provides:
//   - A tagged sum of program node kinds, immutable once built
//   - Build-time rewrite rules that keep FlatMap associative and the
//     run-loop stack-safe regardless of chain depth
//   - A trampolining interpreter that folds a pending bind stack, crosses
//     asynchronous boundaries through an explicit [Scheduler], and
//     respects a per-run yield budget
//   - At-most-once memoization shared across arbitrary concurrent runs
//   - A second run-loop that returns a resolved value immediately when
//     possible, falling back to a cancelable [Future] on the first
//     asynchronous boundary
//
// # Program Algebra
//
// A [Program] is one of a fixed set of node kinds:
//
//   - [Now]: a resolved success
//   - [Fail]: a resolved failure
//   - [EvalOnce]: lazy, cached on first run
//   - [EvalAlways]: lazy, recomputed on every run
//   - [Suspend]: defers construction of the next node
//   - bind-over-sync and bind-over-async nodes, produced internally by
//     [FlatMap]
//   - [Async]: registers a callback with the scheduler
//   - a memoized node, produced by [Memoize]
//
// [FlatMap] never builds the raw composition of two arbitrary nodes;
// it rewrites at build time per the table in the package's design notes
// so that a left-leaning chain of binds is always re-associated to the
// right, keeping the interpreter iterative rather than recursive.
//
// # Running a Program
//
//   - [RunWithCallback]: run with a [Scheduler] and a [Callback], returns
//     a [CancelToken]
//   - [RunAsFuture]: run to a [Future] plus its [CancelToken]
//   - [RunTryGetSync]: try to resolve synchronously; falls back to a
//     [Future] on the first asynchronous boundary
//   - [Fork]: guarantee an asynchronous boundary at the start of a program
//
// # Cancellation
//
// [StackedCancelable] is an ordered stack of cancel tokens with a single
// atomic canceled flag. Cancellation is cooperative: the run-loop checks
// the flag before every async register and every scheduled resumption,
// converting cancellation into silent termination.
//
// # Memoization
//
// [Memoize] wraps a program so its underlying computation runs at most
// once across all concurrent runs of the result; every waiter observes
// the same outcome. The evaluation runs in a scope private to the memoized
// node, so canceling any waiter's run — including the first one's — only
// stops delivery to that waiter and never aborts the in-flight evaluation.
//
// # Combinators
//
// Built on the primitives above: [Map], [Materialize], [Dematerialize],
// [OnErrorHandleWith], [FromFuture], [MapBoth], [FirstCompletedOf],
// [Sequence], [Delay], [Timeout], [Bracket], [OnError].
//
// # Example
//
//	p := task.FlatMap(task.Now(2), func(x int) task.Program[int] {
//		return task.Now(x * 3)
//	})
//	p = task.Map(p, func(x int) int { return x + 1 })
//	fut, _ := task.RunAsFuture(p, sched)
//	v, err := fut.Wait(context.Background())
//	// v == 7, err == nil
package task
