// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import "sync"

// memoAttempt is the resolved outcome of a memoized evaluation: exactly one
// of value/err is meaningful, mirroring the Now/Fail duality of a Program's
// own terminal nodes.
type memoAttempt[A any] struct {
	value A
	err   error
}

// memoizedNode shares the outcome of a single evaluation of source across
// every run that subscribes to it, however many there are and whatever
// scope each run was started in. The first subscriber starts source running
// in a scope of its own, independent of any individual waiter's scope, so
// that one waiter canceling its run never tears down the computation the
// other waiters are still depending on (§7.6). There is no teacher
// analogue — kont's Expr/Cont programs are pure and rerun on every
// evaluation — so the state machine here is built fresh from spec.md,
// reusing only the mutex-guarded-slice-of-waiters shape already used by
// StackedCancelable for its own one-many fan-out.
type memoizedNode[A any] struct {
	mu       sync.Mutex
	source   Program[A] // cleared once resolved
	started  bool
	resolved bool
	attempt  memoAttempt[A]
	waiters  []memoWaiter[A]
}

type memoWaiter[A any] struct {
	scope *StackedCancelable
	cb    Callback[A]
}

func (n *memoizedNode[A]) program(A) {}

// Memoize wraps p so that its underlying computation runs at most once
// across all concurrent runs of the result; every subscriber observes the
// same outcome. Memoizing an already-memoized Program returns it unchanged
// (Memoize is idempotent).
func Memoize[A any](p Program[A]) Program[A] {
	if m, ok := p.(*memoizedNode[A]); ok {
		return m
	}
	return &memoizedNode[A]{source: p}
}

// subscribe registers cb, under waiterScope, for this node's eventual
// outcome. If the node is already resolved, cb is invoked immediately
// (without a scheduler hop — the value is simply already known), unless
// waiterScope is already canceled. Otherwise cb is queued and, on the very
// first subscription, source is scheduled for evaluation in a scope private
// to this node, so a later cancellation of any one waiterScope only
// silences delivery to that waiter and never aborts the shared evaluation.
func (n *memoizedNode[A]) subscribe(sched Scheduler, waiterScope *StackedCancelable, cb Callback[A]) {
	n.mu.Lock()
	if n.resolved {
		attempt := n.attempt
		n.mu.Unlock()
		if !waiterScope.IsCanceled() {
			deliverAttempt(cb, attempt)
		}
		return
	}
	n.waiters = append(n.waiters, memoWaiter[A]{scope: waiterScope, cb: cb})
	shouldStart := !n.started
	source := n.source
	if shouldStart {
		n.started = true
	}
	n.mu.Unlock()

	if !shouldStart {
		return
	}

	erasedSource := eraseProgram[A](source)
	evalScope := NewStackedCancelable()
	sched.Execute(func() {
		runLoopErased(erasedSource, sched, evalScope, CallbackFunc[Erased]{
			Success: func(v Erased) { n.complete(memoAttempt[A]{value: v.(A)}) },
			Error:   func(err error) { n.complete(memoAttempt[A]{err: err}) },
		}, sched.ExecutionModel().initialFrameIndex())
	})
}

func (n *memoizedNode[A]) complete(attempt memoAttempt[A]) {
	n.mu.Lock()
	if n.resolved {
		n.mu.Unlock()
		return
	}
	n.resolved = true
	n.attempt = attempt
	waiters := n.waiters
	n.waiters = nil
	n.source = nil
	n.mu.Unlock()

	for _, w := range waiters {
		if w.scope.IsCanceled() {
			continue
		}
		deliverAttempt(w.cb, attempt)
	}
}

func deliverAttempt[A any](cb Callback[A], attempt memoAttempt[A]) {
	if attempt.err != nil {
		cb.OnError(attempt.err)
		return
	}
	cb.OnSuccess(attempt.value)
}
