// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

// RunWithCallback runs p to completion, invoking cb at most once with the
// outcome. It returns a CancelToken that tears down the run's scope,
// converting any future dispatch into silent termination without invoking
// cb. This is the counterpart of the teacher's Run/RunWith, generalised
// from a pure identity continuation to an explicit two-armed Callback since
// a Program may complete asynchronously, on a goroutine other than the
// caller's.
func RunWithCallback[A any](p Program[A], sched Scheduler, cb Callback[A]) CancelToken {
	scope := NewStackedCancelable()
	scope.Sink = sched.ReportFailure
	safe := newSafeCallback[A](cb, sched)
	erased := eraseProgram[A](p)
	runLoopErased(erased, sched, scope, eraseCallback[A](safe), sched.ExecutionModel().initialFrameIndex())
	return scope
}

// RunAsFuture runs p to completion, returning a Future observing the
// outcome together with a CancelToken for the run.
func RunAsFuture[A any](p Program[A], sched Scheduler) (*Future[A], CancelToken) {
	scope := NewStackedCancelable()
	scope.Sink = sched.ReportFailure
	fut := newFuture[A](scope)
	cb := newSafeCallback[A](CallbackFunc[A]{
		Success: func(a A) { fut.complete(a, nil) },
		Error: func(err error) {
			var zero A
			fut.complete(zero, err)
		},
	}, sched)
	erased := eraseProgram[A](p)
	runLoopErased(erased, sched, scope, eraseCallback[A](cb), sched.ExecutionModel().initialFrameIndex())
	return fut, scope
}

// RunTryGetSync drives p until it either resolves without crossing an
// asynchronous boundary or does cross one. In the first case it returns the
// resolved value or error with a nil Future; in the second it returns a
// zero value, a nil error, and a non-nil Future carrying the remainder of
// the run. This is the Program counterpart of the teacher's Step: drive
// synchronously as far as possible, hand back a resumable handle exactly
// when synchronous progress runs out — except a Future has nothing left to
// resume, since unlike a Suspension it is not paused on a single effect
// waiting for a value, it is already running toward its own completion.
func RunTryGetSync[A any](p Program[A], sched Scheduler) (value A, err error, pending *Future[A]) {
	scope := NewStackedCancelable()
	scope.Sink = sched.ReportFailure
	fut := newFuture[A](scope)
	inline := &inlineCallback[A]{fut: fut}
	safe := newSafeCallback[A](inline, sched)
	erased := eraseProgram[A](p)
	runLoopErased(erased, sched, scope, eraseCallback[A](safe), sched.ExecutionModel().initialFrameIndex())

	v, e, resolvedInline := inline.settle()
	if resolvedInline {
		return v, e, nil
	}
	return value, nil, fut
}
