// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

// bindFrame is one pending continuation on the run-loop's explicit bind
// stack: a value not yet produced will, once it is, be handed to this
// closure to build the next Program node.
type bindFrame = func(Erased) Program[Erased]

// runLoopErased is the iterative interpreter for an already-erased Program
// tree — the counterpart of the teacher's evalFrames, restructured around
// bind/register nodes instead of frame chains. It is the entry point every
// run function and Memoize's subscriber call; the stack itself is threaded
// through runBindStack, which every asynchronous continuation resumes
// into with its captured stack rather than starting over.
func runLoopErased(p Program[Erased], sched Scheduler, scope *StackedCancelable, cb Callback[Erased], frameIndex int32) {
	runBindStack(p, nil, sched, scope, cb, frameIndex)
}

// runBindStack dispatches current, pushing onto stack on every bind node and
// popping on every resolved value, per §4.4's rewrite table:
//
//	Now(a) with stack empty:    deliver a
//	Now(a) with k on stack:     pop k; current := attempt(k(a))
//	Fail(e):                    deliver e, stack discarded (k is never invoked)
//	BindSync(th, k):            push k; current := attempt(th())
//	BindAsync(reg, k):          push k; register reg, resuming into the
//	                            captured stack once it completes
//
// current is updated in place and the loop re-dispatches; it returns on
// cancellation, on delivery to cb, at an async hand-off, and at a
// frame-budget yield, where the pending current/stack pair is resubmitted
// through the scheduler. It
// never calls FlatMap at run time — unlike FlatMap's own build-time
// rewrite, which composes two continuations into a fresh closure, this
// loop does not need to reconstruct the program tree, only walk it.
func runBindStack(current Program[Erased], stack []bindFrame, sched Scheduler, scope *StackedCancelable, cb Callback[Erased], frameIndex int32) {
	model := sched.ExecutionModel()
	for {
		if scope.IsCanceled() {
			return
		}

		switch n := current.(type) {
		case nowNode[Erased]:
			if len(stack) == 0 {
				cb.OnSuccess(n.value)
				return
			}
			k := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			current = attemptCall(func() Program[Erased] { return k(n.value) })

		case failNode[Erased]:
			cb.OnError(n.err)
			return

		case evalOnceNode[Erased]:
			v, err := n.cell.evaluate()
			if err != nil {
				cb.OnError(err)
				return
			}
			current = nowNode[Erased]{value: v}

		case evalAlwaysNode[Erased]:
			v, err := callThunk(n.thunk)
			if err != nil {
				cb.OnError(err)
				return
			}
			current = nowNode[Erased]{value: v}

		case suspendNode[Erased]:
			current = attemptCall(n.thunk)

		case bindSyncNode[Erased]:
			stack = append(stack, n.k)
			current = attemptCall(n.thunk)

		case asyncNode[Erased]:
			capturedStack := stack
			n.register(sched, scope, CallbackFunc[Erased]{
				Success: func(v Erased) {
					runBindStack(nowNode[Erased]{value: v}, capturedStack, sched, scope, cb, model.initialFrameIndex())
				},
				Error: cb.OnError,
			})
			return

		case bindAsyncNode[Erased]:
			stack = append(stack, n.k)
			capturedStack := stack
			n.register(sched, scope, CallbackFunc[Erased]{
				Success: func(v Erased) {
					runBindStack(nowNode[Erased]{value: v}, capturedStack, sched, scope, cb, model.initialFrameIndex())
				},
				Error: cb.OnError,
			})
			return

		default:
			panic("task: unknown program node in run-loop")
		}

		frameIndex = model.NextFrameIndex(frameIndex)
		if model.shouldYield(frameIndex) {
			pendingCurrent := current
			pendingStack := stack
			resume := frameIndex
			if resume <= 0 {
				resume = model.initialFrameIndex()
			}
			sched.Execute(func() {
				if scope.IsCanceled() {
					return
				}
				runBindStack(pendingCurrent, pendingStack, sched, scope, cb, resume)
			})
			return
		}
	}
}
