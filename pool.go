// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import "sync"

// runnableTask pools the boxed closures GoroutineScheduler submits to
// goroutines, the same acquire/release-with-zeroing discipline the
// teacher's effectFramePool/bindFramePool/thenFramePool apply to Expr
// evaluation frames — generalised from three frame-shaped pools to the one
// shape this package actually allocates per dispatch: a bare runnable.
type runnableTask struct {
	fn func()
}

var runnableTaskPool = sync.Pool{New: func() any { return new(runnableTask) }}

// acquireRunnableTask fills a pooled runnableTask with fn.
func acquireRunnableTask(fn func()) *runnableTask {
	t := runnableTaskPool.Get().(*runnableTask)
	t.fn = fn
	return t
}

// releaseRunnableTask zeroes and returns t to the pool.
func releaseRunnableTask(t *runnableTask) {
	t.fn = nil
	runnableTaskPool.Put(t)
}
