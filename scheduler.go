// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"log/slog"
	"time"
)

// Scheduler is the sole ambient capability a Program's run-loop is given.
// Nothing in this package reaches for a global executor: every asynchronous
// boundary, timer, and failure report flows through the Scheduler passed to
// RunWithCallback, RunAsFuture, or RunTryGetSync.
type Scheduler interface {
	// Execute submits runnable for asynchronous execution. It must not run
	// runnable synchronously on the calling goroutine.
	Execute(runnable func())

	// ScheduleOnce submits runnable for execution after d elapses, returning
	// a token that cancels the pending execution if it has not yet fired.
	ScheduleOnce(d time.Duration, runnable func()) CancelToken

	// ReportFailure is the sink for errors that have nowhere else to go:
	// panics from callback handlers, double-completion protocol violations,
	// panics from cancel tokens. It must never itself panic.
	ReportFailure(err error)

	// ExecutionModel returns the frame-budget policy the run-loop should
	// apply when dispatching this scheduler's work.
	ExecutionModel() ExecutionModel
}

// ExecutionModel governs how many program nodes the run-loop dispatches
// synchronously before it forces an asynchronous resubmission, bounding how
// much work a single tick of the trampoline performs regardless of chain
// length (§4.6).
type ExecutionModel struct {
	batchSize int32
}

// NewBatchedExecutionModel creates an ExecutionModel that yields back to the
// scheduler every batchSize dispatched nodes. A batchSize <= 0 means never
// yield on frame-count alone (only explicit Async/Fork boundaries yield).
func NewBatchedExecutionModel(batchSize int) ExecutionModel {
	return ExecutionModel{batchSize: int32(batchSize)}
}

// DefaultExecutionModel is a moderate batch size suitable for general use.
func DefaultExecutionModel() ExecutionModel { return NewBatchedExecutionModel(1024) }

func (m ExecutionModel) initialFrameIndex() int32 {
	return m.batchSize
}

// NextFrameIndex returns the frame index to use for the next dispatch,
// decrementing current. The run-loop forces a yield when this reaches zero
// or below, then resets to initialFrameIndex().
func (m ExecutionModel) NextFrameIndex(current int32) int32 {
	if m.batchSize <= 0 {
		return 1
	}
	return current - 1
}

func (m ExecutionModel) shouldYield(frameIndex int32) bool {
	return m.batchSize > 0 && frameIndex <= 0
}

// GoroutineScheduler is a production Scheduler that executes work on freshly
// spawned goroutines and timed work via time.AfterFunc. Failures reported
// through ReportFailure are logged via log/slog unless a Reporter is set.
type GoroutineScheduler struct {
	model ExecutionModel

	// Reporter receives errors passed to ReportFailure. Defaults to logging
	// via slog.Default() at error level when nil.
	Reporter func(err error)
}

// NewGoroutineScheduler creates a GoroutineScheduler with the given
// execution model.
func NewGoroutineScheduler(model ExecutionModel) *GoroutineScheduler {
	return &GoroutineScheduler{model: model}
}

// NewDefaultGoroutineScheduler creates a GoroutineScheduler using
// DefaultExecutionModel.
func NewDefaultGoroutineScheduler() *GoroutineScheduler {
	return NewGoroutineScheduler(DefaultExecutionModel())
}

func (s *GoroutineScheduler) Execute(runnable func()) {
	t := acquireRunnableTask(runnable)
	go func() {
		defer releaseRunnableTask(t)
		t.fn()
	}()
}

type timerToken struct {
	timer *time.Timer
}

func (t *timerToken) Cancel() {
	t.timer.Stop()
}

func (s *GoroutineScheduler) ScheduleOnce(d time.Duration, runnable func()) CancelToken {
	t := time.AfterFunc(d, runnable)
	return &timerToken{timer: t}
}

func (s *GoroutineScheduler) ReportFailure(err error) {
	if err == nil {
		return
	}
	if s.Reporter != nil {
		s.Reporter(err)
		return
	}
	slog.Default().Error("task: unhandled failure", slog.Any("error", err))
}

func (s *GoroutineScheduler) ExecutionModel() ExecutionModel {
	return s.model
}
