// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/task"
)

func TestRunTryGetSyncResolvesSynchronousChainsInline(t *testing.T) {
	sched := newVirtualScheduler()
	p := task.Map(task.Now(3), func(x int) int { return x + 4 })
	v, err, pending := task.RunTryGetSync(p, sched)
	if pending != nil {
		t.Fatal("a purely synchronous chain must not fall back to a Future")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("got %d, want 7", v)
	}
}

func TestRunTryGetSyncReportsSynchronousFailure(t *testing.T) {
	sched := newVirtualScheduler()
	boom := errors.New("boom")
	_, err, pending := task.RunTryGetSync(task.Fail[int](boom), sched)
	if pending != nil {
		t.Fatal("expected no Future for a synchronous failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestRunTryGetSyncFallsBackToFutureAtAnAsyncBoundary(t *testing.T) {
	sched := task.NewDefaultGoroutineScheduler()
	p := task.Fork(task.Now(9))
	_, err, pending := task.RunTryGetSync(p, sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending == nil {
		t.Fatal("expected a Future after crossing an async boundary")
	}
	v, err := pending.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9 {
		t.Fatalf("got %d, want 9", v)
	}
}

func TestRunWithCallbackCancelTokenStopsDelivery(t *testing.T) {
	sched := task.NewDefaultGoroutineScheduler()
	gate := make(chan struct{})
	ran := make(chan struct{})
	started := make(chan struct{})
	delivered := false
	p := task.Fork(task.EvalAlways(func() int {
		close(started)
		<-gate
		close(ran)
		return 1
	}))
	token := task.RunWithCallback(p, sched, task.CallbackFunc[int]{
		Success: func(int) { delivered = true },
	})
	// Cancel only once the thunk is running: Fork's scheduled runnable
	// checks the scope first and would otherwise never start the thunk.
	<-started
	token.Cancel()
	close(gate)
	<-ran
	time.Sleep(10 * time.Millisecond) // give the (suppressed) delivery a chance to happen
	if delivered {
		t.Fatal("a canceled run must not deliver its result")
	}
}
