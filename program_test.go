// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task_test

import (
	"context"
	"errors"
	"testing"

	"code.hybscloud.com/task"
)

func mustGet[A any](t *testing.T, fut *task.Future[A]) A {
	t.Helper()
	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestNowResolvesWithItsValue(t *testing.T) {
	sched := newVirtualScheduler()
	fut, _ := task.RunAsFuture(task.Now(42), sched)
	if v := mustGet(t, fut); v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestFailDeliversItsError(t *testing.T) {
	sched := newVirtualScheduler()
	boom := errors.New("boom")
	fut, _ := task.RunAsFuture(task.Fail[int](boom), sched)
	_, err := fut.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestFlatMapSequencesInOrder(t *testing.T) {
	sched := newVirtualScheduler()
	p := task.FlatMap(task.Now(2), func(x int) task.Program[int] {
		return task.FlatMap(task.Now(x*3), func(y int) task.Program[int] {
			return task.Now(y + 1)
		})
	})
	fut, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut); v != 7 {
		t.Fatalf("got %d, want 7", v)
	}
}

func TestFlatMapShortCircuitsOnFailure(t *testing.T) {
	sched := newVirtualScheduler()
	boom := errors.New("boom")
	called := false
	p := task.FlatMap(task.Fail[int](boom), func(x int) task.Program[int] {
		called = true
		return task.Now(x)
	})
	fut, _ := task.RunAsFuture(p, sched)
	_, err := fut.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if called {
		t.Fatal("continuation must not run after a failure")
	}
}

func TestMapAppliesPureFunction(t *testing.T) {
	sched := newVirtualScheduler()
	p := task.Map(task.Now(10), func(x int) int { return x * 2 })
	fut, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut); v != 20 {
		t.Fatalf("got %d, want 20", v)
	}
}

func TestEvalOnceCachesAcrossRuns(t *testing.T) {
	sched := newVirtualScheduler()
	calls := 0
	p := task.EvalOnce(func() int { calls++; return calls })
	fut1, _ := task.RunAsFuture(p, sched)
	fut2, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut1); v != 1 {
		t.Fatalf("first run = %d, want 1", v)
	}
	if v := mustGet(t, fut2); v != 1 {
		t.Fatalf("second run = %d, want 1 (cached)", v)
	}
	if calls != 1 {
		t.Fatalf("thunk ran %d times, want 1", calls)
	}
}

func TestEvalAlwaysRecomputesEveryRun(t *testing.T) {
	sched := newVirtualScheduler()
	calls := 0
	p := task.EvalAlways(func() int { calls++; return calls })
	fut1, _ := task.RunAsFuture(p, sched)
	fut2, _ := task.RunAsFuture(p, sched)
	v1 := mustGet(t, fut1)
	v2 := mustGet(t, fut2)
	if v1 == v2 {
		t.Fatalf("EvalAlways did not recompute: %d == %d", v1, v2)
	}
	if calls != 2 {
		t.Fatalf("thunk ran %d times, want 2", calls)
	}
}

func TestSuspendDefersConstruction(t *testing.T) {
	sched := newVirtualScheduler()
	built := false
	p := task.Suspend(func() task.Program[int] {
		built = true
		return task.Now(5)
	})
	if built {
		t.Fatal("Suspend must not build its inner program eagerly")
	}
	fut, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut); v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
	if !built {
		t.Fatal("Suspend's thunk should have run by the time the result resolves")
	}
}

func TestUserThunkPanicBecomesFailure(t *testing.T) {
	sched := newVirtualScheduler()
	p := task.EvalAlways(func() int { panic("kaboom") })
	fut, _ := task.RunAsFuture(p, sched)
	_, err := fut.Wait(context.Background())
	if err == nil {
		t.Fatal("expected a failure, got none")
	}
}

func TestLongFlatMapChainDoesNotOverflowTheStack(t *testing.T) {
	sched := newVirtualScheduler()
	var p task.Program[int] = task.Now(0)
	const depth = 200000
	for i := 0; i < depth; i++ {
		p = task.FlatMap(p, func(x int) task.Program[int] { return task.Now(x + 1) })
	}
	fut, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut); v != depth {
		t.Fatalf("got %d, want %d", v, depth)
	}
}

func TestAsyncRegistersThroughTheScheduler(t *testing.T) {
	sched := newVirtualScheduler()
	p := task.Async(func(sched task.Scheduler, scope *task.StackedCancelable, cb task.Callback[int]) {
		cb.OnSuccess(99)
	})
	fut, _ := task.RunAsFuture(p, sched)
	if v := mustGet(t, fut); v != 99 {
		t.Fatalf("got %d, want 99", v)
	}
}

func TestNeverNeverCompletes(t *testing.T) {
	sched := newVirtualScheduler()
	fut, cancel := task.RunAsFuture(task.Never[int](), sched)
	select {
	case <-fut.Done():
		t.Fatal("Never must not complete")
	default:
	}
	cancel.Cancel()
}

func TestForkDefersEvaluationUntilRun(t *testing.T) {
	sched := newVirtualScheduler()
	order := []string{}
	p := task.Fork(task.EvalAlways(func() int {
		order = append(order, "inside")
		return 1
	}))
	order = append(order, "before-run")
	fut, _ := task.RunAsFuture(p, sched)
	mustGet(t, fut)
	order = append(order, "after-run")
	if len(order) != 3 || order[0] != "before-run" {
		t.Fatalf("unexpected ordering: %v", order)
	}
}
