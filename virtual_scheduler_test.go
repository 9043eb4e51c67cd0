// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task_test

import (
	"container/heap"
	"sync"
	"time"

	"code.hybscloud.com/task"
)

// virtualScheduler is a deterministic, test-only Scheduler: Execute runs
// inline on whatever goroutine submits it (not in a fresh goroutine, so
// tests can assert ordering without synchronization), and ScheduleOnce
// parks runnables on a virtual clock advanced explicitly by advance. It has
// no teacher analogue — kont has no notion of time or deferred execution —
// so it is built fresh to give the timed combinators (Delay, Timeout) a
// test double that does not depend on wall-clock scheduling.
type virtualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending timerHeap
	seq     int
	failed  []error
}

type timerEntry struct {
	at       time.Time
	seq      int
	runnable func()
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newVirtualScheduler() *virtualScheduler {
	return &virtualScheduler{now: time.Unix(0, 0)}
}

func (s *virtualScheduler) Execute(runnable func()) {
	runnable()
}

type virtualTimerToken struct {
	s   *virtualScheduler
	e   *timerEntry
}

func (t *virtualTimerToken) Cancel() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.e.canceled = true
}

func (s *virtualScheduler) ScheduleOnce(d time.Duration, runnable func()) task.CancelToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e := &timerEntry{at: s.now.Add(d), seq: s.seq, runnable: runnable}
	heap.Push(&s.pending, e)
	return &virtualTimerToken{s: s, e: e}
}

func (s *virtualScheduler) ReportFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *virtualScheduler) ExecutionModel() task.ExecutionModel {
	return task.NewBatchedExecutionModel(64)
}

// advance moves the virtual clock forward by d, firing every timer whose
// deadline has been reached, in deadline order.
func (s *virtualScheduler) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	target := s.now
	var due []*timerEntry
	for s.pending.Len() > 0 && !s.pending[0].at.After(target) {
		e := heap.Pop(&s.pending).(*timerEntry)
		if !e.canceled {
			due = append(due, e)
		}
	}
	s.mu.Unlock()
	for _, e := range due {
		e.runnable()
	}
}
