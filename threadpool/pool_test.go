/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4, nil, nil)
	defer p.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()

	if got := count.Load(); got != 100 {
		t.Fatalf("ran %d tasks, want 100", got)
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := New(2, nil, func(string, ...any) {})
	defer p.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	// Give the replacement goroutine a moment to start before proving the
	// pool is still at full strength.
	time.Sleep(10 * time.Millisecond)

	var ran atomic.Bool
	var wg2 sync.WaitGroup
	wg2.Add(1)
	p.Submit(func() {
		defer wg2.Done()
		ran.Store(true)
	})
	wg2.Wait()

	if !ran.Load() {
		t.Fatal("pool did not recover from a panicking task")
	}
}

func TestSubmitNeverBlocksWhenWorkersBusy(t *testing.T) {
	p := New(2, nil, nil)
	defer p.Stop()

	block := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for i := 0; i < 2; i++ {
		p.Submit(func() {
			started.Done()
			<-block
		})
	}
	started.Wait()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			p.Submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked with every worker busy and an unbounded queue")
	}

	close(block)
}

func TestPoolWorkerInitRunsPerWorker(t *testing.T) {
	var inits atomic.Int64
	p := New(3, func() { inits.Add(1) }, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() { wg.Done() })
	}
	wg.Wait()
	p.Stop()

	if got := inits.Load(); got != 3 {
		t.Fatalf("workerInit ran %d times, want 3 (one per worker)", got)
	}
}
