package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error {
	return r.err
}

// stubJob counts executions and optionally sleeps or fails
type stubJob struct {
	sleep   time.Duration
	fail    bool
	calls   *atomic.Int32
	running *atomic.Int32
	peak    *atomic.Int32
	started chan struct{}
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.calls != nil {
		j.calls.Add(1)
	}
	if j.running != nil {
		n := j.running.Add(1)
		defer j.running.Add(-1)
		for {
			old := j.peak.Load()
			if n <= old || j.peak.CompareAndSwap(old, n) {
				break
			}
		}
	}
	if j.started != nil {
		close(j.started)
	}
	if j.sleep > 0 {
		select {
		case <-time.After(j.sleep):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{err: errors.New("lookup failed")}
	}
	return &stubResult{}
}

// runAll submits jobs from a separate goroutine, closes the pool and
// collects every result
func runAll(pool *Pool, jobs []Job) []Result {
	go func() {
		defer pool.Close()
		for _, j := range jobs {
			if !pool.Submit(j) {
				return
			}
		}
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}
	return results
}

func TestNewPoolWithContext_Workers(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{5, 5},
		{0, 1},
		{-3, 1},
	}

	for _, tt := range tests {
		if got := NewPoolWithContext(context.Background(), tt.in).workers; got != tt.want {
			t.Errorf("NewPoolWithContext(%d) workers = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPoolWithContext(context.Background(), 2)
	pool.Start()

	var calls atomic.Int32
	jobs := make([]Job, 40)
	for i := range jobs {
		jobs[i] = &stubJob{calls: &calls}
	}

	results := runAll(pool, jobs)

	if len(results) != len(jobs) {
		t.Errorf("Expected %d results, got %d", len(jobs), len(results))
	}
	if calls.Load() != int32(len(jobs)) {
		t.Errorf("Expected %d executions, got %d", len(jobs), calls.Load())
	}
	if pool.Submit(&stubJob{}) {
		t.Error("Expected Submit after Close to be rejected")
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPoolWithContext(context.Background(), workers)
	pool.Start()

	var running, peak atomic.Int32
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = &stubJob{sleep: 5 * time.Millisecond, running: &running, peak: &peak}
	}

	runAll(pool, jobs)

	if peak.Load() > workers {
		t.Errorf("Peak concurrency %d exceeded %d workers", peak.Load(), workers)
	}
	if peak.Load() < 1 {
		t.Error("Expected at least one job to run")
	}
}

func TestPool_ReportsJobErrors(t *testing.T) {
	pool := NewPoolWithContext(context.Background(), 2)
	pool.Start()

	results := runAll(pool, []Job{&stubJob{fail: true}, &stubJob{}, &stubJob{fail: true}})

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("Expected 2 failed results, got %d", failed)
	}
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPoolWithContext(ctx, 1)
	pool.Start()

	cancel()

	if pool.Submit(&stubJob{}) {
		t.Error("Expected Submit on cancelled pool to be rejected")
	}
	pool.Shutdown()
}

func TestPool_ShutdownInterruptsRunningJob(t *testing.T) {
	pool := NewPoolWithContext(context.Background(), 2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&stubJob{sleep: 5 * time.Second, started: started})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not interrupt the running job")
	}

	if pool.Submit(&stubJob{}) {
		t.Error("Expected Submit after Shutdown to be rejected")
	}
}
