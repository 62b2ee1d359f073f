package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/arthur-debert/dotup/pkg/graph"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	reasonAborted  = "aborted"
	reasonFailFast = "fail-fast"
)

// completion is the message a worker sends when its task ends
type completion struct {
	index  int
	result types.TaskResult
}

// run holds the state of one Executor.Run. Only the coordinator goroutine
// touches it.
type run struct {
	*Executor
	graph    *graph.Graph
	links    LinkRunner
	jobs     int
	failFast bool

	status  []types.TaskStatus
	waiting []int // unfinished prerequisites per task
	queue   []int
	report  *types.RunReport
	stopped string
}

func newRun(e *Executor, g *graph.Graph, linkRunner LinkRunner, jobs int, failFast bool) *run {
	r := &run{
		Executor: e,
		graph:    g,
		links:    linkRunner,
		jobs:     jobs,
		failFast: failFast,
		status:   make([]types.TaskStatus, g.Len()),
		waiting:  make([]int, g.Len()),
		report:   &types.RunReport{Tasks: make([]types.TaskResult, 0, g.Len())},
	}
	for i := range r.status {
		r.status[i] = types.StatusPending
		r.waiting[i] = len(g.Prerequisites(i))
	}
	r.queue = g.Ready(make([]bool, g.Len()))
	return r
}

func (r *run) execute(ctx context.Context) *types.RunReport {
	r.report.StartedAt = r.now()

	// Handlers never see cancellation: a task that started is allowed to
	// reach a consistent end.
	workCtx := context.WithoutCancel(ctx)
	done := make(chan completion, r.graph.Len())
	var pool errgroup.Group
	pool.SetLimit(r.jobs)

	inFlight := 0
	for len(r.report.Tasks) < r.graph.Len() {
		if r.stopped == "" && ctx.Err() != nil {
			r.stopped = reasonAborted
			r.report.Aborted = true
		}
		for r.stopped == "" && inFlight < r.jobs && len(r.queue) > 0 {
			i := r.queue[0]
			r.queue = r.queue[1:]
			r.transition(i, types.StatusRunning, "")
			inFlight++
			pool.Go(func() error {
				done <- r.work(workCtx, i)
				return nil
			})
		}

		if r.stopped != "" {
			r.skipPending()
		}
		if inFlight == 0 {
			if len(r.report.Tasks) < r.graph.Len() {
				// Unreachable for a validated acyclic graph.
				r.logger.Error().Msg("No task can make progress")
				r.stopped = "internal error: no runnable task"
				r.skipPending()
			}
			break
		}

		abort := ctx.Done()
		if r.stopped != "" {
			abort = nil
		}
		select {
		case c := <-done:
			inFlight--
			r.finish(c)
		case <-abort:
			r.logger.Warn().Int("in_flight", inFlight).Msg("Run aborted; waiting for running tasks")
		}
	}

	_ = pool.Wait()
	r.report.FinishedAt = r.now()
	return r.report
}

// work runs on a pool goroutine
func (r *run) work(ctx context.Context, i int) (c completion) {
	spec := r.graph.Spec(i)
	start := time.Now()
	c.index = i

	defer func() {
		if p := recover(); p != nil {
			taskLogger := logging.WithTask("executor", spec.ID)
			taskLogger.Error().
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("Task panicked")
			c.result = types.TaskResult{
				ID:     spec.ID,
				Kind:   spec.Kind,
				Status: types.StatusFailed,
				Reason: fmt.Sprintf("panic: %v", p),
			}
		}
		c.result.Duration = time.Since(start)
	}()

	c.result = r.dispatch(ctx, spec)
	return c
}

func (r *run) finish(c completion) {
	r.record(c.index, c.result)

	if c.result.Status == types.StatusFailed && r.failFast && r.stopped == "" {
		r.stopped = reasonFailFast
	}

	for _, d := range r.graph.Dependents(c.index) {
		if r.status[d] != types.StatusPending {
			continue
		}
		if c.result.Status != types.StatusSucceeded {
			r.skip(d, fmt.Sprintf("prerequisite %s %s", c.result.ID, c.result.Status))
			continue
		}
		r.waiting[d]--
		if r.waiting[d] == 0 {
			r.queue = append(r.queue, d)
		}
	}
}

// skip marks i and, transitively, its pending dependents Skipped
func (r *run) skip(i int, reason string) {
	if r.status[i] != types.StatusPending {
		return
	}
	spec := r.graph.Spec(i)
	r.record(i, types.TaskResult{ID: spec.ID, Kind: spec.Kind, Status: types.StatusSkipped, Reason: reason})
	for _, d := range r.graph.Dependents(i) {
		r.skip(d, fmt.Sprintf("prerequisite %s skipped", spec.ID))
	}
}

// skipPending skips every task that has not been dispatched
func (r *run) skipPending() {
	r.queue = nil
	for i := range r.status {
		if r.status[i] == types.StatusPending {
			spec := r.graph.Spec(i)
			r.record(i, types.TaskResult{ID: spec.ID, Kind: spec.Kind, Status: types.StatusSkipped, Reason: r.stopped})
		}
	}
}

// record moves i to its terminal status and appends it to the report
func (r *run) record(i int, result types.TaskResult) {
	r.transition(i, result.Status, result.Reason)
	r.report.Tasks = append(r.report.Tasks, result)
}

func (r *run) transition(i int, to types.TaskStatus, reason string) {
	spec := r.graph.Spec(i)
	from := r.status[i]
	r.status[i] = to
	r.sink.Emit(types.Event{
		Time:   r.now(),
		TaskID: spec.ID,
		Kind:   spec.Kind,
		From:   from,
		To:     to,
		Reason: reason,
	})
}
