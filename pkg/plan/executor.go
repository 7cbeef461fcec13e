// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/upkeep-sh/upkeep/pkg/task"
)

// DefaultParallelLimit bounds concurrently running task processes when the
// config does not say otherwise.
const DefaultParallelLimit = 4

const upstreamFailureReason = "upstream required failure"

// Event is one resolved task, streamed to the reporting layer as the run
// progresses. The observer may be called from concurrent workers.
type Event struct {
	Group  string
	Result task.Result
}

// Notifier receives the discrete signals the notification layer renders as
// one-line desktop alerts. Implementations must tolerate concurrent calls.
type Notifier interface {
	TaskTimedOut(group, taskName string, timeout time.Duration)
	RequiredTaskFailed(group, taskName, detail string)
}

// Options configures one run.
type Options struct {
	DryRun bool
	// ParallelLimit is the run-wide cap on in-flight task processes.
	ParallelLimit int64
	// ForceParallel runs groups concurrently even when not flagged
	// parallel, except groups containing sudo tasks, which keep their
	// declared order.
	ForceParallel bool
	// SkipOptionalOnError preemptively skips optional tasks in later
	// groups once a required task has failed.
	SkipOptionalOnError bool
	Session             task.CredentialSession
	// Authenticate performs the proactive credential handshake. Invoked
	// once before the first group of every run that is not a dry run,
	// regardless of whether any task is declared sudo: escalation can
	// happen indirectly inside a script, and with stdin redirected away
	// such a command would hang on a hidden prompt instead of using a
	// stored credential.
	Authenticate func() task.CredentialSession
	Observer     func(Event)
	Notifier     Notifier
}

// Executor sequences groups and owns the global concurrency budget.
type Executor struct {
	opts   Options
	sem    *semaphore.Weighted
	runner *task.Runner

	// run is the task runner; replaceable in tests.
	run func(ctx context.Context, t *task.Task) task.Result

	// failFast flips once a required task has failed with
	// SkipOptionalOnError set. Written only between groups and at
	// sequential task boundaries, before any later task is submitted.
	failFast bool

	emitMu sync.Mutex
}

func NewExecutor(opts Options) *Executor {
	limit := opts.ParallelLimit
	if limit <= 0 {
		limit = DefaultParallelLimit
	}
	runner := &task.Runner{DryRun: opts.DryRun, Session: opts.Session}
	return &Executor{
		opts:   opts,
		sem:    semaphore.NewWeighted(limit),
		runner: runner,
		run:    runner.Run,
	}
}

// Execute runs the plan and assembles the final report. Task failures are
// contained in results; Execute itself cannot fail.
func (e *Executor) Execute(ctx context.Context, p *Plan) *Report {
	report := &Report{Started: time.Now(), DryRun: e.opts.DryRun}
	requiredFailed := false

	// Dry runs never create a credential session.
	if !e.opts.DryRun && e.opts.Authenticate != nil {
		e.runner.Session = e.opts.Authenticate()
	}

	for i := range p.Groups {
		g := &p.Groups[i]
		if !g.Enabled {
			// Disabled groups are entirely absent from the result set.
			continue
		}
		if ctx.Err() != nil {
			break
		}

		var results []task.Result
		if e.isParallel(g) {
			results = e.runParallel(ctx, g)
		} else {
			results = e.runSequential(ctx, g)
		}

		outcome := groupOutcome(results)
		report.Groups = append(report.Groups, GroupReport{Name: g.Name, Outcome: outcome, Results: results})

		if outcome == GroupHasRequiredFailure {
			requiredFailed = true
			if e.opts.SkipOptionalOnError {
				e.failFast = true
			}
		}
	}

	report.Duration = time.Since(report.Started)
	switch {
	case ctx.Err() != nil:
		report.Outcome = OutcomeAborted
	case requiredFailed:
		report.Outcome = OutcomeFailedRequired
	default:
		report.Outcome = OutcomeSucceeded
	}
	return report
}

func (e *Executor) isParallel(g *Group) bool {
	if g.Parallel {
		return true
	}
	if !e.opts.ForceParallel {
		return false
	}
	// The global parallel override never reorders escalated commands.
	for _, t := range g.Tasks {
		if t.Enabled && t.Sudo {
			return false
		}
	}
	return true
}

// runSequential executes tasks strictly in declared order. A failure of a
// required task aborts the remainder of the group: later tasks are not
// evaluated and produce no results.
func (e *Executor) runSequential(ctx context.Context, g *Group) []task.Result {
	var results []task.Result
	for i := range g.Tasks {
		t := &g.Tasks[i]
		if !t.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		res := e.runTask(ctx, g, t)
		results = append(results, res)

		if t.Required && (res.Status == task.StatusFailed || res.Status == task.StatusTimedOut) {
			if e.opts.SkipOptionalOnError {
				e.failFast = true
			}
			break
		}
	}
	return results
}

// runParallel submits every enabled task at once against the shared slot
// budget and waits for all of them; already-started siblings are never
// interrupted by a peer's failure. Results come back in declared order so
// reporting stays deterministic.
func (e *Executor) runParallel(ctx context.Context, g *Group) []task.Result {
	indices := make([]int, 0, len(g.Tasks))
	for i := range g.Tasks {
		if g.Tasks[i].Enabled {
			indices = append(indices, i)
		}
	}

	results := make([]task.Result, len(indices))
	var wg sync.WaitGroup
	for slot, idx := range indices {
		wg.Add(1)
		go func(slot int, t *task.Task) {
			defer wg.Done()
			results[slot] = e.runTask(ctx, g, t)
		}(slot, &g.Tasks[idx])
	}
	wg.Wait()
	return results
}

// runTask resolves one enabled task: fail-fast skip, precondition
// evaluation, slot acquisition, then execution.
func (e *Executor) runTask(ctx context.Context, g *Group, t *task.Task) task.Result {
	res := task.Result{Task: t.Name, Group: g.Name, Required: t.Required}

	if e.failFast && !t.Required {
		res.Status = task.StatusSkipped
		res.Detail = upstreamFailureReason
		e.emit(g.Name, res)
		return res
	}

	if elig := task.Evaluate(t); !elig.Eligible {
		res.Status = task.StatusSkipped
		res.Detail = elig.Reason
		e.emit(g.Name, res)
		return res
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		res.Status = task.StatusFailed
		res.ExitCode = -1
		res.Detail = "interrupted before start"
		e.emit(g.Name, res)
		return res
	}
	run := e.run(ctx, t)
	e.sem.Release(1)

	run.Task = t.Name
	run.Group = g.Name
	run.Required = t.Required

	if e.opts.Notifier != nil {
		switch {
		case run.Status == task.StatusTimedOut:
			e.opts.Notifier.TaskTimedOut(g.Name, t.Name, t.Timeout())
		case run.Status == task.StatusFailed && t.Required:
			e.opts.Notifier.RequiredTaskFailed(g.Name, t.Name, run.Detail)
		}
	}

	e.emit(g.Name, run)
	return run
}

func (e *Executor) emit(group string, res task.Result) {
	if e.opts.Observer == nil {
		return
	}
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.opts.Observer(Event{Group: group, Result: res})
}
