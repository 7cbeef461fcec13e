// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upkeep-sh/upkeep/pkg/task"
)

// fakeRun resolves tasks by name without spawning anything: names ending
// in "-fail" fail, everything else succeeds.
func fakeRun(ctx context.Context, t *task.Task) task.Result {
	res := task.Result{Task: t.Name, Status: task.StatusSuccess}
	if strings.HasSuffix(t.Name, "-fail") {
		res.Status = task.StatusFailed
		res.ExitCode = 1
		res.Detail = "exited with code 1"
	}
	return res
}

func enabledTask(name string, required bool) task.Task {
	return task.Task{Name: name, Command: []string{"true"}, Required: required, Enabled: true}
}

func resultNames(results []task.Result) []string {
	names := make([]string, len(results))
	for i, res := range results {
		names[i] = res.Task
	}
	return names
}

func TestExecuteSequentialAbortsOnRequiredFailure(t *testing.T) {
	e := NewExecutor(Options{})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{
		Name:    "g",
		Enabled: true,
		Tasks: []task.Task{
			enabledTask("a", true),
			enabledTask("b-fail", true),
			enabledTask("c", true),
		},
	}}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeFailedRequired, report.Outcome)
	require.Len(t, report.Groups, 1)
	// "c" was never evaluated: a sequential abort produces no result at all
	// for the remaining tasks.
	require.Equal(t, []string{"a", "b-fail"}, resultNames(report.Groups[0].Results))
	require.Equal(t, GroupHasRequiredFailure, report.Groups[0].Outcome)
}

func TestExecuteSequentialContinuesPastOptionalFailure(t *testing.T) {
	e := NewExecutor(Options{})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{
		Name:    "g",
		Enabled: true,
		Tasks: []task.Task{
			enabledTask("a-fail", false),
			enabledTask("b", true),
		},
	}}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeSucceeded, report.Outcome)
	require.Equal(t, []string{"a-fail", "b"}, resultNames(report.Groups[0].Results))
	require.Equal(t, GroupHasOptionalFailures, report.Groups[0].Outcome)
}

func TestExecuteParallelWaitsForAllAndKeepsOrder(t *testing.T) {
	e := NewExecutor(Options{})
	var mu sync.Mutex
	resolved := 0
	e.run = func(ctx context.Context, tk *task.Task) task.Result {
		// First task is slowest so completion order differs from declared
		// order.
		if tk.Name == "a-fail" {
			time.Sleep(100 * time.Millisecond)
		}
		mu.Lock()
		resolved++
		mu.Unlock()
		return fakeRun(ctx, tk)
	}

	p := &Plan{Groups: []Group{{
		Name:     "g",
		Enabled:  true,
		Parallel: true,
		Tasks: []task.Task{
			enabledTask("a-fail", true),
			enabledTask("b", false),
			enabledTask("c", true),
		},
	}}}

	report := e.Execute(context.Background(), p)

	// A required failure in a parallel group never interrupts siblings.
	require.Equal(t, 3, resolved)
	require.Equal(t, []string{"a-fail", "b", "c"}, resultNames(report.Groups[0].Results))
	require.Equal(t, OutcomeFailedRequired, report.Outcome)
}

func TestExecuteSkipOptionalOnError(t *testing.T) {
	e := NewExecutor(Options{SkipOptionalOnError: true})
	e.run = fakeRun

	p := &Plan{Groups: []Group{
		{
			Name:    "first",
			Enabled: true,
			Tasks:   []task.Task{enabledTask("a-fail", true)},
		},
		{
			Name:    "second",
			Enabled: true,
			Tasks: []task.Task{
				enabledTask("opt", false),
				enabledTask("req", true),
			},
		},
	}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeFailedRequired, report.Outcome)
	second := report.Groups[1].Results
	require.Len(t, second, 2)

	require.Equal(t, task.StatusSkipped, second[0].Status)
	require.Equal(t, "upstream required failure", second[0].Detail)
	// Required tasks still run under fail-fast.
	require.Equal(t, task.StatusSuccess, second[1].Status)
}

func TestExecuteWithoutSkipOptionalStillRunsLaterGroups(t *testing.T) {
	e := NewExecutor(Options{})
	e.run = fakeRun

	p := &Plan{Groups: []Group{
		{Name: "first", Enabled: true, Tasks: []task.Task{enabledTask("a-fail", true)}},
		{Name: "second", Enabled: true, Tasks: []task.Task{enabledTask("opt", false)}},
	}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeFailedRequired, report.Outcome)
	require.Equal(t, task.StatusSuccess, report.Groups[1].Results[0].Status)
}

func TestExecuteParallelLimitIsRunWide(t *testing.T) {
	e := NewExecutor(Options{ParallelLimit: 2})

	var inFlight, peak int64
	e.run = func(ctx context.Context, tk *task.Task) task.Result {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return task.Result{Task: tk.Name, Status: task.StatusSuccess}
	}

	tasks := make([]task.Task, 0, 6)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		tasks = append(tasks, enabledTask(name, false))
	}
	p := &Plan{Groups: []Group{{Name: "g", Enabled: true, Parallel: true, Tasks: tasks}}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeSucceeded, report.Outcome)
	require.Len(t, report.Groups[0].Results, 6)
	require.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestExecuteForceParallelOverride(t *testing.T) {
	peak := func(opts Options, tasks []task.Task) int64 {
		e := NewExecutor(opts)
		var inFlight, max int64
		e.run = func(ctx context.Context, tk *task.Task) task.Result {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&max)
				if n <= old || atomic.CompareAndSwapInt64(&max, old, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return task.Result{Task: tk.Name, Status: task.StatusSuccess}
		}
		p := &Plan{Groups: []Group{{Name: "g", Enabled: true, Tasks: tasks}}}
		e.Execute(context.Background(), p)
		return atomic.LoadInt64(&max)
	}

	plain := []task.Task{enabledTask("a", false), enabledTask("b", false), enabledTask("c", false)}
	require.Greater(t, peak(Options{ForceParallel: true}, plain), int64(1))

	// A group containing an escalated task keeps its declared order even
	// under the global override.
	sudo := enabledTask("root", false)
	sudo.Sudo = true
	withSudo := []task.Task{sudo, enabledTask("b", false), enabledTask("c", false)}
	require.Equal(t, int64(1), peak(Options{ForceParallel: true}, withSudo))
}

func TestExecuteDryRunSimulatesEverything(t *testing.T) {
	e := NewExecutor(Options{DryRun: true})

	p := &Plan{Groups: []Group{{
		Name:    "g",
		Enabled: true,
		Tasks: []task.Task{
			{Name: "ghost", Command: []string{"no-such-binary-upkeep"}, Required: true, Enabled: true},
		},
	}}}

	report := e.Execute(context.Background(), p)

	require.Equal(t, OutcomeSucceeded, report.Outcome)
	require.True(t, report.DryRun)
	res := report.Groups[0].Results[0]
	require.Equal(t, task.StatusSuccess, res.Status)
	require.True(t, res.Simulated)
}

func TestExecuteAuthenticatesWithoutDeclaredSudoTasks(t *testing.T) {
	calls := 0
	e := NewExecutor(Options{Authenticate: func() task.CredentialSession {
		calls++
		return nil
	}})
	e.run = fakeRun

	// No task here is declared sudo; the handshake must still happen,
	// since commands can escalate indirectly.
	p := &Plan{Groups: []Group{{Name: "g", Enabled: true, Tasks: []task.Task{enabledTask("a", true)}}}}
	e.Execute(context.Background(), p)

	require.Equal(t, 1, calls)
}

func TestExecuteDryRunCreatesNoCredentialSession(t *testing.T) {
	calls := 0
	e := NewExecutor(Options{DryRun: true, Authenticate: func() task.CredentialSession {
		calls++
		return nil
	}})

	p := &Plan{Groups: []Group{{Name: "g", Enabled: true, Tasks: []task.Task{enabledTask("a", true)}}}}
	e.Execute(context.Background(), p)

	require.Zero(t, calls)
}

func TestExecuteCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(Options{})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{Name: "g", Enabled: true, Tasks: []task.Task{enabledTask("a", true)}}}}
	report := e.Execute(ctx, p)

	require.Equal(t, OutcomeAborted, report.Outcome)
	require.Empty(t, report.Groups)
}

func TestExecuteSkipsDisabledGroupsAndTasks(t *testing.T) {
	e := NewExecutor(Options{})
	e.run = fakeRun

	off := enabledTask("off", false)
	off.Enabled = false
	p := &Plan{Groups: []Group{
		{Name: "disabled", Enabled: false, Tasks: []task.Task{enabledTask("never", true)}},
		{Name: "g", Enabled: true, Tasks: []task.Task{off, enabledTask("on", true)}},
	}}

	report := e.Execute(context.Background(), p)

	require.Len(t, report.Groups, 1)
	require.Equal(t, []string{"on"}, resultNames(report.Groups[0].Results))
}

func TestExecuteSkipsIneligibleTask(t *testing.T) {
	e := NewExecutor(Options{})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{
		Name:    "g",
		Enabled: true,
		Tasks: []task.Task{{
			Name:         "needs-tool",
			Command:      []string{"true"},
			Required:     false,
			Enabled:      true,
			CheckCommand: "no-such-tool-upkeep",
		}},
	}}}

	report := e.Execute(context.Background(), p)

	res := report.Groups[0].Results[0]
	require.Equal(t, task.StatusSkipped, res.Status)
	require.Equal(t, "missing command: no-such-tool-upkeep", res.Detail)
	require.Equal(t, OutcomeSucceeded, report.Outcome)
}

func TestExecuteObserverSeesEveryResult(t *testing.T) {
	var events []Event
	e := NewExecutor(Options{Observer: func(ev Event) { events = append(events, ev) }})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{
		Name:     "g",
		Enabled:  true,
		Parallel: true,
		Tasks:    []task.Task{enabledTask("a", true), enabledTask("b", true)},
	}}}

	e.Execute(context.Background(), p)
	require.Len(t, events, 2)
	for _, ev := range events {
		require.Equal(t, "g", ev.Group)
	}
}

type recordNotifier struct {
	mu       sync.Mutex
	timedOut []string
	failed   []string
}

func (n *recordNotifier) TaskTimedOut(group, taskName string, timeout time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timedOut = append(n.timedOut, taskName)
}

func (n *recordNotifier) RequiredTaskFailed(group, taskName, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, taskName)
}

func TestExecuteNotifiesOnRequiredFailure(t *testing.T) {
	notifier := &recordNotifier{}
	e := NewExecutor(Options{Notifier: notifier})
	e.run = fakeRun

	p := &Plan{Groups: []Group{{
		Name:    "g",
		Enabled: true,
		Tasks: []task.Task{
			enabledTask("opt-fail", false),
			enabledTask("req-fail", true),
		},
	}}}

	e.Execute(context.Background(), p)
	require.Equal(t, []string{"req-fail"}, notifier.failed)
	require.Empty(t, notifier.timedOut)
}
