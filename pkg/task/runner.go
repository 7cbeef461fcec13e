// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gocmd "github.com/go-cmd/cmd"
)

// DefaultTimeout applies to tasks without an explicit timeout.
const DefaultTimeout = 5 * time.Minute

// Lines of child output retained per stream. Output beyond this is
// discarded oldest-first so a chatty task cannot grow memory unbounded.
const tailLimit = 40

// How long a terminated process group gets to exit before the runner
// escalates to a forced kill.
const defaultKillGrace = 3 * time.Second

// CredentialSession is the read side of the run's sudo session. It is
// immutable after the initial Authenticated/Declined transition, so
// concurrent runners may share it freely.
type CredentialSession interface {
	Authenticated() bool
	// Refresh re-validates the sudo timestamp before an escalated command
	// runs. Best effort; a failure surfaces through the command itself.
	Refresh()
}

// Runner executes a single task as an isolated child process. The child
// never runs under a shell interpreter and never inherits stdin, so a task
// that unexpectedly prompts blocks against an empty stream and is caught
// by the timeout instead of hanging the run.
type Runner struct {
	DryRun  bool
	Session CredentialSession
	// KillGrace bounds the wait for a terminated process group to exit
	// before escalating to a forced kill. Zero means the default.
	KillGrace time.Duration
}

// Run executes the task and returns its Result. Task-level failures are
// always contained in the Result; Run never returns an error.
func (r *Runner) Run(ctx context.Context, t *Task) Result {
	res := Result{Task: t.Name, Status: StatusFailed, ExitCode: -1}

	if len(t.Command) == 0 {
		res.Detail = "empty command"
		return res
	}

	if r.DryRun {
		// Simulated success, no process is spawned.
		return Result{Task: t.Name, Status: StatusSuccess, Simulated: true}
	}

	argv := append([]string(nil), t.Command...)
	if t.Sudo && argv[0] != "sudo" {
		argv = append([]string{"sudo"}, argv...)
	}
	if t.Sudo && r.Session != nil && r.Session.Authenticated() {
		r.Session.Refresh()
	}

	timeout := t.Timeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Streaming instead of buffered output so we can keep a bounded tail
	// of each stream while the process runs.
	c := gocmd.NewCmdOptions(gocmd.Options{Buffered: false, Streaming: true}, argv[0], argv[1:]...)
	if t.WorkingDir != "" {
		c.Dir = ExpandHome(t.WorkingDir)
	}
	if len(t.Env) > 0 {
		env := os.Environ()
		for k, v := range t.Env {
			env = append(env, k+"="+v)
		}
		c.Env = env
	}

	start := time.Now()
	statusChan := c.Start()

	var stdout, stderr tailBuffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Done when both streaming channels have been closed.
		for c.Stdout != nil || c.Stderr != nil {
			select {
			case line, open := <-c.Stdout:
				if !open {
					c.Stdout = nil
					continue
				}
				stdout.add(line)
			case line, open := <-c.Stderr:
				if !open {
					c.Stderr = nil
					continue
				}
				stderr.add(line)
			}
		}
	}()

	var status gocmd.Status
	timedOut := false
	interrupted := false
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		interrupted = !timedOut
		// Stop terminates the whole process group, not just the
		// immediate child, so descendants cannot outlive the task.
		_ = c.Stop()

		grace := r.KillGrace
		if grace <= 0 {
			grace = defaultKillGrace
		}
		select {
		case status = <-statusChan:
		case <-time.After(grace):
			// The group ignored the termination signal; escalate so a
			// misbehaving child can never hang the run.
			forceKill(c.Status().PID)
			status = <-statusChan
		}
	}
	<-drained

	res.Duration = time.Since(start)
	res.Output = stdout.String()

	switch {
	case timedOut:
		res.Status = StatusTimedOut
		res.ExitCode = 0
		res.Detail = timeoutHint(t, timeout)
	case interrupted:
		res.Detail = "interrupted before completion"
	case status.Error != nil:
		// Spawn-level OS error: executable not found, permission, etc.
		res.Detail = status.Error.Error()
	case status.Exit == 0:
		res.Status = StatusSuccess
		res.ExitCode = 0
	default:
		res.ExitCode = status.Exit
		res.Detail = failureDetail(status.Exit, stderr.String())
	}
	return res
}

// SuggestsEscalation reports whether the command text looks like it
// escalates privileges on its own. Heuristic only; used for the timeout
// hint and the verbose-mode configuration warning.
func SuggestsEscalation(command []string) bool {
	return strings.Contains(strings.ToLower(strings.Join(command, " ")), "sudo")
}

func timeoutHint(t *Task, timeout time.Duration) string {
	hint := fmt.Sprintf("timed out after %s; the command may be waiting for input", timeout)
	if !t.Sudo && SuggestsEscalation(t.Command) {
		return hint + " (it appears to escalate privileges; consider setting sudo = true)"
	}
	return hint + " (consider raising the task timeout)"
}

func failureDetail(exit int, stderrExcerpt string) string {
	if stderrExcerpt == "" {
		return fmt.Sprintf("exited with code %d", exit)
	}
	return fmt.Sprintf("exited with code %d: %s", exit, stderrExcerpt)
}

// tailBuffer keeps the last tailLimit lines written to it.
type tailBuffer struct {
	lines     []string
	truncated bool
}

func (b *tailBuffer) add(line string) {
	if len(b.lines) == tailLimit {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:tailLimit-1]
		b.truncated = true
	}
	b.lines = append(b.lines, line)
}

func (b *tailBuffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	s := strings.Join(b.lines, "\n")
	if b.truncated {
		return "... " + s
	}
	return s
}
