// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"fmt"
	"time"
)

// Task is one external command plus its execution policy. It is built by
// the config loader and never mutated during a run.
type Task struct {
	Name         string            `json:"name"`
	Command      []string          `json:"command"`
	Required     bool              `json:"required"`
	Sudo         bool              `json:"sudo"`
	Enabled      bool              `json:"enabled"`
	CheckCommand string            `json:"check_command,omitempty"`
	CheckPath    string            `json:"check_path,omitempty"`
	TimeoutSec   int               `json:"timeout,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	WorkingDir   string            `json:"working_dir,omitempty"`
	Description  string            `json:"description,omitempty"`
}

// Timeout returns the effective timeout for the task.
func (t *Task) Timeout() time.Duration {
	if t.TimeoutSec > 0 {
		return time.Duration(t.TimeoutSec) * time.Second
	}
	return DefaultTimeout
}

// Status is the terminal state of a task execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusSkipped
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON renders the status as its lowercase name so exported reports
// stay readable.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Result is the outcome of exactly one enabled task. Exactly one Result is
// produced per enabled task per run; disabled tasks produce none.
type Result struct {
	Task     string        `json:"task"`
	Group    string        `json:"group"`
	Required bool          `json:"required,omitempty"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	// ExitCode is the child exit code for failed results, -1 for spawn
	// errors and signal terminations.
	ExitCode int `json:"exit_code,omitempty"`
	// Detail carries the skip reason, a bounded stderr excerpt, or the
	// timeout hint, depending on Status.
	Detail string `json:"detail,omitempty"`
	// Output is a bounded tail of the child stdout, kept for the run log
	// only.
	Output string `json:"-"`
	// Simulated marks dry-run results. No process was spawned.
	Simulated bool `json:"simulated,omitempty"`
}
