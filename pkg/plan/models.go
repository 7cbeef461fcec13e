// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package plan turns a validated run plan into a concurrency-bounded,
// fault-isolated run. Groups execute strictly in declared order; tasks
// inside a parallel group share the run-wide slot budget.
package plan

import (
	"fmt"

	"github.com/upkeep-sh/upkeep/pkg/task"
)

// Plan is the ordered, immutable sequence of groups for one run. It is
// owned by the executor for the duration of the run.
type Plan struct {
	Groups []Group
}

// Group is a named collection of tasks sharing an execution mode.
type Group struct {
	Name        string
	Description string
	Enabled     bool
	Parallel    bool
	Tasks       []task.Task
}

// TaskCount returns the number of enabled tasks across enabled groups.
func (p *Plan) TaskCount() int {
	n := 0
	for _, g := range p.Groups {
		if !g.Enabled {
			continue
		}
		for _, t := range g.Tasks {
			if t.Enabled {
				n++
			}
		}
	}
	return n
}

// Validate rejects malformed plans before anything executes. An enabled
// task with an empty command vector is a configuration error, not a
// runtime failure.
func (p *Plan) Validate() error {
	seen := make(map[string]bool, len(p.Groups))
	for _, g := range p.Groups {
		if g.Name == "" {
			return fmt.Errorf("group with empty name")
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate group name %q", g.Name)
		}
		seen[g.Name] = true

		for _, t := range g.Tasks {
			if t.Name == "" {
				return fmt.Errorf("group %q: task with empty name", g.Name)
			}
			if t.Enabled && len(t.Command) == 0 {
				return fmt.Errorf("group %q: task %q is enabled but has no command", g.Name, t.Name)
			}
		}
	}
	return nil
}
