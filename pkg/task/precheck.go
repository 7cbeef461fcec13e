// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"fmt"
	"os"
	"os/exec"
)

// Eligibility is the outcome of evaluating a task's preconditions.
type Eligibility struct {
	Eligible bool
	Reason   string
}

// Evaluate decides whether a task may run. It is a pure function of the
// task definition and the current PATH/filesystem state; both checks must
// pass when both are present.
func Evaluate(t *Task) Eligibility {
	if !t.Enabled {
		return Eligibility{Reason: "disabled"}
	}

	if t.CheckCommand != "" {
		if _, err := exec.LookPath(t.CheckCommand); err != nil {
			return Eligibility{Reason: fmt.Sprintf("missing command: %s", t.CheckCommand)}
		}
	}

	if t.CheckPath != "" {
		expanded := ExpandHome(t.CheckPath)
		if _, err := os.Stat(expanded); err != nil {
			return Eligibility{Reason: fmt.Sprintf("missing path: %s", t.CheckPath)}
		}
	}

	return Eligibility{Eligible: true}
}
