// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/upkeep-sh/upkeep/pkg/task"
)

// GroupOutcome is the aggregate outcome of one group.
type GroupOutcome string

const (
	GroupAllOk               GroupOutcome = "all_ok"
	GroupHasOptionalFailures GroupOutcome = "optional_failures"
	GroupHasRequiredFailure  GroupOutcome = "required_failure"
)

// Outcome is the run-level outcome.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeFailedRequired Outcome = "failed_required"
	OutcomeAborted        Outcome = "aborted"
)

// GroupReport holds the results of one executed group. Disabled groups do
// not appear; tasks skipped by a sequential abort do not appear either.
type GroupReport struct {
	Name    string        `json:"group"`
	Outcome GroupOutcome  `json:"outcome"`
	Results []task.Result `json:"results"`
}

// Report is the immutable result set of one run, created once at run end
// and consumed by the reporting layer.
type Report struct {
	Outcome  Outcome       `json:"outcome"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	DryRun   bool          `json:"dry_run,omitempty"`
	Groups   []GroupReport `json:"groups"`
}

// Counts tallies results by status across all groups.
func (r *Report) Counts() (success, failed, skipped, timedOut int) {
	for _, g := range r.Groups {
		for _, res := range g.Results {
			switch res.Status {
			case task.StatusSuccess:
				success++
			case task.StatusFailed:
				failed++
			case task.StatusSkipped:
				skipped++
			case task.StatusTimedOut:
				timedOut++
			}
		}
	}
	return
}

// Longest returns the slowest resolved task, or nil for an empty report.
func (r *Report) Longest() *task.Result {
	var longest *task.Result
	for i := range r.Groups {
		for j := range r.Groups[i].Results {
			res := &r.Groups[i].Results[j]
			if longest == nil || res.Duration > longest.Duration {
				longest = res
			}
		}
	}
	return longest
}

// Failures returns every failed or timed-out result, in report order.
func (r *Report) Failures() []task.Result {
	var out []task.Result
	for _, g := range r.Groups {
		for _, res := range g.Results {
			if res.Status == task.StatusFailed || res.Status == task.StatusTimedOut {
				out = append(out, res)
			}
		}
	}
	return out
}

// WriteFile exports the report as YAML.
func (r *Report) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// groupOutcome derives the group aggregate after all its tasks resolved.
func groupOutcome(results []task.Result) GroupOutcome {
	outcome := GroupAllOk
	for _, res := range results {
		if res.Status != task.StatusFailed && res.Status != task.StatusTimedOut {
			continue
		}
		if res.Required {
			return GroupHasRequiredFailure
		}
		outcome = GroupHasOptionalFailures
	}
	return outcome
}
