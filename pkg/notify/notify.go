// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package notify sends best-effort desktop notifications for the run
// events an unattended operator cares about. Delivery failures are
// swallowed; notifications never influence execution.
package notify

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
)

const maxDetailLen = 100

// Notifier dispatches desktop alerts. A nil or disabled Notifier is a
// no-op, so callers never need to guard.
type Notifier struct {
	enabled bool
}

func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

func (n *Notifier) on() bool {
	return n != nil && n.enabled
}

// AwaitingCredential fires right before the interactive password prompt.
func (n *Notifier) AwaitingCredential() {
	if !n.on() {
		return
	}
	_ = beeep.Notify("upkeep: sudo password required",
		"Some tasks need elevated privileges.\nCheck your terminal to authenticate.", "")
}

// TaskTimedOut warns that a task hit its timeout, which usually means a
// hidden interactive prompt.
func (n *Notifier) TaskTimedOut(group, taskName string, timeout time.Duration) {
	if !n.on() {
		return
	}
	_ = beeep.Alert("upkeep: task timed out",
		fmt.Sprintf("%s (%s) timed out after %s.\nIt may be waiting for input.", taskName, group, timeout), "")
}

// RequiredTaskFailed reports a failure that will fail the run.
func (n *Notifier) RequiredTaskFailed(group, taskName, detail string) {
	if !n.on() {
		return
	}
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}
	_ = beeep.Alert("upkeep: required task failed",
		fmt.Sprintf("%s (%s) failed:\n%s", taskName, group, detail), "")
}

// RunCompleted announces a fully successful run.
func (n *Notifier) RunCompleted(succeeded int, duration time.Duration) {
	if !n.on() {
		return
	}
	_ = beeep.Notify("upkeep: run complete",
		fmt.Sprintf("%d tasks completed successfully in %s.", succeeded, duration.Round(time.Second)), "")
}
