// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

//go:build !windows

package task

import "syscall"

// forceKill delivers SIGKILL to the whole process group. The negative pid
// addresses the group, so descendants die with the immediate child.
func forceKill(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
