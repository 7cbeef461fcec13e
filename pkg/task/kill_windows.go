// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

//go:build windows

package task

import (
	"os/exec"
	"strconv"
)

// forceKill terminates the process tree. taskkill is more reliable than
// enumerating child processes manually.
func forceKill(pid int) {
	if pid <= 0 {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
