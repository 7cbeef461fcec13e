// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package credential

import (
	"errors"
	"os/exec"
	"strings"
)

// sudoer abstracts the sudo probes so the manager can be tested without a
// privileged environment.
type sudoer interface {
	// Available reports whether sudo exists on the search path.
	Available() bool
	// CachedTimestamp reports whether sudo accepts non-interactive use,
	// i.e. a prior authentication is still valid.
	CachedTimestamp() bool
	// Authenticate validates the password and refreshes the sudo
	// timestamp. ok=false means sudo rejected the password.
	Authenticate(password string) (ok bool, err error)
}

type systemSudo struct{}

func (systemSudo) Available() bool {
	_, err := exec.LookPath("sudo")
	return err == nil
}

func (systemSudo) CachedTimestamp() bool {
	// "sudo -n true" exits nonzero instead of prompting when the
	// timestamp has expired.
	return exec.Command("sudo", "-n", "true").Run() == nil
}

func (systemSudo) Authenticate(password string) (bool, error) {
	cmd := exec.Command("sudo", "-S", "-v")
	cmd.Stdin = strings.NewReader(password + "\n")
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}
