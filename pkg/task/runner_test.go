// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	r := &Runner{}
	res := r.Run(context.Background(), &Task{Name: "ok", Command: []string{"true"}, Enabled: true})

	require.Equal(t, StatusSuccess, res.Status)
	require.Equal(t, 0, res.ExitCode)
	require.False(t, res.Simulated)
}

func TestRunFailureCapturesExitCodeAndStderr(t *testing.T) {
	r := &Runner{}
	res := r.Run(context.Background(), &Task{
		Name:    "boom",
		Command: []string{"sh", "-c", "echo something broke >&2; exit 3"},
		Enabled: true,
	})

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, 3, res.ExitCode)
	require.Contains(t, res.Detail, "exited with code 3")
	require.Contains(t, res.Detail, "something broke")
}

func TestRunEnvAndWorkingDir(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{}
	res := r.Run(context.Background(), &Task{
		Name:       "env",
		Command:    []string{"sh", "-c", "echo $UPKEEP_PROBE; pwd"},
		Enabled:    true,
		Env:        map[string]string{"UPKEEP_PROBE": "probe-value"},
		WorkingDir: dir,
	})

	require.Equal(t, StatusSuccess, res.Status)
	require.Contains(t, res.Output, "probe-value")
	require.Contains(t, res.Output, filepath.Base(dir))
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	r := &Runner{}
	start := time.Now()
	res := r.Run(context.Background(), &Task{
		Name:       "slow",
		Command:    []string{"sleep", "30"},
		Enabled:    true,
		TimeoutSec: 1,
	})

	require.Equal(t, StatusTimedOut, res.Status)
	require.Contains(t, res.Detail, "timed out after 1s")
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunTimeoutEscalatesOnSignalIgnoringChild(t *testing.T) {
	r := &Runner{KillGrace: 500 * time.Millisecond}
	start := time.Now()
	res := r.Run(context.Background(), &Task{
		Name:       "stubborn",
		Command:    []string{"sh", "-c", `trap '' TERM; while :; do :; done`},
		Enabled:    true,
		TimeoutSec: 1,
	})

	require.Equal(t, StatusTimedOut, res.Status)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunTimeoutKillsDescendants(t *testing.T) {
	r := &Runner{}
	start := time.Now()
	res := r.Run(context.Background(), &Task{
		Name:       "nested",
		Command:    []string{"sh", "-c", "sleep 30 & wait"},
		Enabled:    true,
		TimeoutSec: 1,
	})

	require.Equal(t, StatusTimedOut, res.Status)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := &Runner{}
	res := r.Run(ctx, &Task{Name: "slow", Command: []string{"sleep", "30"}, Enabled: true})

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, "interrupted before completion", res.Detail)
}

func TestRunSpawnError(t *testing.T) {
	r := &Runner{}
	res := r.Run(context.Background(), &Task{Name: "ghost", Command: []string{"no-such-binary-upkeep"}, Enabled: true})

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, -1, res.ExitCode)
	require.NotEmpty(t, res.Detail)
}

func TestRunEmptyCommand(t *testing.T) {
	r := &Runner{}
	res := r.Run(context.Background(), &Task{Name: "empty", Enabled: true})

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, "empty command", res.Detail)
}

func TestRunDryRunSpawnsNothing(t *testing.T) {
	r := &Runner{DryRun: true}
	res := r.Run(context.Background(), &Task{Name: "nope", Command: []string{"no-such-binary-upkeep"}, Enabled: true})

	require.Equal(t, StatusSuccess, res.Status)
	require.True(t, res.Simulated)
	require.Zero(t, res.Duration)
}

func TestSuggestsEscalation(t *testing.T) {
	require.True(t, SuggestsEscalation([]string{"sudo", "apt", "upgrade"}))
	require.True(t, SuggestsEscalation([]string{"sh", "-c", "sudo systemctl restart foo"}))
	require.False(t, SuggestsEscalation([]string{"brew", "upgrade"}))
}

func TestTimeoutHintMentionsSudo(t *testing.T) {
	hint := timeoutHint(&Task{Command: []string{"sh", "-c", "sudo foo"}}, time.Minute)
	require.Contains(t, hint, "sudo = true")

	plain := timeoutHint(&Task{Command: []string{"brew", "upgrade"}}, time.Minute)
	require.Contains(t, plain, "raising the task timeout")
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	var b tailBuffer
	for i := 0; i < tailLimit+10; i++ {
		b.add(fmt.Sprintf("line %d", i))
	}

	out := b.String()
	require.Contains(t, out, fmt.Sprintf("line %d", tailLimit+9))
	require.NotContains(t, out, "line 0\n")
	require.True(t, len(out) > 0 && out[:4] == "... ")
}
