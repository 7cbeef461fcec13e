// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package runlog appends a trace of task executions to a file. It is a
// pure side effect: nothing here feeds back into results.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/upkeep-sh/upkeep/pkg/task"
)

// Logger writes timestamped task lines to an append-only file. All
// methods are safe on a nil receiver so the sink stays optional.
type Logger struct {
	log  *logrus.Logger
	file *os.File
}

// Open creates the log directory if needed and opens the file in append
// mode.
func Open(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(file)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Logger{log: log, file: file}, nil
}

func (l *Logger) RunStarted(groups, tasks int, dryRun bool) {
	if l == nil {
		return
	}
	if dryRun {
		l.log.Infof("run started (dry run): %d groups, %d tasks", groups, tasks)
		return
	}
	l.log.Infof("run started: %d groups, %d tasks", groups, tasks)
}

func (l *Logger) TaskResolved(res task.Result) {
	if l == nil {
		return
	}
	entry := l.entry(res.Group, res.Task).WithField("duration", res.Duration.Round(time.Millisecond).String())
	switch res.Status {
	case task.StatusSuccess:
		if res.Simulated {
			entry.Info("success (dry run)")
		} else {
			entry.Info("success")
		}
	case task.StatusSkipped:
		entry.Infof("skipped: %s", res.Detail)
	case task.StatusTimedOut:
		entry.Errorf("timed out: %s", res.Detail)
	default:
		entry.Errorf("failed: %s", res.Detail)
		if res.Output != "" {
			entry.Infof("output tail:\n%s", res.Output)
		}
	}
}

func (l *Logger) RunFinished(outcome string, duration time.Duration) {
	if l == nil {
		return
	}
	l.log.WithField("duration", duration.Round(time.Millisecond).String()).Infof("run finished: %s", outcome)
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) entry(group, taskName string) *logrus.Entry {
	return l.log.WithFields(logrus.Fields{"group": group, "task": taskName})
}
