// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/upkeep-sh/upkeep/pkg/cliui"
	"github.com/upkeep-sh/upkeep/pkg/config"
	"github.com/upkeep-sh/upkeep/pkg/credential"
	"github.com/upkeep-sh/upkeep/pkg/notify"
	"github.com/upkeep-sh/upkeep/pkg/plan"
	"github.com/upkeep-sh/upkeep/pkg/runlog"
	"github.com/upkeep-sh/upkeep/pkg/task"
)

var (
	dryRun        bool
	onlyGroups    []string
	skipGroups    []string
	jobs          int
	forceParallel bool
	force         bool
	reportFile    string
)

// NewCommandRun executes the configured task groups.
func NewCommandRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured maintenance tasks",
		RunE:  runCommandFunc,
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would run without executing anything")
	cmd.Flags().StringSliceVarP(&onlyGroups, "groups", "g", nil, "run only the named groups")
	cmd.Flags().StringSliceVarP(&skipGroups, "skip-groups", "x", nil, "skip the named groups")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "override the global parallel task limit")
	cmd.Flags().BoolVarP(&forceParallel, "parallel", "p", false, "run all groups in parallel mode (sudo groups stay sequential)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	cmd.Flags().StringVar(&reportFile, "report", "", "write a YAML run report to the given path")
	return cmd
}

func runCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cfg.Settings.Verbose {
		verbose = true
	}

	p, err := cfg.BuildPlan(onlyGroups, skipGroups)
	if err != nil {
		return err
	}
	if p.TaskCount() == 0 {
		fmt.Println("No tasks to run!")
		return nil
	}

	warnIndirectEscalation(p)

	if dryRun && !quiet {
		fmt.Println(cliui.DimStyle.Render("Dry run: no commands will be executed."))
	}

	if !force && !quiet && !dryRun {
		ok, err := cliui.Confirm(fmt.Sprintf("Run %d tasks in %d groups?", p.TaskCount(), len(p.Groups)), true)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var runLog *runlog.Logger
	if path := cfg.LogFilePath(); path != "" {
		runLog, err = runlog.Open(path)
		if err != nil {
			// A broken log sink must not block maintenance.
			log.Printf("Warning: %v, continuing without a log file", err)
		}
		defer runLog.Close()
	}
	runLog.RunStarted(len(p.Groups), p.TaskCount(), dryRun)

	notifier := notify.New(cfg.Settings.DesktopNotifications && !quiet && !dryRun)

	// Authentication is proactive: it runs for every non-dry run, whether
	// or not any task is declared sudo, because a script can escalate on
	// its own and would otherwise hang against an empty stdin.
	manager := &credential.Manager{
		Label:            cfg.Settings.KeychainLabel,
		Store:            credential.KeyringStore{},
		OnAwaitingPrompt: notifier.AwaitingCredential,
		Logf:             printLog,
	}
	if !quiet {
		// Quiet runs keep the silent probes (cached timestamp, secret
		// store) but never block on an interactive prompt.
		manager.Prompt = cliui.TerminalPrompter{}
	}
	authenticate := func() task.CredentialSession {
		session := manager.Ensure()
		if session.State() == credential.StateDeclined {
			printLog("continuing without sudo; escalated tasks will fail on their own")
		}
		return session
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limit := int64(cfg.Settings.ParallelLimit)
	if jobs > 0 {
		limit = int64(jobs)
	}
	exec := plan.NewExecutor(plan.Options{
		DryRun:              dryRun,
		ParallelLimit:       limit,
		ForceParallel:       cfg.Settings.ParallelExecution || forceParallel,
		SkipOptionalOnError: cfg.Settings.SkipOptionalOnError,
		Authenticate:        authenticate,
		Notifier:            notifier,
		Observer: func(ev plan.Event) {
			runLog.TaskResolved(ev.Result)
			if !quiet {
				fmt.Println(renderResult(ev.Result))
			}
		},
	})

	report := exec.Execute(ctx, p)
	runLog.RunFinished(string(report.Outcome), report.Duration)

	if cfg.Settings.ShowSummary && !quiet {
		printSummary(report)
	}
	if reportFile != "" {
		if err := report.WriteFile(reportFile); err != nil {
			return err
		}
		printLog("report written to %s", reportFile)
	}

	switch report.Outcome {
	case plan.OutcomeSucceeded:
		success, _, _, _ := report.Counts()
		notifier.RunCompleted(success, report.Duration)
		return nil
	case plan.OutcomeAborted:
		return fmt.Errorf("run aborted")
	default:
		return fmt.Errorf("one or more required tasks failed")
	}
}

// warnIndirectEscalation flags tasks whose command text mentions sudo but
// are not declared sudo = true. Those bypass the proactive authentication
// and tend to hang until their timeout.
func warnIndirectEscalation(p *plan.Plan) {
	for _, g := range p.Groups {
		for _, t := range g.Tasks {
			if !t.Sudo && task.SuggestsEscalation(t.Command) {
				printLog("task %q (%s) appears to escalate privileges; consider setting sudo = true", t.Name, g.Name)
			}
		}
	}
}

func renderResult(res task.Result) string {
	name := fmt.Sprintf("%s / %s", res.Group, res.Task)
	dur := cliui.DimStyle.Render(fmt.Sprintf("(%s)", res.Duration.Round(10*time.Millisecond)))

	switch res.Status {
	case task.StatusSuccess:
		if res.Simulated {
			return fmt.Sprintf("  %s %s %s", cliui.SuccessStyle.Render("✓"), name, cliui.DimStyle.Render("(dry run)"))
		}
		return fmt.Sprintf("  %s %s %s", cliui.SuccessStyle.Render("✓"), name, dur)
	case task.StatusSkipped:
		return fmt.Sprintf("  %s %s %s", cliui.SkipStyle.Render("-"), name, cliui.DimStyle.Render("skipped: "+res.Detail))
	case task.StatusTimedOut:
		return fmt.Sprintf("  %s %s %s", cliui.FailStyle.Render("✗"), name, cliui.FailStyle.Render(res.Detail))
	default:
		return fmt.Sprintf("  %s %s %s %s", cliui.FailStyle.Render("✗"), name, dur, cliui.FailStyle.Render(res.Detail))
	}
}

func printSummary(report *plan.Report) {
	success, failed, skipped, timedOut := report.Counts()

	fmt.Println()
	fmt.Println(cliui.TitleStyle.Render("Summary"))
	fmt.Printf("  %d succeeded, %d failed, %d skipped, %d timed out in %s\n",
		success, failed, skipped, timedOut, report.Duration.Round(10*time.Millisecond))

	if longest := report.Longest(); longest != nil && !report.DryRun {
		fmt.Printf("  slowest: %s / %s (%s)\n", longest.Group, longest.Task, longest.Duration.Round(10*time.Millisecond))
	}

	failures := report.Failures()
	if len(failures) > 0 {
		fmt.Println()
		fmt.Println(cliui.FailStyle.Render("Failures"))
		for _, res := range failures {
			fmt.Printf("  %s / %s: %s\n", res.Group, res.Task, res.Detail)
			if verbose && res.Output != "" {
				fmt.Println(indent(res.Output, "    "))
			}
		}
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
