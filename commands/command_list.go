// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/upkeep-sh/upkeep/pkg/cliui"
	"github.com/upkeep-sh/upkeep/pkg/config"
)

// NewCommandList prints every configured group and task, including
// disabled ones, so the output mirrors the config file rather than the
// effective plan.
func NewCommandList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured groups and tasks",
		RunE:  listCommandFunc,
	}
}

func listCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	for i, g := range cfg.Groups {
		if i > 0 {
			fmt.Println()
		}

		header := g.Name
		if g.Parallel {
			header += " " + cliui.DimStyle.Render("[parallel]")
		}
		if !boolValue(g.Enabled, true) {
			header += " " + cliui.SkipStyle.Render("[disabled]")
		}
		fmt.Println(cliui.TitleStyle.Render(header))
		if g.Description != "" {
			fmt.Println("  " + cliui.DimStyle.Render(g.Description))
		}

		for _, t := range g.Tasks {
			var markers []string
			if !boolValue(t.Required, true) {
				markers = append(markers, "optional")
			}
			if t.Sudo {
				markers = append(markers, "sudo")
			}
			if !boolValue(t.Enabled, true) {
				markers = append(markers, "disabled")
			}

			line := fmt.Sprintf("  %s", t.Name)
			if len(markers) > 0 {
				line += " " + cliui.SkipStyle.Render("["+strings.Join(markers, ", ")+"]")
			}
			fmt.Println(line)
			fmt.Println("    " + cliui.DimStyle.Render(strings.Join(t.Command, " ")))
		}
	}
	return nil
}

func boolValue(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
