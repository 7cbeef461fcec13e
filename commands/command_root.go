// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"github.com/spf13/cobra"
)

const (
	cliName        = "upkeep"
	cliDescription = "A declarative runner for recurring machine maintenance tasks"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	rootCmd = &cobra.Command{
		Use:          cliName,
		Short:        cliDescription,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-task output and the summary")

	rootCmd.AddCommand(
		NewCommandVersion(),
		NewCommandRun(),
		NewCommandList(),
		NewCommandInit(),
	)
}

func RootCmd() *cobra.Command {
	return rootCmd
}
