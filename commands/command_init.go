// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/upkeep-sh/upkeep/pkg/cliui"
	"github.com/upkeep-sh/upkeep/pkg/config"
)

var initForce bool

// NewCommandInit writes a starter config file.
func NewCommandInit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter config file",
		RunE:  initCommandFunc,
	}
	cmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file without asking")
	return cmd
}

func initCommandFunc(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		overwrite, err := cliui.Confirm(fmt.Sprintf("%s already exists, overwrite?", path), false)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.DefaultTOML), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Edit it to match your machine, then run 'upkeep run'.")
	return nil
}
