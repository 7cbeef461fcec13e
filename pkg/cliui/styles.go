// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package cliui provides the interactive terminal widgets and the shared
// styles used by the command layer. The execution engine never renders.
package cliui

import "github.com/charmbracelet/lipgloss"

var (
	promptStyle = lipgloss.NewStyle().MarginLeft(2)

	TitleStyle   = lipgloss.NewStyle().Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SkipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Faint(true)
)

// TerminalPrompter routes credential prompts through the interactive
// widgets. It satisfies the credential package's Prompter interface.
type TerminalPrompter struct{}

func (TerminalPrompter) Password(prompt string) (string, bool, error) {
	return Password(prompt)
}

func (TerminalPrompter) Confirm(prompt string, def bool) (bool, error) {
	return Confirm(prompt, def)
}
