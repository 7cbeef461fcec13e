// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmModel struct {
	prompt   string
	def      bool
	choice   bool
	answered bool
	quitting bool
}

func (m *confirmModel) Init() tea.Cmd {
	return nil
}

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEscape:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		m.choice = m.def
		m.answered = true
		return m, tea.Quit
	}

	switch key.String() {
	case "y", "Y":
		m.choice = true
		m.answered = true
		return m, tea.Quit
	case "n", "N":
		m.choice = false
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *confirmModel) View() string {
	if m.answered || m.quitting {
		return ""
	}
	hint := "y/N"
	if m.def {
		hint = "Y/n"
	}
	return promptStyle.Render(fmt.Sprintf("%s [%s]", m.prompt, hint)) + "\n"
}

// Confirm asks a yes/no question. Cancelling counts as "no".
func Confirm(prompt string, def bool) (bool, error) {
	m := &confirmModel{prompt: prompt, def: def}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return false, err
	}
	if !m.answered {
		return false, nil
	}
	return m.choice, nil
}
