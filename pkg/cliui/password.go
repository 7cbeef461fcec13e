// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type passwordModel struct {
	prompt    string
	input     textinput.Model
	submitted bool
	quitting  bool
}

func (m *passwordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *passwordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *passwordModel) View() string {
	if m.submitted || m.quitting {
		return ""
	}
	return promptStyle.Render(m.prompt) + "\n" + promptStyle.Render(m.input.View()) + "\n"
}

// Password displays a masked interactive prompt and returns the entered
// value. ok is false when the user cancelled with Esc or Ctrl+C; an empty
// submission returns ok=true with an empty value so callers can treat it
// as a deliberate decline.
func Password(prompt string) (string, bool, error) {
	input := textinput.New()
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.Focus()

	m := &passwordModel{prompt: prompt, input: input}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return "", false, err
	}
	if !m.submitted {
		return "", false, nil
	}
	return m.input.Value(), true, nil
}
