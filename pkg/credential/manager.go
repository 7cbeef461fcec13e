// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package credential owns the run-scoped sudo session. Authentication is
// attempted once, proactively, before the first task executes; commands
// that escalate indirectly would otherwise hang on a password prompt with
// stdin redirected away.
package credential

import (
	"sync"
)

// State of the credential session for one run.
type State int

const (
	// StateNone means authentication has not been attempted yet.
	StateNone State = iota
	// StateAuthenticated means sudo accepts non-interactive use for the
	// remainder of the run (subject to timestamp refresh).
	StateAuthenticated
	// StateDeclined means the user skipped authentication or it failed.
	// Not an error: sudo tasks simply fail or time out on their own.
	StateDeclined
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateDeclined:
		return "declined"
	}
	return "none"
}

// Prompter is the interactive side channel used to collect the password
// and the save-to-store consent. It is scoped to the Manager; runners
// never prompt.
type Prompter interface {
	// Password returns ok=false when the user declined (empty input,
	// escape, or interrupt).
	Password(prompt string) (value string, ok bool, err error)
	Confirm(prompt string, def bool) (bool, error)
}

// Manager performs the one-time authentication handshake and hands out the
// resulting immutable Session.
type Manager struct {
	Label  string
	Store  SecretStore
	Prompt Prompter
	// OnAwaitingPrompt fires right before the interactive password
	// prompt, so the notification layer can alert a detached user.
	OnAwaitingPrompt func()
	// Logf receives verbose progress lines; may be nil.
	Logf func(format string, v ...any)

	sudo sudoer

	mu      sync.Mutex
	session *Session
}

// Ensure authenticates on first call and returns the cached session on
// every subsequent call without re-prompting.
func (m *Manager) Ensure() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		m.session = m.authenticate()
	}
	return m.session
}

func (m *Manager) authenticate() *Session {
	sd := m.sudo
	if sd == nil {
		sd = systemSudo{}
	}

	if !sd.Available() {
		m.logf("sudo not found on PATH, skipping authentication")
		return &Session{state: StateDeclined, sudo: sd}
	}

	if sd.CachedTimestamp() {
		m.logf("sudo timestamp already valid")
		return &Session{state: StateAuthenticated, sudo: sd}
	}

	storedMissing := true
	if m.Store != nil {
		secret, err := m.Store.Lookup(m.Label)
		switch {
		case err == nil:
			storedMissing = false
			if ok, authErr := sd.Authenticate(secret); authErr == nil && ok {
				m.logf("sudo authenticated via secret store")
				return &Session{state: StateAuthenticated, secret: secret, sudo: sd}
			}
			m.logf("stored credential is outdated, prompting for a new password")
		case err != ErrNotFound:
			// Secret store unavailable: degrade to interactive prompting.
			m.logf("secret store unavailable: %v", err)
		}
	}

	if m.Prompt == nil {
		return &Session{state: StateDeclined, sudo: sd}
	}

	if m.OnAwaitingPrompt != nil {
		m.OnAwaitingPrompt()
	}
	password, ok, err := m.Prompt.Password("Enter sudo password (empty to skip)")
	if err != nil || !ok || password == "" {
		m.logf("sudo authentication skipped")
		return &Session{state: StateDeclined, sudo: sd}
	}

	authed, err := sd.Authenticate(password)
	if err != nil || !authed {
		m.logf("sudo rejected the password")
		return &Session{state: StateDeclined, sudo: sd}
	}

	// Offer to persist only a freshly entered password, and only with
	// explicit consent. The secret is never logged or reported.
	if storedMissing && m.Store != nil {
		if save, err := m.Prompt.Confirm("Save password to the system keychain for future runs?", true); err == nil && save {
			if err := m.Store.Store(m.Label, password); err != nil {
				m.logf("failed to save credential: %v", err)
			}
		}
	}

	return &Session{state: StateAuthenticated, secret: password, sudo: sd}
}

func (m *Manager) logf(format string, v ...any) {
	if m.Logf != nil {
		m.Logf(format, v...)
	}
}

// Session is the single-assignment credential state shared by all runners
// for the rest of the run. State never changes after creation, so reads
// need no locking; only Refresh serializes its timestamp probe.
type Session struct {
	state  State
	secret string
	sudo   sudoer

	refreshMu sync.Mutex
}

func (s *Session) State() State {
	if s == nil {
		return StateNone
	}
	return s.state
}

func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// Refresh re-validates the sudo timestamp ahead of an escalated command.
// The timestamp can lapse mid-run on long plans; when it has, and the
// password is known, it is replayed silently.
func (s *Session) Refresh() {
	if !s.Authenticated() {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.sudo.CachedTimestamp() {
		return
	}
	if s.secret != "" {
		_, _ = s.sudo.Authenticate(s.secret)
	}
}
