// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package credential

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned by a SecretStore when no secret is saved under
// the requested label.
var ErrNotFound = errors.New("no stored secret")

// SecretStore persists the sudo secret across runs. The engine never
// inspects the secret beyond handing it to sudo for authentication.
type SecretStore interface {
	Lookup(label string) (string, error)
	Store(label, secret string) error
}

// The account name used for keyring entries.
const keyringAccount = "root"

// KeyringStore backs SecretStore with the OS credential store (macOS
// Keychain, Secret Service, Windows Credential Manager).
type KeyringStore struct{}

func (KeyringStore) Lookup(label string) (string, error) {
	secret, err := keyring.Get(label, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup failed: %w", err)
	}
	return secret, nil
}

func (KeyringStore) Store(label, secret string) error {
	if err := keyring.Set(label, keyringAccount, secret); err != nil {
		return fmt.Errorf("keyring store failed: %w", err)
	}
	return nil
}
