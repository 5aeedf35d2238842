package auth

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "vodarchiver"

// KeyringStore keeps the Twitch client secret in the system keychain.
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it is unavailable
// (typical on headless hosts), letting the manager fall back to the
// environment.
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(clientID, secret string) error {
	if clientID == "" || secret == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, "twitch_"+clientID, secret); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(clientID string) (string, error) {
	if clientID == "" {
		return "", ErrInvalidCredentials
	}
	secret, err := keyring.Get(keyringService, "twitch_"+clientID)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrCredentialsNotFound
		}
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return secret, nil
}

func (k *KeyringStore) Delete(clientID string) error {
	err := keyring.Delete(keyringService, "twitch_"+clientID)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
