package auth

import (
	"errors"
	"os"
)

const envSecretVar = "VODARCHIVER_TWITCH_CLIENT_SECRET"

// EnvironmentStore reads the client secret from the environment. It is the
// last-resort backend for headless hosts without a keychain; it cannot
// store or delete.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(clientID, secret string) error {
	return errors.New("environment store is read-only")
}

func (e *EnvironmentStore) Retrieve(clientID string) (string, error) {
	if secret := os.Getenv(envSecretVar); secret != "" {
		return secret, nil
	}
	return "", ErrCredentialsNotFound
}

func (e *EnvironmentStore) Delete(clientID string) error {
	return nil
}
