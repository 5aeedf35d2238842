package auth

import (
	"errors"
)

var (
	// ErrCredentialsNotFound means no store holds a secret for the client ID.
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrInvalidCredentials means the caller passed an empty client ID or
	// secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SecretStore stores and retrieves the Twitch client secret keyed by client
// ID.
type SecretStore interface {
	Store(clientID, secret string) error
	Retrieve(clientID string) (string, error)
	Delete(clientID string) error
}

// Manager tries stores in order: the system keychain first, environment
// variables as the headless fallback.
type Manager struct {
	stores []SecretStore
}

// NewManager builds a credential manager with the available backends.
func NewManager() *Manager {
	var stores []SecretStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}
}

// Store saves the secret in the first backend that accepts it.
func (m *Manager) Store(clientID, secret string) error {
	if clientID == "" || secret == "" {
		return ErrInvalidCredentials
	}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(clientID, secret); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

// Retrieve returns the secret from the first backend that has it.
func (m *Manager) Retrieve(clientID string) (string, error) {
	for _, store := range m.stores {
		if secret, err := store.Retrieve(clientID); err == nil && secret != "" {
			return secret, nil
		}
	}
	return "", ErrCredentialsNotFound
}

// Delete removes the secret from every backend that holds it.
func (m *Manager) Delete(clientID string) error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(clientID); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
