package auth

import (
	"testing"
)

func TestEnvironmentStore(t *testing.T) {
	t.Run("retrieve from env", func(t *testing.T) {
		t.Setenv("VODARCHIVER_TWITCH_CLIENT_SECRET", "env_secret")

		store := NewEnvironmentStore()
		secret, err := store.Retrieve("any_client")
		if err != nil {
			t.Fatalf("Failed to retrieve: %v", err)
		}
		if secret != "env_secret" {
			t.Errorf("Expected env_secret, got %s", secret)
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		t.Setenv("VODARCHIVER_TWITCH_CLIENT_SECRET", "")

		store := NewEnvironmentStore()
		if _, err := store.Retrieve("any_client"); err != ErrCredentialsNotFound {
			t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
		}
	})

	t.Run("store is read-only", func(t *testing.T) {
		store := NewEnvironmentStore()
		if err := store.Store("client", "secret"); err == nil {
			t.Error("Expected the environment store to reject writes")
		}
	})
}

// memoryStore is an in-process backend for manager tests.
type memoryStore struct {
	secrets map[string]string
	failSet bool
}

func (m *memoryStore) Store(clientID, secret string) error {
	if m.failSet {
		return ErrInvalidCredentials
	}
	if m.secrets == nil {
		m.secrets = make(map[string]string)
	}
	m.secrets[clientID] = secret
	return nil
}

func (m *memoryStore) Retrieve(clientID string) (string, error) {
	if s, ok := m.secrets[clientID]; ok {
		return s, nil
	}
	return "", ErrCredentialsNotFound
}

func (m *memoryStore) Delete(clientID string) error {
	delete(m.secrets, clientID)
	return nil
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	primary := &memoryStore{failSet: true}
	secondary := &memoryStore{}
	m := &Manager{stores: []SecretStore{primary, secondary}}

	if err := m.Store("client1", "s3cret"); err != nil {
		t.Fatalf("Expected the second store to accept the write: %v", err)
	}

	secret, err := m.Retrieve("client1")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if secret != "s3cret" {
		t.Errorf("Expected s3cret, got %s", secret)
	}
}

func TestManagerRejectsEmptyCredentials(t *testing.T) {
	m := &Manager{stores: []SecretStore{&memoryStore{}}}

	if err := m.Store("", "secret"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for empty client ID, got %v", err)
	}
	if err := m.Store("client", ""); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for empty secret, got %v", err)
	}
}

func TestManagerRetrieveMiss(t *testing.T) {
	m := &Manager{stores: []SecretStore{&memoryStore{}}}

	if _, err := m.Retrieve("unknown"); err != ErrCredentialsNotFound {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}
