// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// KeyringStore implements Store using the OS keyring via zalando/go-keyring.
// On macOS it uses Keychain, on Linux secret-service (D-Bus), and on Windows
// the Credential Manager.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := validate(service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return artlenserr.Wrapf(err, artlenserr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := validate(service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", artlenserr.Errorf(artlenserr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", artlenserr.Wrapf(err, artlenserr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := validate(service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return artlenserr.Errorf(artlenserr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return artlenserr.Wrapf(err, artlenserr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func validate(service, key string) error {
	if service == "" {
		return artlenserr.New(artlenserr.CodeSecretInvalidInput, "secret store: service must not be empty")
	}
	if key == "" {
		return artlenserr.New(artlenserr.CodeSecretInvalidInput, "secret store: key must not be empty")
	}
	return nil
}
