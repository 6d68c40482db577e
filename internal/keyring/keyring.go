// Package keyring stores vault passphrases in the OS keyring, keyed by the
// remote identifier of the vault.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "sous"

// ErrNotFound is returned when no passphrase is stored for a remote.
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a passphrase in the OS keyring
func SavePassphrase(remoteID string, passphrase string) error {
	return keyring.Set(serviceName, remoteID, passphrase)
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(remoteID string) (string, error) {
	return keyring.Get(serviceName, remoteID)
}

// DeletePassphrase removes a passphrase from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassphrase(remoteID string) error {
	err := keyring.Delete(serviceName, remoteID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(remoteID string) bool {
	_, err := keyring.Get(serviceName, remoteID)
	return err == nil
}
