// Package secrets stores the server's database DSN and JWT signing key
// in the operator's OS keychain, so a local or self-hosted deployment
// never needs to put them in a shell history or a world-readable
// config file. Adapted from the teacher's internal/keyring package,
// generalized from a single DB-connection-string slot to a small set
// of named secrets.
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "smartstudy-companion"

var (
	// ErrNotFound is returned when no secret is stored under the given key.
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrUnavailable is returned when the OS keyring is not available.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Well-known secret keys used by studyctl/studyserver.
const (
	KeyDatabaseDSN = "database-dsn"
	KeyJWTSigning  = "jwt-signing-key"
)

// Get retrieves a named secret from the OS keyring.
func Get(key string) (string, error) {
	val, err := keyring.Get(serviceName, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// Set stores a named secret in the OS keyring.
func Set(key, value string) error {
	if value == "" {
		return errors.New("secret value cannot be empty")
	}
	if err := keyring.Set(serviceName, key, value); err != nil {
		return fmt.Errorf("failed to store secret %q: %w", key, err)
	}
	return nil
}

// Delete removes a named secret from the OS keyring.
func Delete(key string) error {
	if err := keyring.Delete(serviceName, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret %q: %w", key, err)
	}
	return nil
}

// IsAvailable performs a best-effort check of OS keyring availability.
func IsAvailable() bool {
	_, err := keyring.Get(serviceName, "__availability_probe__")
	if err != nil && errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	return err == nil
}
