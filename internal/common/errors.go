// Package common defines shared sentinel errors used across the client
// layers of memoria. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Scan validation errors.
	ErrInvalidCode = errors.New("invalid scan code format")

	// Connectivity: reconciliation was cleanly skipped, not failed.
	ErrOffline = errors.New("device is offline")

	// Remote request classification. Transient errors (network, timeout,
	// 5xx) may be retried; permanent ones (auth, validation, 404) never are.
	ErrTransient = errors.New("transient remote error")
	ErrPermanent = errors.New("permanent remote error")

	// Store initialization errors. A load-bearing table that cannot be
	// created or migrated aborts opening the store.
	ErrStructural = errors.New("structural store error")
)

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err must never be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
