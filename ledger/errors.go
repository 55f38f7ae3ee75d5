package ledger

import "errors"

var (
	// ErrFingerprintRequired is returned when a stage is recorded
	// without a content fingerprint.
	ErrFingerprintRequired = errors.New("fingerprint required")

	// ErrEmptyName is returned when an alias mapping names an empty string.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrWriteFailed indicates the durable ledger write did not complete.
	ErrWriteFailed = errors.New("ledger write failed")
)
