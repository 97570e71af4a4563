package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key does not exist for the tenant.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTenant is returned for an empty tenant or one containing the
	// key separator.
	ErrInvalidTenant = errors.New("invalid tenant")

	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid key")

	// ErrCrossTenantKey marks a key observed under a tenant prefix it does
	// not carry. It indicates a defect, never a recoverable condition.
	ErrCrossTenantKey = errors.New("cross-tenant key violation")

	// ErrStorage is the kind shared by every wrapped engine failure.
	ErrStorage = errors.New("storage engine failure")

	// ErrUnknownTopic is returned for a topic that has no column.
	ErrUnknownTopic = errors.New("missing column handle")

	// ErrInboxNotFound is returned when an inbox holds no files.
	ErrInboxNotFound = fmt.Errorf("inbox %w", ErrNotFound)

	// ErrFileNotFound is returned when a named file is not in the inbox.
	ErrFileNotFound = fmt.Errorf("inbox file %w", ErrNotFound)
)

// StorageError wraps an engine error so callers never depend on the
// engine's own error types. errors.Is(err, ErrStorage) holds for it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
