package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied indicates the actor lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStorageUnavailable indicates the backing store failed; callers own retry policy.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps a persistence failure so callers can match it with
// errors.Is(err, ErrStorageUnavailable) while keeping the cause.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
