package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks failures of a configured store (network,
	// auth, timeout, unreadable record). It is never returned by the
	// fail-open tracker.
	ErrStoreUnavailable = errors.New("quota store unavailable")

	// ErrQuotaExceeded is returned when the free allowance is spent.
	ErrQuotaExceeded = errors.New("free trial already used")
)

// StoreError wraps a store failure with the operation and record key.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("quota %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreUnavailable) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
