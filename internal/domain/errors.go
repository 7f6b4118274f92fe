package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreNotFound         = errors.New("store not found")
	ErrStoreAlreadyConnected = errors.New("store already connected")
	ErrStoreNotConnected     = errors.New("store is not connected")
	ErrSyncInProgress        = errors.New("sync already in progress for store")
	ErrNoActiveSync          = errors.New("no sync in progress for store")
	ErrSyncRunNotFound       = errors.New("sync run not found")
)

// AuthError means the remote platform rejected the store's domain or credential.
// It is never retried; the user has to reconnect the store.
type AuthError struct {
	Shop    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Shop == "" {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("authentication failed for %s: %s", e.Shop, e.Message)
}

// RemoteError is a failed call to the remote platform. Status is 0 for
// network failures and timeouts.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote request failed: %s", e.Message)
	}
	return fmt.Sprintf("remote request failed with status %d: %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the request later
func (e *RemoteError) Retryable() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

// ValidationError is malformed local input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a database failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err, or returns nil when err is nil
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsAuthError reports whether err is or wraps an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRemoteError reports whether err is or wraps a RemoteError
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsPersistenceError reports whether err is or wraps a PersistenceError
func IsPersistenceError(err error) bool {
	var persistenceErr *PersistenceError
	return errors.As(err, &persistenceErr)
}
