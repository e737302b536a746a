package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the reconciler cannot act on.
	ErrValidation = errors.New("validation error")
	// ErrStorage marks a failure of the user or mapping store.
	ErrStorage = errors.New("storage error")
)

// ErrorKind classifies a ReconcileError.
type ErrorKind int

const (
	ValidationError ErrorKind = iota + 1
	StorageError
)

func (k ErrorKind) String() string {
	switch k {
	case ValidationError:
		return "validation"
	case StorageError:
		return "storage"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	if k == ValidationError {
		return ErrValidation
	}
	return ErrStorage
}

// ReconcileError is returned by the Reconciler and the Resolver.
// Error() always returns the generic message shown to callers. The cause is
// available through Detail() and errors.Unwrap.
type ReconcileError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ReconcileError) Error() string {
	return "failed to create/update user"
}

// Detail describes the operation and cause for server-side logs.
func (e *ReconcileError) Detail() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is.
func (e *ReconcileError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

func validationError(op string, err error) error {
	return &ReconcileError{Kind: ValidationError, Op: op, Err: err}
}

func storageError(op string, err error) error {
	return &ReconcileError{Kind: StorageError, Op: op, Err: err}
}
