// Package apperrors holds the error types shared by repositories and
// services. Handlers map these onto HTTP status codes and machine-checkable
// error codes.
package apperrors

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type RangeError struct{ Message string }

func (e *RangeError) Error() string { return e.Message }

type ConfirmationError struct{ Message string }

func (e *ConfirmationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string { return e.Message }
func (e *StorageError) Unwrap() error { return e.Err }
