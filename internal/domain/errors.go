package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("service unavailable")
	ErrInternal         = errors.New("internal error")
	ErrPermissionDenied = errors.New("permission denied")
)

// Specific errors.
var (
	ErrLayerNotFound    = fmt.Errorf("layer: %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user: %w", ErrNotFound)
	ErrStoreNotFound    = fmt.Errorf("store: %w", ErrNotFound)
	ErrResourceNotFound = fmt.Errorf("resource: %w", ErrNotFound)
	ErrStyleNotFound    = fmt.Errorf("style: %w", ErrNotFound)
	ErrRecordNotFound   = fmt.Errorf("metadata record: %w", ErrNotFound)
	ErrStoreConflict    = fmt.Errorf("store: %w", ErrConflict)
	ErrStyleConflict    = fmt.Errorf("style: %w", ErrConflict)
	ErrNotImplemented   = errors.New("not implemented")
)

// ErrorKind classifies upload pipeline failures so callers can branch
// without matching on messages.
type ErrorKind int

// Upload failure kinds.
const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindUnsupportedFormat
	KindMissingHelperFile
	KindAmbiguousHelperFile
	KindNameConflict
	KindTypeMismatch
	KindUploadFailed
	KindCatalogConflict
	KindResourceMissing
	KindProjectionUnknown
	KindServiceUnavailable
	KindRecordMissing
	KindVerificationFailed
	KindPermissionDenied
)

var kindNames = map[ErrorKind]string{
	KindUnknown:             "unknown",
	KindInvalidInput:        "invalid_input",
	KindUnsupportedFormat:   "unsupported_format",
	KindMissingHelperFile:   "missing_helper_file",
	KindAmbiguousHelperFile: "ambiguous_helper_file",
	KindNameConflict:        "name_conflict",
	KindTypeMismatch:        "type_mismatch",
	KindUploadFailed:        "upload_failed",
	KindCatalogConflict:     "catalog_conflict",
	KindResourceMissing:     "resource_missing",
	KindProjectionUnknown:   "projection_unknown",
	KindServiceUnavailable:  "service_unavailable",
	KindRecordMissing:       "record_missing",
	KindVerificationFailed:  "verification_failed",
	KindPermissionDenied:    "permission_denied",
}

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the single domain error raised by the upload pipeline.
type Error struct {
	Kind    ErrorKind // Failure classification
	Message string    // Human-readable message
	Name    string    // Layer or file the failure relates to
	Err     error     // Underlying error
}

// NewError creates a pipeline error of the given kind.
func NewError(kind ErrorKind, name, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates a pipeline error of the given kind wrapping err.
func WrapError(kind ErrorKind, name string, err error, format string, args ...interface{}) *Error {
	e := NewError(kind, name, format, args...)
	e.Err = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CatalogError represents a failed call to the external catalog service.
type CatalogError struct {
	Operation  string // Operation that failed (get_store, create_style, ...)
	Name       string // Store, resource or style name
	StatusCode int    // HTTP status, 0 for transport errors
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog error during %s for %s (status %d): %v",
			e.Operation, e.Name, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog error during %s for %s: %v", e.Operation, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during object storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
