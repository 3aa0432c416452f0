package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:      "anonymous",
		Value:      "layer_superuser",
		Constraint: "_none|layer_readonly|layer_readwrite|layer_admin",
		Message:    "unknown permission level",
	}

	// Test Error() output
	got := err.Error()
	if got == "" {
		t.Error("Error() should not return empty string")
	}

	// Test Unwrap()
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
}

func TestErrorKindMatching(t *testing.T) {
	base := NewError(KindMissingHelperFile, "roads.shp", "expected helper file %s does not exist", "roads.dbf")
	wrapped := fmt.Errorf("saving roads: %w", base)

	if !errors.Is(wrapped, &Error{Kind: KindMissingHelperFile}) {
		t.Error("errors.Is should match by kind through wrapping")
	}
	if errors.Is(wrapped, &Error{Kind: KindAmbiguousHelperFile}) {
		t.Error("errors.Is should not match a different kind")
	}
	if got := KindOf(wrapped); got != KindMissingHelperFile {
		t.Errorf("KindOf() = %v, want %v", got, KindMissingHelperFile)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindServiceUnavailable, "", cause, "cannot connect to the catalog at %s", "http://localhost:8080")

	if !errors.Is(err, cause) {
		t.Error("WrapError should unwrap to the cause")
	}
	if err.Error() != "cannot connect to the catalog at http://localhost:8080: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnsupportedFormat, "unsupported_format"},
		{KindProjectionUnknown, "projection_unknown"},
		{KindVerificationFailed, "verification_failed"},
		{ErrorKind(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalogError(t *testing.T) {
	tests := []struct {
		name string
		err  *CatalogError
	}{
		{
			name: "with status",
			err: &CatalogError{
				Operation:  "create_style",
				Name:       "roads",
				StatusCode: 409,
				Err:        ErrStyleConflict,
			},
		},
		{
			name: "transport error",
			err: &CatalogError{
				Operation: "get_store",
				Name:      "roads",
				Err:       errors.New("dial tcp: connection refused"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() == "" {
				t.Error("Error() should not return empty string")
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  *StorageError
	}{
		{
			name: "with key",
			err: &StorageError{
				Operation: "download",
				Key:       "roads.shp",
				Err:       errors.New("network error"),
			},
		},
		{
			name: "without key",
			err: &StorageError{
				Operation: "list",
				Err:       errors.New("access denied"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got == "" {
				t.Error("Error() should not return empty string")
			}

			// Test Unwrap
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "catalog.url",
		Message: "catalog URL is required",
	}

	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError should unwrap to ErrInvalidInput")
	}
}

func TestSentinelErrors(t *testing.T) {
	// Test that specific errors wrap base errors correctly
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"ErrLayerNotFound", ErrLayerNotFound, ErrNotFound},
		{"ErrUserNotFound", ErrUserNotFound, ErrNotFound},
		{"ErrStoreNotFound", ErrStoreNotFound, ErrNotFound},
		{"ErrResourceNotFound", ErrResourceNotFound, ErrNotFound},
		{"ErrStyleNotFound", ErrStyleNotFound, ErrNotFound},
		{"ErrRecordNotFound", ErrRecordNotFound, ErrNotFound},
		{"ErrStoreConflict", ErrStoreConflict, ErrConflict},
		{"ErrStyleConflict", ErrStyleConflict, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.wantErr) {
				t.Errorf("%s should wrap %v", tt.name, tt.wantErr)
			}
		})
	}
}
