// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/geonode/geonode/internal/domain"
)

// Uploader defines the primary port for publishing spatial data files.
type Uploader interface {
	// Save publishes one file under the referenced layer and returns the record.
	Save(ctx context.Context, req domain.SaveRequest) (*domain.Layer, error)

	// FileUpload publishes one file deriving name and title from its path.
	FileUpload(ctx context.Context, path string, opts UploadOptions) (*domain.Layer, error)

	// Upload publishes a file or every supported file under a directory.
	Upload(ctx context.Context, path string, opts UploadOptions) (domain.UploadReport, error)

	// CheckServices verifies that both remote catalogs answer.
	CheckServices(ctx context.Context) error
}

// UploadOptions carries the caller supplied settings of a (batch) upload.
type UploadOptions struct {
	Username    string // empty selects the default superuser
	Title       string
	Abstract    string
	Keywords    []string
	Overwrite   bool
	Permissions *domain.PermissionSpec
}

// LayerCatalog defines the primary port for reading and securing layers.
type LayerCatalog interface {
	// List returns the layers visible to user.
	List(ctx context.Context, user domain.User) ([]LayerView, error)

	// Get returns one layer visible to user.
	Get(ctx context.Context, user domain.User, id int64) (*LayerView, error)

	// SetPermissions replaces the rules of a layer.
	SetPermissions(ctx context.Context, user domain.User, id int64, spec domain.PermissionSpec) error
}

// LayerView is a layer together with its access rules.
type LayerView struct {
	Layer       domain.Layer
	Permissions domain.PermissionSpec
}

// Authenticator resolves API credentials.
type Authenticator interface {
	// Authenticate returns the user for username/password.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy      bool              // Overall health status
	Ready        bool              // Ready to accept requests
	LayersLoaded int               // Number of recorded layers
	Components   map[string]string // Component statuses
}
