package output

import (
	"context"

	"github.com/geonode/geonode/internal/domain"
)

// LayerRepository defines the secondary port for local layer records.
type LayerRepository interface {
	// GetByName returns the layer or an error wrapping domain.ErrLayerNotFound.
	GetByName(ctx context.Context, name string) (*domain.Layer, error)

	// GetByID returns the layer or an error wrapping domain.ErrLayerNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Layer, error)

	// Exists reports whether a layer called name is recorded.
	Exists(ctx context.Context, name string) (bool, error)

	// GetOrCreate returns the layer identified by (name, workspace), creating
	// it from defaults when missing. Created reports which case applied.
	GetOrCreate(ctx context.Context, name, workspace string, defaults domain.LayerDefaults) (layer *domain.Layer, created bool, err error)

	// Update persists changes to an existing layer.
	Update(ctx context.Context, layer *domain.Layer) error

	// Delete removes a layer record and its permissions.
	Delete(ctx context.Context, id int64) error

	// List returns every layer ordered by ID.
	List(ctx context.Context) ([]domain.Layer, error)
}

// ContactRepository defines the secondary port for contacts.
type ContactRepository interface {
	// GetOrCreate returns the contact of user, creating it with the given name.
	GetOrCreate(ctx context.Context, user domain.User, role domain.ContactRole) (*domain.Contact, error)
}

// UserRepository defines the secondary port for user accounts.
type UserRepository interface {
	// GetByUsername returns the user or an error wrapping domain.ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByID returns the user or an error wrapping domain.ErrUserNotFound.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// Superusers returns all active superusers.
	Superusers(ctx context.Context) ([]domain.User, error)

	// Create stores a new user.
	Create(ctx context.Context, user *domain.User) error
}

// PermissionRepository defines the secondary port for layer access rules.
type PermissionRepository interface {
	// Get returns the permission spec stored for a layer.
	Get(ctx context.Context, layerID int64) (*domain.PermissionSpec, error)

	// Set replaces the permission spec of a layer.
	Set(ctx context.Context, layerID int64, spec domain.PermissionSpec) error
}
