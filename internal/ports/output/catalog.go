package output

import (
	"context"

	"github.com/geonode/geonode/internal/domain"
)

// CatalogService defines the secondary port for the map catalog service that
// holds stores, resources, layers and styles.
//
// Lookups return an error wrapping domain.ErrNotFound when the object does
// not exist.
type CatalogService interface {
	// Workspaces lists workspace names. Used as the liveness probe.
	Workspaces(ctx context.Context) ([]string, error)

	// GetStore returns the store called name in the default workspace.
	GetStore(ctx context.Context, name string) (*domain.Store, error)

	// DeleteStore removes a store. Recurse also removes its resources.
	DeleteStore(ctx context.Context, store *domain.Store, recurse bool) error

	// StoreResources lists the resources published from a store.
	StoreResources(ctx context.Context, store *domain.Store) ([]domain.Resource, error)

	// CreateFeatureStore uploads shapefile parts into a new file-backed data store.
	CreateFeatureStore(ctx context.Context, name string, files []string, overwrite bool) error

	// CreateCoverageStore uploads a raster into a new coverage store.
	CreateCoverageStore(ctx context.Context, name string, file string, overwrite bool) error

	// GetDataStore returns the database-backed data store called name.
	GetDataStore(ctx context.Context, name string) (*domain.Store, error)

	// CreateDataStore registers a database-backed data store with connection parameters.
	CreateDataStore(ctx context.Context, store *domain.Store) error

	// AddDataToStore loads shapefile parts into an existing data store.
	AddDataToStore(ctx context.Context, store *domain.Store, name string, files []string, overwrite bool) error

	// GetResource returns the resource called name, optionally inside store.
	GetResource(ctx context.Context, name string, store *domain.Store) (*domain.Resource, error)

	// SaveResource persists changes to a resource (projection, titles).
	SaveResource(ctx context.Context, resource *domain.Resource) error

	// DeleteResource removes a resource.
	DeleteResource(ctx context.Context, resource *domain.Resource) error

	// GetLayer returns the published layer called name.
	GetLayer(ctx context.Context, name string) (*domain.PublishedLayer, error)

	// SaveLayer persists changes to a published layer (default style).
	SaveLayer(ctx context.Context, layer *domain.PublishedLayer) error

	// DeleteLayer removes a published layer.
	DeleteLayer(ctx context.Context, layer *domain.PublishedLayer) error

	// CreateStyle registers a style. Returns an error wrapping
	// domain.ErrStyleConflict when a style with the same name exists.
	CreateStyle(ctx context.Context, style *domain.Style) error

	// GetStyle returns the style called name.
	GetStyle(ctx context.Context, name string) (*domain.Style, error)
}

// MetadataCatalog defines the secondary port for the metadata catalog.
type MetadataCatalog interface {
	// Login authenticates against the catalog. Used as the liveness probe.
	Login(ctx context.Context) error

	// Publish inserts or replaces the record for a layer.
	Publish(ctx context.Context, record *domain.MetadataRecord) error

	// GetByUUID returns the record, or an error wrapping domain.ErrRecordNotFound.
	GetByUUID(ctx context.Context, uuid string) (*domain.MetadataRecord, error)

	// Delete removes the record with the given UUID.
	Delete(ctx context.Context, uuid string) error
}

// StyleGenerator produces a default style document for a layer.
type StyleGenerator interface {
	// Generate returns an SLD for the named layer and geometry family.
	Generate(name, geometryType string) ([]byte, error)
}

// GeometrySniffer detects the geometry family of a vector data file.
type GeometrySniffer interface {
	// GeometryType returns one of the domain.Geometry* families.
	GeometryType(path string) (string, error)
}

// FeatureDatabase is the spatial database behind database-backed stores.
type FeatureDatabase interface {
	// DropTable removes the table a failed import left behind.
	DropTable(ctx context.Context, name string) error
}
