package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"go.uber.org/multierr"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

// StoreStrategy creates the catalog store and resource for one data set and
// knows how to take them down again.
type StoreStrategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Create uploads files into a store and returns the store and the
	// resource published under name.
	Create(ctx context.Context, name string, files domain.FileSet, overwrite bool) (*domain.Store, *domain.Resource, error)

	// Remove deletes what Create produced.
	Remove(ctx context.Context, store *domain.Store, resource *domain.Resource) error
}

// DataStoreOptions configures the database-backed vector store. When Enabled
// is false shapefiles are published as file-backed stores.
type DataStoreOptions struct {
	Enabled  bool
	Name     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	DBType   string
}

// connectionParameters returns the parameters the catalog needs to reach the database.
func (o DataStoreOptions) connectionParameters() map[string]string {
	return map[string]string{
		"host":     o.Host,
		"port":     strconv.Itoa(o.Port),
		"database": o.Database,
		"user":     o.User,
		"passwd":   o.Password,
		"dbtype":   o.DBType,
	}
}

// StoreCreator checks the catalog for an existing store before handing the
// upload to the strategy that fits the data.
type StoreCreator struct {
	catalog   output.CatalogService
	database  output.FeatureDatabase
	datastore DataStoreOptions
	logger    *slog.Logger
}

// NewStoreCreator creates a new store creator. database may be nil when no
// database-backed store is configured.
func NewStoreCreator(
	catalog output.CatalogService,
	database output.FeatureDatabase,
	datastore DataStoreOptions,
	logger *slog.Logger,
) *StoreCreator {
	return &StoreCreator{
		catalog:   catalog,
		database:  database,
		datastore: datastore,
		logger:    logger,
	}
}

// existingCatalog is what the catalog already held under a name before an
// upload touched it.
type existingCatalog struct {
	store bool // a store with resources
	layer bool // a published layer
}

// CheckExisting makes sure publishing resourceType under name will not
// clobber a store it should not. An empty store is deleted when overwriting.
func (c *StoreCreator) CheckExisting(ctx context.Context, name string, resourceType domain.ResourceType, overwrite bool) (existingCatalog, error) {
	var existing existingCatalog

	_, err := c.catalog.GetLayer(ctx, name)
	switch {
	case err == nil:
		existing.layer = true
	case !errors.Is(err, domain.ErrNotFound):
		return existing, domain.WrapError(domain.KindServiceUnavailable, name, err,
			"could not look up layer %s", name)
	}

	store, err := c.catalog.GetStore(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return existing, nil
	}
	if err != nil {
		return existing, domain.WrapError(domain.KindServiceUnavailable, name, err,
			"could not look up store %s", name)
	}

	resources, err := c.catalog.StoreResources(ctx, store)
	if err != nil {
		return existing, domain.WrapError(domain.KindServiceUnavailable, name, err,
			"could not list resources of store %s", name)
	}

	if len(resources) == 0 {
		if !overwrite {
			return existing, domain.NewError(domain.KindNameConflict, name,
				"the layer exists and the overwrite parameter is %t", overwrite)
		}
		c.logger.Info("deleting empty store", "store", name)
		if err := c.catalog.DeleteStore(ctx, store, false); err != nil {
			return existing, domain.WrapError(domain.KindServiceUnavailable, name, err,
				"could not delete empty store %s", name)
		}
		return existing, nil
	}
	existing.store = true

	for _, r := range resources {
		if r.Name != name {
			continue
		}
		if !overwrite {
			return existing, domain.NewError(domain.KindNameConflict, name,
				"name already in use and overwrite is false")
		}
		if r.Type != resourceType {
			return existing, domain.NewError(domain.KindTypeMismatch, name,
				"type of uploaded file %s (%s) does not match type of existing resource type %s",
				name, resourceType, r.Type)
		}
	}
	return existing, nil
}

// Strategy returns the store strategy for resourceType.
func (c *StoreCreator) Strategy(resourceType domain.ResourceType) (StoreStrategy, error) {
	return selectStoreStrategy(resourceType, c.catalog, c.database, c.datastore, c.logger)
}

func selectStoreStrategy(
	resourceType domain.ResourceType,
	catalog output.CatalogService,
	database output.FeatureDatabase,
	datastore DataStoreOptions,
	logger *slog.Logger,
) (StoreStrategy, error) {
	switch resourceType {
	case domain.ResourceFeatureType:
		if datastore.Enabled {
			return &dbFeatureStore{catalog: catalog, database: database, options: datastore, logger: logger}, nil
		}
		return &fileFeatureStore{catalog: catalog, logger: logger}, nil
	case domain.ResourceCoverage:
		return &coverageStore{catalog: catalog, logger: logger}, nil
	default:
		return nil, domain.NewError(domain.KindUnsupportedFormat, "",
			"the layer type %s should be %s or %s", resourceType,
			domain.ResourceFeatureType, domain.ResourceCoverage)
	}
}

// fileFeatureStore uploads shapefile parts into a file-backed data store.
type fileFeatureStore struct {
	catalog output.CatalogService
	logger  *slog.Logger
}

func (s *fileFeatureStore) Name() string { return "file_feature_store" }

func (s *fileFeatureStore) Create(ctx context.Context, name string, files domain.FileSet, overwrite bool) (*domain.Store, *domain.Resource, error) {
	if err := s.catalog.CreateFeatureStore(ctx, name, files.DataFiles(), overwrite); err != nil {
		return nil, nil, uploadError(name, err)
	}
	store, resource, err := fetchCreated(ctx, s.catalog, name, nil)
	if err != nil {
		discardStore(ctx, s.catalog, name, s.logger)
		return nil, nil, err
	}
	return store, resource, nil
}

func (s *fileFeatureStore) Remove(ctx context.Context, store *domain.Store, resource *domain.Resource) error {
	return cascadingDelete(ctx, s.catalog, store, resource)
}

// coverageStore uploads a raster into a coverage store.
type coverageStore struct {
	catalog output.CatalogService
	logger  *slog.Logger
}

func (s *coverageStore) Name() string { return "coverage_store" }

func (s *coverageStore) Create(ctx context.Context, name string, files domain.FileSet, overwrite bool) (*domain.Store, *domain.Resource, error) {
	if err := s.catalog.CreateCoverageStore(ctx, name, files.Base, overwrite); err != nil {
		return nil, nil, uploadError(name, err)
	}
	store, resource, err := fetchCreated(ctx, s.catalog, name, nil)
	if err != nil {
		discardStore(ctx, s.catalog, name, s.logger)
		return nil, nil, err
	}
	return store, resource, nil
}

func (s *coverageStore) Remove(ctx context.Context, store *domain.Store, resource *domain.Resource) error {
	return cascadingDelete(ctx, s.catalog, store, resource)
}

// dbFeatureStore imports shapefiles into the shared database-backed store,
// creating that store on first use.
type dbFeatureStore struct {
	catalog  output.CatalogService
	database output.FeatureDatabase
	options  DataStoreOptions
	logger   *slog.Logger
}

func (s *dbFeatureStore) Name() string { return "db_feature_store" }

func (s *dbFeatureStore) Create(ctx context.Context, name string, files domain.FileSet, overwrite bool) (*domain.Store, *domain.Resource, error) {
	ds, err := s.dataStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := s.catalog.AddDataToStore(ctx, ds, name, files.DataFiles(), overwrite); err != nil {
		s.dropTable(ctx, name)
		return nil, nil, uploadError(name, err)
	}
	store, resource, err := fetchCreated(ctx, s.catalog, name, ds)
	if err != nil {
		s.dropTable(ctx, name)
		return nil, nil, err
	}
	return store, resource, nil
}

// Remove deletes the layer and resource. The shared store stays; its table goes.
func (s *dbFeatureStore) Remove(ctx context.Context, store *domain.Store, resource *domain.Resource) error {
	err := cascadingDelete(ctx, s.catalog, nil, resource)
	if s.database != nil && resource != nil {
		err = multierr.Append(err, s.database.DropTable(ctx, resource.Name))
	}
	return err
}

func (s *dbFeatureStore) dataStore(ctx context.Context) (*domain.Store, error) {
	ds, err := s.catalog.GetDataStore(ctx, s.options.Name)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.WrapError(domain.KindServiceUnavailable, s.options.Name, err,
			"could not look up data store %s", s.options.Name)
	}

	s.logger.Info("creating database data store", "store", s.options.Name, "host", s.options.Host)
	if err := s.catalog.CreateDataStore(ctx, &domain.Store{
		Name:                 s.options.Name,
		Type:                 domain.ResourceFeatureType.StoreType(),
		ConnectionParameters: s.options.connectionParameters(),
	}); err != nil {
		return nil, uploadError(s.options.Name, err)
	}
	ds, err = s.catalog.GetDataStore(ctx, s.options.Name)
	if err != nil {
		return nil, domain.WrapError(domain.KindResourceMissing, s.options.Name, err,
			"data store %s is missing after creation", s.options.Name)
	}
	return ds, nil
}

func (s *dbFeatureStore) dropTable(ctx context.Context, name string) {
	if s.database == nil {
		return
	}
	if err := s.database.DropTable(ctx, name); err != nil {
		s.logger.Error("failed to drop table after failed import", "table", name, "error", err)
	}
}

// fetchCreated reads back the store and resource after an upload.
func fetchCreated(ctx context.Context, catalog output.CatalogService, name string, store *domain.Store) (*domain.Store, *domain.Resource, error) {
	if store == nil {
		var err error
		store, err = catalog.GetStore(ctx, name)
		if err != nil {
			return nil, nil, domain.WrapError(domain.KindResourceMissing, name, err,
				"catalog returned no store for layer %s", name)
		}
	}

	resource, err := catalog.GetResource(ctx, name, store)
	if err != nil || resource == nil {
		return nil, nil, domain.WrapError(domain.KindResourceMissing, name, err,
			"catalog returned no resource for layer %s", name)
	}
	if resource.Name != name {
		return nil, nil, domain.NewError(domain.KindResourceMissing, name,
			"catalog returned resource %s for layer %s", resource.Name, name)
	}
	return store, resource, nil
}

// uploadError translates a failed catalog upload into a pipeline error.
func uploadError(name string, err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return domain.WrapError(domain.KindCatalogConflict, name, err,
			"the catalog reported a conflict creating a store with name %s; try renaming the file or deleting the store in the catalog", name)
	}
	return domain.WrapError(domain.KindUploadFailed, name, err,
		"could not save the layer %s, there was an upload error", name)
}

// cascadingDelete removes the published layer, the resource and the store,
// skipping whatever is nil or already gone.
func cascadingDelete(ctx context.Context, catalog output.CatalogService, store *domain.Store, resource *domain.Resource) error {
	var errs error
	if resource != nil {
		layer, err := catalog.GetLayer(ctx, resource.Name)
		switch {
		case err == nil:
			errs = multierr.Append(errs, ignoreNotFound(catalog.DeleteLayer(ctx, layer)))
		case !errors.Is(err, domain.ErrNotFound):
			errs = multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, ignoreNotFound(catalog.DeleteResource(ctx, resource)))
	}
	if store != nil {
		errs = multierr.Append(errs, ignoreNotFound(catalog.DeleteStore(ctx, store, true)))
	}
	return errs
}

// discardStore removes a store whose resource could not be read back.
// Failures are logged; the caller reports the original error.
func discardStore(ctx context.Context, catalog output.CatalogService, name string, logger *slog.Logger) {
	var errs error
	if store, err := catalog.GetStore(ctx, name); err == nil {
		errs = multierr.Append(errs, ignoreNotFound(catalog.DeleteStore(ctx, store, true)))
	}
	if layer, err := catalog.GetLayer(ctx, name); err == nil {
		errs = multierr.Append(errs, ignoreNotFound(catalog.DeleteLayer(ctx, layer)))
	}
	if errs != nil {
		logger.Error("failed to discard incomplete store", "store", name, "error", errs)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
