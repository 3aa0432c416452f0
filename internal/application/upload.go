package application

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

// LayerVerifier performs a deep consistency check of a saved layer against
// the remote catalogs. Returning domain.ErrNotImplemented skips the check.
type LayerVerifier interface {
	Verify(ctx context.Context, layer *domain.Layer) error
}

// noDeepVerify is the verifier used when none is configured.
type noDeepVerify struct{}

func (noDeepVerify) Verify(context.Context, *domain.Layer) error {
	return domain.ErrNotImplemented
}

// UploadOptions configures the upload service.
type UploadOptions struct {
	CatalogURL  string // shown in connectivity errors
	MetadataURL string // shown in connectivity errors
	StagingDir  string // where .zip archives are unpacked; empty uses the OS temp dir
}

// UploadDependencies bundles the collaborators of the upload service.
type UploadDependencies struct {
	Catalog  output.CatalogService
	Metadata output.MetadataCatalog
	Layers   output.LayerRepository
	Contacts output.ContactRepository
	Names    *NameResolver
	Stores   *StoreCreator
	Access   *LayerService
	Users    *UsersService
	Styles   output.StyleGenerator
	Sniffer  output.GeometrySniffer
	Verifier LayerVerifier // optional
	Metrics  output.MetricsCollector
}

// UploadService publishes spatial data files to the catalog and registers
// them as layers.
type UploadService struct {
	catalog  output.CatalogService
	metadata output.MetadataCatalog
	layers   output.LayerRepository
	contacts output.ContactRepository
	names    *NameResolver
	stores   *StoreCreator
	access   *LayerService
	users    *UsersService
	styles   output.StyleGenerator
	sniffer  output.GeometrySniffer
	verifier LayerVerifier
	metrics  output.MetricsCollector
	opts     UploadOptions
	logger   *slog.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(deps UploadDependencies, opts UploadOptions, logger *slog.Logger) *UploadService {
	verifier := deps.Verifier
	if verifier == nil {
		verifier = noDeepVerify{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &UploadService{
		catalog:  deps.Catalog,
		metadata: deps.Metadata,
		layers:   deps.Layers,
		contacts: deps.Contacts,
		names:    deps.Names,
		stores:   deps.Stores,
		access:   deps.Access,
		users:    deps.Users,
		styles:   deps.Styles,
		sniffer:  deps.Sniffer,
		verifier: verifier,
		metrics:  metrics,
		opts:     opts,
		logger:   logger,
	}
}

// upload is the state of one file moving through Save.
type upload struct {
	req          domain.SaveRequest
	state        domain.UploadState
	name         string
	resourceType domain.ResourceType
	files        domain.FileSet
	strategy     StoreStrategy
	store        *domain.Store
	resource     *domain.Resource
	layer        *domain.Layer
	created      bool
	rollback     domain.Rollback
}

func (u *upload) advance(logger *slog.Logger) {
	u.state = u.state.Next()
	logger.Info("upload step done", "step", u.state, "name", u.name)
}

// Save publishes req.BaseFile under the layer req.Layer refers to. On
// failure every external and local artifact created so far is removed and
// the original error is returned.
func (s *UploadService) Save(ctx context.Context, req domain.SaveRequest) (*domain.Layer, error) {
	start := time.Now()
	u := &upload{req: req, state: domain.StatePending}
	s.logger.Info("uploading layer", "layer", req.Layer.String(), "file", req.BaseFile)

	layer, err := s.save(ctx, u)
	s.metrics.ObserveUploadDuration(string(u.resourceType), time.Since(start))
	if err == nil {
		s.metrics.IncUploads(string(u.resourceType), true, "")
		if all, lerr := s.layers.List(ctx); lerr == nil {
			s.metrics.SetLayersPublished(len(all))
		}
		return layer, nil
	}

	failedAt := u.state
	u.state = domain.StateFailed
	s.metrics.IncUploads(string(u.resourceType), false, domain.KindOf(err).String())
	s.logger.Warn("upload failed", "name", u.name, "file", req.BaseFile, "after", failedAt, "error", err)

	if u.rollback.Len() == 0 {
		return nil, err
	}
	s.logger.Info("rolling back upload", "name", u.name, "steps", u.rollback.Len())
	if rbErr := u.rollback.Run(ctx); rbErr != nil {
		s.metrics.IncRollbacks(false)
		s.logger.Error("rollback incomplete", "name", u.name, "error", rbErr)
		return nil, multierr.Append(err, rbErr)
	}
	s.metrics.IncRollbacks(true)
	return nil, err
}

func (s *UploadService) save(ctx context.Context, u *upload) (*domain.Layer, error) {
	req := u.req

	if _, err := os.Stat(req.BaseFile); err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, req.BaseFile, err,
			"could not open %s to save %s; make sure you are using a valid file", req.BaseFile, req.Layer.String())
	}
	owner, err := s.users.RequireUser(req.User)
	if err != nil {
		return nil, err
	}

	overwrite := req.Overwrite
	name, err := s.names.Resolve(ctx, req.Layer, overwrite)
	if err != nil {
		return nil, err
	}
	u.name = name
	u.advance(s.logger)

	if u.resourceType, err = domain.LayerTypeFor(req.BaseFile); err != nil {
		return nil, err
	}
	existing, err := s.stores.CheckExisting(ctx, name, u.resourceType, overwrite)
	if err != nil {
		return nil, err
	}
	if u.strategy, err = s.stores.Strategy(u.resourceType); err != nil {
		return nil, err
	}
	if u.files, err = CollectFiles(req.BaseFile); err != nil {
		return nil, err
	}
	u.advance(s.logger)

	s.logger.Info("uploading to catalog", "name", name, "strategy", u.strategy.Name())
	u.store, u.resource, err = u.strategy.Create(ctx, name, u.files, overwrite)
	if err != nil {
		return nil, err
	}
	store, resource, strategy := u.store, u.resource, u.strategy
	if existing.store {
		store = nil
	}
	removeCreated := func(ctx context.Context) error {
		return strategy.Remove(ctx, store, resource)
	}
	// An overwritten layer stays in the catalog when a later step fails;
	// only what this upload added is taken down.
	if !existing.layer {
		u.rollback.Add("catalog_store", removeCreated)
	}
	u.advance(s.logger)

	if err := s.normalizeProjection(ctx, u.resource); err != nil {
		// A layer without a usable projection is backed out even when it
		// replaced an existing one.
		if existing.layer {
			u.rollback.Add("catalog_store", removeCreated)
		}
		return nil, err
	}
	u.advance(s.logger)

	if err := s.assignStyle(ctx, u); err != nil {
		return nil, err
	}
	u.advance(s.logger)

	if err := s.registerLayer(ctx, u, owner); err != nil {
		return nil, err
	}
	u.advance(s.logger)

	if req.Permissions != nil {
		if err := s.access.ApplyPermissions(ctx, u.layer, *req.Permissions); err != nil {
			return nil, err
		}
	}
	u.advance(s.logger)

	if err := s.verify(ctx, u); err != nil {
		return nil, err
	}
	u.rollback.Discard()
	u.advance(s.logger)

	return u.layer, nil
}

// normalizeProjection assumes EPSG:4326 for a resource the catalog could
// not find a projection for, as long as its native bounds look geographic.
func (s *UploadService) normalizeProjection(ctx context.Context, resource *domain.Resource) error {
	if resource.LatLonBBox != nil {
		return nil
	}
	if resource.NativeBBox == nil {
		return domain.NewError(domain.KindProjectionUnknown, resource.Name,
			"the catalog reported no bounding box for layer %s", resource.Name)
	}
	if !resource.NativeBBox.IsGeographic() {
		return domain.NewError(domain.KindProjectionUnknown, resource.Name,
			"the catalog failed to detect the projection for layer %s; it does not look like %s, so backing out the layer",
			resource.Name, domain.CRSWGS84)
	}

	s.logger.Warn("catalog failed to detect the projection, guessing EPSG:4326", "name", resource.Name)
	latlon := *resource.NativeBBox
	latlon.CRS = domain.CRSWGS84
	resource.LatLonBBox = &latlon
	resource.Projection = domain.CRSWGS84
	if err := s.catalog.SaveResource(ctx, resource); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, resource.Name, err,
			"could not save the projection of layer %s", resource.Name)
	}
	return nil
}

// assignStyle registers the supplied or a generated style under the layer
// name and makes it the default style. An existing style is reused.
func (s *UploadService) assignStyle(ctx context.Context, u *upload) error {
	publishing, err := s.catalog.GetLayer(ctx, u.name)
	if err != nil {
		return domain.WrapError(domain.KindResourceMissing, u.name, err,
			"catalog has no published layer %s", u.name)
	}

	var sld []byte
	if u.files.HasStyle() {
		if sld, err = os.ReadFile(u.files.SLD); err != nil {
			return domain.WrapError(domain.KindInvalidInput, u.name, err,
				"could not read style file %s", u.files.SLD)
		}
	} else {
		if sld, err = s.styles.Generate(u.name, s.geometryType(u)); err != nil {
			return domain.WrapError(domain.KindInvalidInput, u.name, err,
				"could not generate a style for %s", u.name)
		}
	}

	err = s.catalog.CreateStyle(ctx, &domain.Style{Name: u.name, Filename: u.name + ".sld", Body: sld})
	switch {
	case errors.Is(err, domain.ErrConflict):
		s.logger.Warn("style already exists, cannot overwrite", "style", u.name, "error", err)
	case err != nil:
		return domain.WrapError(domain.KindUploadFailed, u.name, err,
			"could not create style %s", u.name)
	}

	style, err := s.catalog.GetStyle(ctx, u.name)
	if err != nil {
		return domain.WrapError(domain.KindResourceMissing, u.name, err,
			"style %s is missing after creation", u.name)
	}
	publishing.DefaultStyle = style.Name
	if err := s.catalog.SaveLayer(ctx, publishing); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, u.name, err,
			"could not set the default style of %s", u.name)
	}
	return nil
}

func (s *UploadService) geometryType(u *upload) string {
	if u.resourceType == domain.ResourceCoverage {
		return domain.GeometryRaster
	}
	if s.sniffer != nil && u.files.SHP != "" {
		if g, err := s.sniffer.GeometryType(u.files.SHP); err == nil {
			return g
		}
	}
	if u.resource.GeometryType != "" {
		return u.resource.GeometryType
	}
	return domain.GeometryUnknown
}

// registerLayer writes the local layer record, its contacts and the
// metadata catalog record.
func (s *UploadService) registerLayer(ctx context.Context, u *upload, owner *domain.User) error {
	req, resource := u.req, u.resource

	id, err := uuid.NewUUID()
	if err != nil {
		return domain.WrapError(domain.KindUnknown, u.name, err, "could not generate a layer UUID")
	}
	title := req.Title
	if title == "" {
		title = resource.Title
	}
	abstract := req.Abstract
	if abstract == "" {
		abstract = resource.Abstract
	}
	defaults := domain.LayerDefaults{
		Store:     resource.Store.Name,
		StoreType: resource.Type.StoreType(),
		Typename:  resource.Typename(),
		Title:     title,
		UUID:      id.String(),
		Keywords:  domain.JoinKeywords(req.Keywords),
		Abstract:  abstract,
		OwnerID:   owner.ID,
	}
	if resource.LatLonBBox != nil {
		defaults.BBox = *resource.LatLonBBox
	}

	layer, created, err := s.layers.GetOrCreate(ctx, resource.Name, resource.Store.Workspace, defaults)
	if err != nil {
		return domain.WrapError(domain.KindUnknown, u.name, err, "could not save layer record %s", u.name)
	}
	u.layer, u.created = layer, created
	if created {
		layerID := layer.ID
		u.rollback.Add("layer_record", func(ctx context.Context) error {
			return s.layers.Delete(ctx, layerID)
		})
		if err := s.access.ApplyDefaultPermissions(ctx, layer); err != nil {
			return err
		}
	}

	poc, err := s.contacts.GetOrCreate(ctx, *owner, domain.RolePointOfContact)
	if err != nil {
		return err
	}
	author, err := s.contacts.GetOrCreate(ctx, *owner, domain.RoleAuthor)
	if err != nil {
		return err
	}
	s.logger.Debug("contacts linked", "name", u.name, "poc", poc.Name, "author", author.Name)

	layer.PocID = &poc.ID
	layer.MetadataAuthorID = &author.ID
	if resource.LatLonBBox != nil {
		layer.BBox = *resource.LatLonBBox
		layer.MercatorBBox = resource.LatLonBBox.Mercator()
	}
	if err := s.layers.Update(ctx, layer); err != nil {
		return domain.WrapError(domain.KindUnknown, u.name, err, "could not update layer record %s", u.name)
	}

	record := &domain.MetadataRecord{
		UUID:     layer.UUID,
		Name:     layer.Name,
		Typename: layer.Typename,
		Title:    layer.Title,
		Abstract: layer.Abstract,
		Keywords: layer.KeywordList(),
		BBox:     layer.BBox,
		Contact:  poc.Name,
		Owner:    owner.Username,
		Type:     resource.Type,
	}
	if err := s.metadata.Publish(ctx, record); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, u.name, err,
			"could not publish metadata record for %s", u.name)
	}
	if created {
		recordID := layer.UUID
		u.rollback.Add("metadata_record", func(ctx context.Context) error {
			return ignoreNotFound(s.metadata.Delete(ctx, recordID))
		})
	}
	return nil
}

// verify checks the layer record landed and runs the deep verifier.
func (s *UploadService) verify(ctx context.Context, u *upload) error {
	if _, err := s.layers.GetByName(ctx, u.name); err != nil {
		s.logger.Error("layer record missing after save", "name", u.name, "error", err)
		// Cleanup takes over from the rollback: it removes what can be
		// found by name and UUID.
		u.rollback.Discard()
		if cerr := s.Cleanup(ctx, u.name, u.layer.UUID); cerr != nil {
			s.logger.Error("cleanup failed", "name", u.name, "error", cerr)
		}
		return domain.WrapError(domain.KindVerificationFailed, u.name, err,
			"there was a problem saving the layer %s", u.name)
	}

	err := s.verifier.Verify(ctx, u.layer)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotImplemented):
		s.logger.Debug("deep layer verification not implemented, skipping", "name", u.name)
		return nil
	default:
		if !u.created {
			layerID := u.layer.ID
			u.rollback.Add("layer_record", func(ctx context.Context) error {
				return s.layers.Delete(ctx, layerID)
			})
		}
		return domain.WrapError(domain.KindVerificationFailed, u.name, err,
			"the layer %s was not correctly saved to the catalogs", u.name)
	}
}

// Cleanup deletes the catalog store, resource, published layer and metadata
// record left behind by a failed upload. It refuses to run while a local
// layer record of that name exists.
func (s *UploadService) Cleanup(ctx context.Context, name, recordUUID string) error {
	exists, err := s.layers.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return domain.NewError(domain.KindNameConflict, name,
			"not doing any cleanup because the layer %s exists in the database", name)
	}

	var errs error
	store, err := s.catalog.GetStore(ctx, name)
	switch {
	case err == nil:
		var resource *domain.Resource
		if layer, lerr := s.catalog.GetLayer(ctx, name); lerr == nil {
			if err := s.catalog.DeleteLayer(ctx, layer); err != nil {
				s.logger.Error("could not delete catalog layer during cleanup", "name", name, "error", err)
				errs = multierr.Append(errs, err)
			}
			resource, _ = s.catalog.GetResource(ctx, name, store)
		}
		if resource != nil {
			if err := s.catalog.DeleteResource(ctx, resource); err != nil {
				s.logger.Error("could not delete catalog resource during cleanup", "name", name, "error", err)
				errs = multierr.Append(errs, err)
			}
		}
		if err := s.catalog.DeleteStore(ctx, store, true); err != nil {
			s.logger.Error("could not delete catalog store during cleanup", "name", name, "error", err)
			errs = multierr.Append(errs, err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.Error("could not connect to the catalog while cleaning up", "name", name, "error", err)
		errs = multierr.Append(errs, err)
	}

	if recordUUID != "" {
		if _, err := s.metadata.GetByUUID(ctx, recordUUID); err == nil {
			s.logger.Warn("deleting dangling metadata record", "name", name, "uuid", recordUUID)
			if err := s.metadata.Delete(ctx, recordUUID); err != nil {
				s.logger.Error("could not delete metadata record during cleanup", "uuid", recordUUID, "error", err)
				errs = multierr.Append(errs, err)
			}
		}
	}

	s.logger.Warn("finished cleanup after failed import", "name", name)
	return errs
}

// CheckServices fails fast when either remote catalog is unreachable.
func (s *UploadService) CheckServices(ctx context.Context) error {
	if _, err := s.catalog.Workspaces(ctx); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, "", err,
			"cannot connect to the catalog service at %s; please make sure it is running", s.opts.CatalogURL)
	}
	if err := s.metadata.Login(ctx); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, "", err,
			"cannot connect to the metadata catalog at %s; please make sure it is running", s.opts.MetadataURL)
	}
	return nil
}
