package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
	"github.com/geonode/geonode/internal/ports/output"
)

// LayerService serves layer records filtered by their access rules.
type LayerService struct {
	layers      output.LayerRepository
	permissions output.PermissionRepository
	users       output.UserRepository
	logger      *slog.Logger
}

// NewLayerService creates a new layer service.
func NewLayerService(
	layers output.LayerRepository,
	permissions output.PermissionRepository,
	users output.UserRepository,
	logger *slog.Logger,
) *LayerService {
	return &LayerService{
		layers:      layers,
		permissions: permissions,
		users:       users,
		logger:      logger,
	}
}

// List returns the layers user may view.
func (s *LayerService) List(ctx context.Context, user domain.User) ([]input.LayerView, error) {
	layers, err := s.layers.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]input.LayerView, 0, len(layers))
	for _, l := range layers {
		spec, err := s.spec(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		if spec.CanView(user) {
			views = append(views, input.LayerView{Layer: l, Permissions: spec})
		}
	}
	return views, nil
}

// Get returns a layer if user may view it. A hidden layer yields an error
// wrapping domain.ErrPermissionDenied.
func (s *LayerService) Get(ctx context.Context, user domain.User, id int64) (*input.LayerView, error) {
	layer, err := s.layers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	spec, err := s.spec(ctx, id)
	if err != nil {
		return nil, err
	}
	if !spec.CanView(user) {
		return nil, fmt.Errorf("layer %d: %w", id, domain.ErrPermissionDenied)
	}
	return &input.LayerView{Layer: *layer, Permissions: spec}, nil
}

// SetPermissions replaces the rules of a layer. Only layer admins and
// superusers may do this.
func (s *LayerService) SetPermissions(ctx context.Context, user domain.User, id int64, spec domain.PermissionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, err := s.layers.GetByID(ctx, id); err != nil {
		return err
	}
	current, err := s.spec(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanAdmin(user) {
		return fmt.Errorf("layer %d: %w", id, domain.ErrPermissionDenied)
	}
	return s.apply(ctx, id, spec)
}

// ApplyPermissions sets spec on a layer without an access check. Used by the
// upload pipeline on behalf of the uploader.
func (s *LayerService) ApplyPermissions(ctx context.Context, layer *domain.Layer, spec domain.PermissionSpec) error {
	if err := spec.Validate(); err != nil {
		return domain.WrapError(domain.KindInvalidInput, layer.Name, err,
			"invalid permissions for layer %s", layer.Name)
	}
	return s.apply(ctx, layer.ID, spec)
}

// ApplyDefaultPermissions gives a newly created layer the default rules.
func (s *LayerService) ApplyDefaultPermissions(ctx context.Context, layer *domain.Layer) error {
	owner := ""
	if layer.OwnerID != 0 {
		u, err := s.users.GetByID(ctx, layer.OwnerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if u != nil {
			owner = u.Username
		}
	}
	return s.apply(ctx, layer.ID, domain.DefaultPermissions(owner))
}

func (s *LayerService) apply(ctx context.Context, id int64, spec domain.PermissionSpec) error {
	if err := s.permissions.Set(ctx, id, spec); err != nil {
		return err
	}
	s.logger.Info("permissions set", "layer_id", id,
		"anonymous", spec.Anonymous, "authenticated", spec.Authenticated, "users", len(spec.Users))
	return nil
}

// spec returns the stored rules of a layer. A layer without rules is only
// visible to superusers.
func (s *LayerService) spec(ctx context.Context, id int64) (domain.PermissionSpec, error) {
	spec, err := s.permissions.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PermissionSpec{Anonymous: domain.LevelNone, Authenticated: domain.LevelNone}, nil
	}
	if err != nil {
		return domain.PermissionSpec{}, err
	}
	return *spec, nil
}
