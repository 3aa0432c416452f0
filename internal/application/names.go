package application

import (
	"context"
	"log/slog"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

// NameResolver turns a requested layer name into a valid catalog name that
// does not collide with an existing layer record.
type NameResolver struct {
	layers output.LayerRepository
	logger *slog.Logger
}

// NewNameResolver creates a new name resolver.
func NewNameResolver(layers output.LayerRepository, logger *slog.Logger) *NameResolver {
	return &NameResolver{
		layers: layers,
		logger: logger,
	}
}

// Resolve returns the name to publish ref under. With overwrite set the
// requested name is kept as is; otherwise it is sanitized and suffixed with
// _1, _2, ... until no layer record uses it.
func (r *NameResolver) Resolve(ctx context.Context, ref domain.LayerRef, overwrite bool) (string, error) {
	if ref.Name == "" {
		return "", domain.NewError(domain.KindInvalidInput, "",
			"you must pass either a filename or an existing layer")
	}
	if overwrite {
		return ref.Name, nil
	}

	name := domain.SanitizeName(ref.Name)
	proposed := name
	for n := 1; ; n++ {
		exists, err := r.layers.Exists(ctx, proposed)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		proposed = domain.SuffixedName(name, n)
		r.logger.Info("requested name already used, adjusting name",
			"requested", ref.Name, "proposed", proposed)
	}

	if proposed == name {
		r.logger.Debug("using name as requested", "name", name)
	}
	return proposed, nil
}
