package application

import (
	"context"
	"fmt"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

// CatalogVerifier checks that a saved layer is published in the catalog with
// a style and that its metadata record answers under the layer UUID.
type CatalogVerifier struct {
	catalog  output.CatalogService
	metadata output.MetadataCatalog
}

// NewCatalogVerifier creates a verifier backed by both catalogs.
func NewCatalogVerifier(catalog output.CatalogService, metadata output.MetadataCatalog) *CatalogVerifier {
	return &CatalogVerifier{catalog: catalog, metadata: metadata}
}

// Verify implements LayerVerifier.
func (v *CatalogVerifier) Verify(ctx context.Context, layer *domain.Layer) error {
	published, err := v.catalog.GetLayer(ctx, layer.Name)
	if err != nil {
		return fmt.Errorf("catalog layer %s: %w", layer.Name, err)
	}
	if published.DefaultStyle == "" {
		return fmt.Errorf("catalog layer %s has no default style", layer.Name)
	}

	store := &domain.Store{Name: layer.Store, Workspace: layer.Workspace, Type: layer.StoreType}
	if _, err := v.catalog.GetResource(ctx, layer.Name, store); err != nil {
		return fmt.Errorf("catalog resource %s: %w", layer.Name, err)
	}

	record, err := v.metadata.GetByUUID(ctx, layer.UUID)
	if err != nil {
		return fmt.Errorf("metadata record %s: %w", layer.UUID, err)
	}
	if record.Typename != "" && record.Typename != layer.Typename {
		return fmt.Errorf("metadata record %s describes %s, not %s", layer.UUID, record.Typename, layer.Typename)
	}
	return nil
}
