package application

import (
	"context"

	"github.com/geonode/geonode/internal/ports/input"
	"github.com/geonode/geonode/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	catalog  output.CatalogService
	metadata output.MetadataCatalog
	layers   output.LayerRepository
}

// NewHealthService creates a new health service.
func NewHealthService(catalog output.CatalogService, metadata output.MetadataCatalog, layers output.LayerRepository) *HealthService {
	return &HealthService{
		catalog:  catalog,
		metadata: metadata,
		layers:   layers,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true when the database and both remote catalogs answer.
func (s *HealthService) IsReady(ctx context.Context) bool {
	for _, status := range s.components(ctx) {
		if status != "ok" {
			return false
		}
	}
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := s.components(ctx)

	ready := true
	for _, status := range components {
		if status != "ok" {
			ready = false
		}
	}

	loaded := 0
	if layers, err := s.layers.List(ctx); err == nil {
		loaded = len(layers)
	}

	return input.HealthDetails{
		Healthy:      s.IsHealthy(ctx),
		Ready:        ready,
		LayersLoaded: loaded,
		Components:   components,
	}
}

func (s *HealthService) components(ctx context.Context) map[string]string {
	components := map[string]string{
		"database": "ok",
		"catalog":  "ok",
		"metadata": "ok",
	}
	if _, err := s.layers.List(ctx); err != nil {
		components["database"] = err.Error()
	}
	if _, err := s.catalog.Workspaces(ctx); err != nil {
		components["catalog"] = err.Error()
	}
	if err := s.metadata.Login(ctx); err != nil {
		components["metadata"] = err.Error()
	}
	return components
}
