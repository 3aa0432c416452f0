package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.LayerRepository = (*LayerRepository)(nil)

// LayerRepository implements output.LayerRepository.
type LayerRepository struct {
	db *gorm.DB
}

// NewLayerRepository creates a new layer repository.
func NewLayerRepository(db *gorm.DB) *LayerRepository {
	return &LayerRepository{db: db}
}

func (r *LayerRepository) get(ctx context.Context, query interface{}, args ...interface{}) (*domain.Layer, error) {
	var m layerModel
	err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading layer: %w", err)
	}
	return m.toDomain(), nil
}

// GetByName returns the layer called name.
func (r *LayerRepository) GetByName(ctx context.Context, name string) (*domain.Layer, error) {
	return r.get(ctx, "name = ?", name)
}

// GetByID returns the layer with the given ID.
func (r *LayerRepository) GetByID(ctx context.Context, id int64) (*domain.Layer, error) {
	return r.get(ctx, "id = ?", id)
}

// Exists reports whether a layer called name is recorded.
func (r *LayerRepository) Exists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&layerModel{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("counting layers: %w", err)
	}
	return n > 0, nil
}

// GetOrCreate returns the layer identified by (name, workspace), creating it
// from defaults when missing.
func (r *LayerRepository) GetOrCreate(ctx context.Context, name, workspace string, d domain.LayerDefaults) (*domain.Layer, bool, error) {
	var (
		m       layerModel
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name = ? AND workspace = ?", name, workspace).First(&m).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		m = layerModel{
			Name:      name,
			Workspace: workspace,
			Store:     d.Store,
			StoreType: d.StoreType,
			Typename:  d.Typename,
			Title:     d.Title,
			UUID:      d.UUID,
			Keywords:  d.Keywords,
			Abstract:  d.Abstract,
			OwnerID:   d.OwnerID,
			BBoxX0:    d.BBox.MinX,
			BBoxX1:    d.BBox.MaxX,
			BBoxY0:    d.BBox.MinY,
			BBoxY1:    d.BBox.MaxY,
		}
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with another writer; the row is there now.
		l, err := r.get(ctx, "name = ? AND workspace = ?", name, workspace)
		return l, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("get or create layer %s: %w", name, err)
	}
	return m.toDomain(), created, nil
}

// Update persists every field of an existing layer.
func (r *LayerRepository) Update(ctx context.Context, layer *domain.Layer) error {
	m := layerFromDomain(layer)
	res := r.db.WithContext(ctx).
		Model(&layerModel{ID: layer.ID}).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("updating layer %s: %w", layer.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrLayerNotFound
	}
	return nil
}

// Delete removes a layer record and its permissions.
func (r *LayerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("layer_id = ?", id).Delete(&permissionModel{}).Error; err != nil {
			return fmt.Errorf("deleting permissions of layer %d: %w", id, err)
		}
		res := tx.Delete(&layerModel{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting layer %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrLayerNotFound
		}
		return nil
	})
}

// List returns every layer ordered by ID.
func (r *LayerRepository) List(ctx context.Context) ([]domain.Layer, error) {
	var models []layerModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing layers: %w", err)
	}
	layers := make([]domain.Layer, 0, len(models))
	for i := range models {
		layers = append(layers, *models[i].toDomain())
	}
	return layers, nil
}
