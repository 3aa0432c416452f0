package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.PermissionRepository = (*PermissionRepository)(nil)

// PermissionRepository implements output.PermissionRepository. A spec is
// stored as one row per principal.
type PermissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository creates a new permission repository.
func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Get returns the permission spec stored for a layer.
func (r *PermissionRepository) Get(ctx context.Context, layerID int64) (*domain.PermissionSpec, error) {
	var rows []permissionModel
	err := r.db.WithContext(ctx).Where("layer_id = ?", layerID).Order("position").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading permissions of layer %d: %w", layerID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("permissions of layer %d: %w", layerID, domain.ErrNotFound)
	}

	spec := &domain.PermissionSpec{Anonymous: domain.LevelNone, Authenticated: domain.LevelNone}
	for _, row := range rows {
		level := domain.PermissionLevel(row.Level)
		switch row.Principal {
		case principalAnonymous:
			spec.Anonymous = level
		case principalAuthenticated:
			spec.Authenticated = level
		case principalUser:
			spec.Users = append(spec.Users, domain.UserPermission{Username: row.Username, Level: level})
		}
	}
	return spec, nil
}

// Set replaces the permission spec of a layer.
func (r *PermissionRepository) Set(ctx context.Context, layerID int64, spec domain.PermissionSpec) error {
	rows := []permissionModel{
		{LayerID: layerID, Principal: principalAnonymous, Level: string(orNone(spec.Anonymous)), Position: 0},
		{LayerID: layerID, Principal: principalAuthenticated, Level: string(orNone(spec.Authenticated)), Position: 1},
	}
	for i, u := range spec.Users {
		rows = append(rows, permissionModel{
			LayerID:   layerID,
			Principal: principalUser,
			Username:  u.Username,
			Level:     string(u.Level),
			Position:  i + 2,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("layer_id = ?", layerID).Delete(&permissionModel{}).Error; err != nil {
			return fmt.Errorf("clearing permissions of layer %d: %w", layerID, err)
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return fmt.Errorf("storing permissions of layer %d: %w", layerID, err)
		}
		return nil
	})
}

func orNone(l domain.PermissionLevel) domain.PermissionLevel {
	if l == "" {
		return domain.LevelNone
	}
	return l
}
