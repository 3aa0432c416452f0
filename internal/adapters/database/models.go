package database

import (
	"time"

	"github.com/geonode/geonode/internal/domain"
)

type userModel struct {
	ID          int64  `gorm:"primaryKey"`
	Username    string    `gorm:"size:150;uniqueIndex;not null"`
	Password    string    `gorm:"size:128"`
	IsSuperuser bool      `gorm:"not null"`
	IsActive    bool      `gorm:"not null"` // no default: gorm would skip an explicit false
	DateJoined  time.Time `gorm:"autoCreateTime"`
}

func (userModel) TableName() string { return "auth_user" }

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.Password,
		IsSuperuser:  m.IsSuperuser,
		IsActive:     m.IsActive,
	}
}

type contactModel struct {
	ID     int64  `gorm:"primaryKey"`
	UserID int64  `gorm:"uniqueIndex:idx_contact_user_role;not null"`
	Role   string `gorm:"size:32;uniqueIndex:idx_contact_user_role;not null"`
	Name   string `gorm:"size:255"`
	User   userModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (contactModel) TableName() string { return "maps_contact" }

func (m *contactModel) toDomain() *domain.Contact {
	return &domain.Contact{ID: m.ID, UserID: m.UserID, Name: m.Name, Role: domain.ContactRole(m.Role)}
}

type layerModel struct {
	ID               int64  `gorm:"primaryKey"`
	Name             string `gorm:"size:128;uniqueIndex:idx_layer_name_workspace;not null"`
	Workspace        string `gorm:"size:128;uniqueIndex:idx_layer_name_workspace;not null"`
	Store            string `gorm:"size:128"`
	StoreType        string `gorm:"size:32"`
	Typename         string `gorm:"size:128"`
	Title            string `gorm:"size:255"`
	UUID             string `gorm:"column:uuid;size:36;index"`
	Abstract         string `gorm:"type:text"`
	Keywords         string `gorm:"type:text"`
	OwnerID          int64  `gorm:"index"`
	PocID            *int64
	MetadataAuthorID *int64
	BBoxX0           float64 `gorm:"column:bbox_x0"`
	BBoxX1           float64 `gorm:"column:bbox_x1"`
	BBoxY0           float64 `gorm:"column:bbox_y0"`
	BBoxY1           float64 `gorm:"column:bbox_y1"`
	MercX0           float64 `gorm:"column:merc_x0"`
	MercX1           float64 `gorm:"column:merc_x1"`
	MercY0           float64 `gorm:"column:merc_y0"`
	MercY1           float64 `gorm:"column:merc_y1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Poc            *contactModel `gorm:"foreignKey:PocID;constraint:OnDelete:SET NULL"`
	MetadataAuthor *contactModel `gorm:"foreignKey:MetadataAuthorID;constraint:OnDelete:SET NULL"`
}

func (layerModel) TableName() string { return "maps_layer" }

func (m *layerModel) toDomain() *domain.Layer {
	return &domain.Layer{
		ID:               m.ID,
		Name:             m.Name,
		Workspace:        m.Workspace,
		Store:            m.Store,
		StoreType:        m.StoreType,
		Typename:         m.Typename,
		Title:            m.Title,
		UUID:             m.UUID,
		Abstract:         m.Abstract,
		Keywords:         m.Keywords,
		OwnerID:          m.OwnerID,
		PocID:            m.PocID,
		MetadataAuthorID: m.MetadataAuthorID,
		BBox:             domain.BoundingBox{MinX: m.BBoxX0, MaxX: m.BBoxX1, MinY: m.BBoxY0, MaxY: m.BBoxY1, CRS: domain.CRSWGS84},
		MercatorBBox:     domain.BoundingBox{MinX: m.MercX0, MaxX: m.MercX1, MinY: m.MercY0, MaxY: m.MercY1, CRS: domain.CRSMercator},
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func layerFromDomain(l *domain.Layer) *layerModel {
	return &layerModel{
		ID:               l.ID,
		Name:             l.Name,
		Workspace:        l.Workspace,
		Store:            l.Store,
		StoreType:        l.StoreType,
		Typename:         l.Typename,
		Title:            l.Title,
		UUID:             l.UUID,
		Abstract:         l.Abstract,
		Keywords:         l.Keywords,
		OwnerID:          l.OwnerID,
		PocID:            l.PocID,
		MetadataAuthorID: l.MetadataAuthorID,
		BBoxX0:           l.BBox.MinX,
		BBoxX1:           l.BBox.MaxX,
		BBoxY0:           l.BBox.MinY,
		BBoxY1:           l.BBox.MaxY,
		MercX0:           l.MercatorBBox.MinX,
		MercX1:           l.MercatorBBox.MaxX,
		MercY0:           l.MercatorBBox.MinY,
		MercY1:           l.MercatorBBox.MaxY,
		CreatedAt:        l.CreatedAt,
	}
}

// Principals of a permission row.
const (
	principalAnonymous     = "anonymous"
	principalAuthenticated = "authenticated"
	principalUser          = "user"
)

type permissionModel struct {
	ID        int64  `gorm:"primaryKey"`
	LayerID   int64  `gorm:"index;not null"`
	Principal string `gorm:"size:16;not null"`
	Username  string `gorm:"size:150"`
	Level     string `gorm:"size:32;not null"`
	Position  int

	Layer layerModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (permissionModel) TableName() string { return "maps_layerpermission" }
