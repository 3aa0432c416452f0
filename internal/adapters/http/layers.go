package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
)

// layerObject is the API representation of a layer.
type layerObject struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Typename    string                 `json:"typename"`
	Workspace   string                 `json:"workspace"`
	Store       string                 `json:"store"`
	StoreType   string                 `json:"storeType"`
	Title       string                 `json:"title"`
	UUID        string                 `json:"uuid"`
	Abstract    string                 `json:"abstract"`
	Keywords    []string               `json:"keywords"`
	OwnerID     int64                  `json:"owner_id"`
	BBoxX0      float64                `json:"bbox_x0"`
	BBoxX1      float64                `json:"bbox_x1"`
	BBoxY0      float64                `json:"bbox_y0"`
	BBoxY1      float64                `json:"bbox_y1"`
	SRID        string                 `json:"srid"`
	Date        time.Time              `json:"date"`
	ResourceURI string                 `json:"resource_uri"`
	Permissions *domain.PermissionSpec `json:"permissions,omitempty"`
}

// newLayerObject converts a view. The access rules are only exposed to
// callers allowed to change them.
func newLayerObject(v *input.LayerView, withPermissions bool) layerObject {
	l := v.Layer
	obj := layerObject{
		ID:          l.ID,
		Name:        l.Name,
		Typename:    l.Typename,
		Workspace:   l.Workspace,
		Store:       l.Store,
		StoreType:   l.StoreType,
		Title:       l.Title,
		UUID:        l.UUID,
		Abstract:    l.Abstract,
		Keywords:    l.KeywordList(),
		OwnerID:     l.OwnerID,
		BBoxX0:      l.BBox.MinX,
		BBoxX1:      l.BBox.MaxX,
		BBoxY0:      l.BBox.MinY,
		BBoxY1:      l.BBox.MaxY,
		SRID:        l.BBox.CRS,
		Date:        l.CreatedAt,
		ResourceURI: fmt.Sprintf("/api/layers/%d/", l.ID),
	}
	if obj.Keywords == nil {
		obj.Keywords = []string{}
	}
	if withPermissions {
		perms := v.Permissions
		obj.Permissions = &perms
	}
	return obj
}

func varOf(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
