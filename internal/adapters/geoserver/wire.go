package geoserver

import (
	"encoding/json"
	"strings"

	"github.com/geonode/geonode/internal/domain"
)

type named struct {
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

// namedList decodes a GeoServer collection, which is a single object when
// it has one member and an empty string when it has none.
type namedList []named

func (l *namedList) UnmarshalJSON(data []byte) error {
	switch {
	case len(data) == 0 || data[0] == '"' || string(data) == "null":
		*l = nil
		return nil
	case data[0] == '{':
		var one named
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = namedList{one}
		return nil
	default:
		var many []named
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
}

func (l namedList) names() []string {
	out := make([]string, 0, len(l))
	for _, n := range l {
		out = append(out, n.Name)
	}
	return out
}

// crsValue is either "EPSG:4326" or {"@class": "projected", "$": "EPSG:..."}.
type crsValue string

func (c *crsValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value string `json:"$"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = crsValue(obj.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = crsValue(s)
	return nil
}

type bboxJSON struct {
	MinX float64  `json:"minx"`
	MaxX float64  `json:"maxx"`
	MinY float64  `json:"miny"`
	MaxY float64  `json:"maxy"`
	CRS  crsValue `json:"crs,omitempty"`
}

func (b *bboxJSON) toDomain() *domain.BoundingBox {
	if b == nil {
		return nil
	}
	return &domain.BoundingBox{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY, CRS: string(b.CRS)}
}

func bboxFromDomain(b *domain.BoundingBox) *bboxJSON {
	if b == nil {
		return nil
	}
	return &bboxJSON{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY, CRS: crsValue(b.CRS)}
}

type keywordsJSON struct {
	String []string `json:"string"`
}

// resourceJSON is the body of a featureType or coverage.
type resourceJSON struct {
	Name              string        `json:"name"`
	NativeName        string        `json:"nativeName,omitempty"`
	Title             string        `json:"title,omitempty"`
	Abstract          string        `json:"abstract,omitempty"`
	Keywords          *keywordsJSON `json:"keywords,omitempty"`
	SRS               string        `json:"srs,omitempty"`
	ProjectionPolicy  string        `json:"projectionPolicy,omitempty"`
	Enabled           *bool         `json:"enabled,omitempty"`
	NativeBoundingBox *bboxJSON     `json:"nativeBoundingBox,omitempty"`
	LatLonBoundingBox *bboxJSON     `json:"latLonBoundingBox,omitempty"`
	Store             *named        `json:"store,omitempty"`
}

func (r *resourceJSON) toDomain(t domain.ResourceType, store domain.Store) *domain.Resource {
	res := &domain.Resource{
		Name:       r.Name,
		Title:      r.Title,
		Abstract:   r.Abstract,
		Type:       t,
		Store:      store,
		NativeBBox: r.NativeBoundingBox.toDomain(),
		Projection: r.SRS,
	}
	if r.Keywords != nil {
		res.Keywords = r.Keywords.String
	}
	// GeoServer reports a lat/lon box even when it could not work out the
	// projection; without an SRS it is meaningless.
	if r.SRS != "" && r.LatLonBoundingBox != nil {
		res.LatLonBBox = r.LatLonBoundingBox.toDomain()
	}
	return res
}

type entryJSON struct {
	Key   string `json:"@key"`
	Value string `json:"$"`
}

type connectionJSON struct {
	Entry []entryJSON `json:"entry"`
}

type storeJSON struct {
	Name                 string          `json:"name"`
	Type                 string          `json:"type,omitempty"`
	Enabled              bool            `json:"enabled"`
	Workspace            *named          `json:"workspace,omitempty"`
	ConnectionParameters *connectionJSON `json:"connectionParameters,omitempty"`
}

func (s *storeJSON) toDomain(workspace, storeType string) *domain.Store {
	store := &domain.Store{Name: s.Name, Workspace: workspace, Type: storeType}
	if s.ConnectionParameters != nil && len(s.ConnectionParameters.Entry) > 0 {
		store.ConnectionParameters = make(map[string]string, len(s.ConnectionParameters.Entry))
		for _, e := range s.ConnectionParameters.Entry {
			store.ConnectionParameters[e.Key] = e.Value
		}
	}
	return store
}

type layerJSON struct {
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"` // VECTOR or RASTER
	DefaultStyle *named `json:"defaultStyle,omitempty"`
	Resource     *struct {
		Class string `json:"@class"`
		Name  string `json:"name"`
		Href  string `json:"href"`
	} `json:"resource,omitempty"`
}

func (l *layerJSON) resourceType() domain.ResourceType {
	if l.Type == "RASTER" || (l.Resource != nil && l.Resource.Class == "coverage") {
		return domain.ResourceCoverage
	}
	return domain.ResourceFeatureType
}

// localName strips the workspace prefix from "workspace:name".
func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}
