package domain

// Store is a named data source registered in the catalog service.
type Store struct {
	Name      string
	Workspace string
	Type      string // dataStore or coverageStore
	// ConnectionParameters is set for database-backed stores.
	ConnectionParameters map[string]string
}

// Resource is a published dataset inside a store.
type Resource struct {
	Name         string
	Title        string
	Abstract     string
	Keywords     []string
	Type         ResourceType
	Store        Store
	NativeBBox   *BoundingBox
	LatLonBBox   *BoundingBox
	Projection   string // SRS code, e.g. EPSG:4326
	GeometryType string // for feature types, as reported by the catalog
}

// Typename returns workspace:name.
func (r *Resource) Typename() string {
	return QualifiedName(r.Store.Workspace, r.Name)
}

// PublishedLayer is the catalog's publication of a resource, carrying its
// rendering style.
type PublishedLayer struct {
	Name         string
	Workspace    string
	ResourceType ResourceType
	DefaultStyle string
}

// Style is a named style document registered in the catalog.
type Style struct {
	Name     string
	Filename string
	Body     []byte
}

// Geometry families used to pick a default style.
const (
	GeometryPoint   = "Point"
	GeometryLine    = "Line"
	GeometryPolygon = "Polygon"
	GeometryRaster  = "Raster"
	GeometryUnknown = "Geometry"
)

// MetadataRecord is the discovery metadata published to the metadata catalog.
type MetadataRecord struct {
	UUID     string
	Name     string
	Typename string
	Title    string
	Abstract string
	Keywords []string
	BBox     BoundingBox
	Contact  string
	Owner    string
	Type     ResourceType
}
