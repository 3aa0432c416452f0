package domain

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// SRIDWGS84 is the EPSG code of WGS84 geographic coordinates.
const SRIDWGS84 = 4326

// CRSWGS84 is the reference system assumed for data without a detectable projection.
const CRSWGS84 = "EPSG:4326"

// CRSMercator is the spherical mercator code used for map extents.
const CRSMercator = "EPSG:900913"

// BoundingBox is an axis-aligned extent with its reference system.
type BoundingBox struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
	CRS  string
}

// NewBoundingBox creates a bounding box from an orb bound.
func NewBoundingBox(b orb.Bound, crs string) BoundingBox {
	return BoundingBox{
		MinX: b.Min.X(), MaxX: b.Max.X(),
		MinY: b.Min.Y(), MaxY: b.Max.Y(),
		CRS: crs,
	}
}

// Bound returns the extent as an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinX, b.MinY},
		Max: orb.Point{b.MaxX, b.MaxY},
	}
}

// IsGeographic reports whether every bound value lies within the valid
// longitude (-180..180) and latitude (-90..90) ranges.
func (b BoundingBox) IsGeographic() bool {
	return inRange(b.MinX, -180, 180) && inRange(b.MaxX, -180, 180) &&
		inRange(b.MinY, -90, 90) && inRange(b.MaxY, -90, 90)
}

// Validate checks that the box is not inverted.
func (b BoundingBox) Validate() error {
	if b.MinX > b.MaxX {
		return &ValidationError{
			Field:      "bbox.x",
			Value:      [2]float64{b.MinX, b.MaxX},
			Constraint: "minx <= maxx",
			Message:    "bounding box is inverted along x",
		}
	}
	if b.MinY > b.MaxY {
		return &ValidationError{
			Field:      "bbox.y",
			Value:      [2]float64{b.MinY, b.MaxY},
			Constraint: "miny <= maxy",
			Message:    "bounding box is inverted along y",
		}
	}
	return nil
}

// String returns a string representation of the box.
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%f, %f, %f, %f] %s", b.MinX, b.MaxX, b.MinY, b.MaxY, b.CRS)
}

// Mercator returns the box projected to spherical mercator. Latitudes are
// clamped to the projection's limit so the result stays finite.
func (b BoundingBox) Mercator() BoundingBox {
	lo := ForwardMercator(orb.Point{b.MinX, clampLat(b.MinY)})
	hi := ForwardMercator(orb.Point{b.MaxX, clampLat(b.MaxY)})
	return BoundingBox{
		MinX: lo.X(), MaxX: hi.X(),
		MinY: lo.Y(), MaxY: hi.Y(),
		CRS: CRSMercator,
	}
}

// ForwardMercator converts a lon/lat point to spherical mercator x/y.
func ForwardMercator(lonlat orb.Point) orb.Point {
	return project.WGS84.ToMercator(lonlat)
}

// InverseMercator converts a spherical mercator x/y point to lon/lat.
func InverseMercator(xy orb.Point) orb.Point {
	return project.Mercator.ToWGS84(xy)
}

// mercatorMaxLat is the latitude at which spherical mercator becomes square.
const mercatorMaxLat = 85.0511287798

func clampLat(lat float64) float64 {
	if lat > mercatorMaxLat {
		return mercatorMaxLat
	}
	if lat < -mercatorMaxLat {
		return -mercatorMaxLat
	}
	return lat
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
