// Package shapefile reads shapefile headers.
package shapefile

import (
	"fmt"

	"github.com/jonas-p/go-shp"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.GeometrySniffer = Sniffer{}

// Sniffer implements output.GeometrySniffer from the shapefile header.
type Sniffer struct{}

// GeometryType returns the geometry family of the shapefile at path.
func (Sniffer) GeometryType(path string) (string, error) {
	r, err := shp.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	return family(r.GeometryType), nil
}

func family(t shp.ShapeType) string {
	switch t {
	case shp.POINT, shp.POINTZ, shp.POINTM, shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return domain.GeometryPoint
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return domain.GeometryLine
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return domain.GeometryPolygon
	default:
		return domain.GeometryUnknown
	}
}
