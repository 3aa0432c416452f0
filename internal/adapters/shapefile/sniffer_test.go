package shapefile

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/geonode/geonode/internal/domain"
)

func writeShapefile(t *testing.T, name string, shapeType shp.ShapeType, shapes ...shp.Shape) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := shp.Create(path, shapeType)
	if err != nil {
		t.Fatalf("shp.Create() error = %v", err)
	}
	for _, s := range shapes {
		w.Write(s)
	}
	w.Close()
	return path
}

func TestSnifferGeometryType(t *testing.T) {
	line := shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 1, Y: 1}}})
	tests := []struct {
		name      string
		shapeType shp.ShapeType
		shapes    []shp.Shape
		want      string
	}{
		{"point", shp.POINT, []shp.Shape{&shp.Point{X: 1, Y: 2}}, domain.GeometryPoint},
		{"line", shp.POLYLINE, []shp.Shape{line}, domain.GeometryLine},
		{"polygon", shp.POLYGON, []shp.Shape{&shp.Polygon{
			Box:       shp.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
			NumParts:  1,
			NumPoints: 4,
			Parts:     []int32{0},
			Points:    []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 0}},
		}}, domain.GeometryPolygon},
		{"empty point file", shp.POINT, nil, domain.GeometryPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeShapefile(t, "data.shp", tt.shapeType, tt.shapes...)
			got, err := Sniffer{}.GeometryType(path)
			if err != nil {
				t.Fatalf("GeometryType() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GeometryType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnifferMissingFile(t *testing.T) {
	if _, err := (Sniffer{}).GeometryType(filepath.Join(t.TempDir(), "missing.shp")); err == nil {
		t.Error("GeometryType() should fail for a missing file")
	}
}

func TestFamily(t *testing.T) {
	tests := []struct {
		in   shp.ShapeType
		want string
	}{
		{shp.MULTIPOINTZ, domain.GeometryPoint},
		{shp.POLYLINEM, domain.GeometryLine},
		{shp.POLYGONZ, domain.GeometryPolygon},
		{shp.MULTIPATCH, domain.GeometryUnknown},
		{shp.NULL, domain.GeometryUnknown},
	}
	for _, tt := range tests {
		if got := family(tt.in); got != tt.want {
			t.Errorf("family(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
