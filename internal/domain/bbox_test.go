package domain

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBoundingBoxIsGeographic(t *testing.T) {
	tests := []struct {
		name string
		bbox BoundingBox
		want bool
	}{
		{"world", BoundingBox{MinX: -180, MaxX: 180, MinY: -90, MaxY: 90}, true},
		{"san francisco", BoundingBox{MinX: -122.5, MaxX: -122.3, MinY: 37.7, MaxY: 37.8}, true},
		{"longitude out of range", BoundingBox{MinX: -181, MaxX: 0, MinY: 0, MaxY: 1}, false},
		{"latitude out of range", BoundingBox{MinX: 0, MaxX: 1, MinY: 0, MaxY: 91}, false},
		{"projected meters", BoundingBox{MinX: 500000, MaxX: 510000, MinY: 4100000, MaxY: 4110000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bbox.IsGeographic(); got != tt.want {
				t.Errorf("IsGeographic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		bbox    BoundingBox
		wantErr bool
	}{
		{"valid", BoundingBox{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}, false},
		{"point", BoundingBox{MinX: 1, MaxX: 1, MinY: 1, MaxY: 1}, false},
		{"inverted x", BoundingBox{MinX: 2, MaxX: 1, MinY: 0, MaxY: 1}, true},
		{"inverted y", BoundingBox{MinX: 0, MaxX: 1, MinY: 2, MaxY: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bbox.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	points := []orb.Point{
		{0, 0},
		{-122.4194, 37.7749},
		{13.405, 52.52},
		{179.9, -85},
	}

	for _, p := range points {
		back := InverseMercator(ForwardMercator(p))
		if math.Abs(back.X()-p.X()) > 1e-6 || math.Abs(back.Y()-p.Y()) > 1e-6 {
			t.Errorf("round trip of %v = %v", p, back)
		}
	}
}

func TestForwardMercatorOrigin(t *testing.T) {
	got := ForwardMercator(orb.Point{0, 0})
	if math.Abs(got.X()) > 1e-9 || math.Abs(got.Y()) > 1e-9 {
		t.Errorf("ForwardMercator(0,0) = %v, want origin", got)
	}

	// 180 degrees east lies at half the earth's circumference.
	east := ForwardMercator(orb.Point{180, 0})
	if math.Abs(east.X()-20037508.342789244) > 1e-3 {
		t.Errorf("ForwardMercator(180,0).X = %f", east.X())
	}
}

func TestBoundingBoxMercatorClampsPoles(t *testing.T) {
	world := BoundingBox{MinX: -180, MaxX: 180, MinY: -90, MaxY: 90, CRS: CRSWGS84}
	m := world.Mercator()

	for _, v := range []float64{m.MinX, m.MaxX, m.MinY, m.MaxY} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("Mercator() produced non-finite value: %v", m)
		}
	}
	if m.MinY >= m.MaxY {
		t.Errorf("Mercator() inverted y: %v", m)
	}
	if m.CRS != "EPSG:900913" {
		t.Errorf("Mercator().CRS = %q", m.CRS)
	}
}
