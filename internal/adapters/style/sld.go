// Package style renders default SLD documents for new layers.
package style

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"strings"
	"text/template"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.StyleGenerator = Generator{}

// palette holds fill and stroke pairs; a layer gets one picked by its name.
var palette = []struct{ Fill, Stroke string }{
	{"#AAAAAA", "#000000"},
	{"#66C2A5", "#1B7B5E"},
	{"#FC8D62", "#A8431C"},
	{"#8DA0CB", "#3D5690"},
	{"#E78AC3", "#9C3F78"},
	{"#A6D854", "#5C8E0B"},
	{"#FFD92F", "#A88A00"},
}

const header = `<?xml version="1.0" encoding="UTF-8"?>
<sld:StyledLayerDescriptor xmlns="http://www.opengis.net/sld" xmlns:sld="http://www.opengis.net/sld" xmlns:ogc="http://www.opengis.net/ogc" xmlns:gml="http://www.opengis.net/gml" version="1.0.0">
  <sld:NamedLayer>
    <sld:Name>{{.Name}}</sld:Name>
    <sld:UserStyle>
      <sld:Name>{{.Name}}</sld:Name>
      <sld:Title>{{.Name}}</sld:Title>
      <sld:FeatureTypeStyle>
        <sld:Name>name</sld:Name>
`

const footer = `      </sld:FeatureTypeStyle>
    </sld:UserStyle>
  </sld:NamedLayer>
</sld:StyledLayerDescriptor>
`

const pointRule = `        <sld:Rule>
          <sld:PointSymbolizer>
            <sld:Graphic>
              <sld:Mark>
                <sld:WellKnownName>circle</sld:WellKnownName>
                <sld:Fill><sld:CssParameter name="fill">{{.Fill}}</sld:CssParameter></sld:Fill>
                <sld:Stroke><sld:CssParameter name="stroke">{{.Stroke}}</sld:CssParameter></sld:Stroke>
              </sld:Mark>
              <sld:Size>10</sld:Size>
            </sld:Graphic>
          </sld:PointSymbolizer>
        </sld:Rule>
`

const lineRule = `        <sld:Rule>
          <sld:LineSymbolizer>
            <sld:Stroke>
              <sld:CssParameter name="stroke">{{.Stroke}}</sld:CssParameter>
              <sld:CssParameter name="stroke-width">3</sld:CssParameter>
            </sld:Stroke>
          </sld:LineSymbolizer>
        </sld:Rule>
`

const polygonRule = `        <sld:Rule>
          <sld:PolygonSymbolizer>
            <sld:Fill><sld:CssParameter name="fill">{{.Fill}}</sld:CssParameter></sld:Fill>
            <sld:Stroke>
              <sld:CssParameter name="stroke">{{.Stroke}}</sld:CssParameter>
              <sld:CssParameter name="stroke-width">0.7</sld:CssParameter>
            </sld:Stroke>
          </sld:PolygonSymbolizer>
        </sld:Rule>
`

const rasterRule = `        <sld:Rule>
          <sld:RasterSymbolizer>
            <sld:Opacity>1.0</sld:Opacity>
          </sld:RasterSymbolizer>
        </sld:Rule>
`

var templates = map[string]*template.Template{
	domain.GeometryPoint:   parse("point", pointRule),
	domain.GeometryLine:    parse("line", lineRule),
	domain.GeometryPolygon: parse("polygon", polygonRule),
	domain.GeometryRaster:  parse("raster", rasterRule),
	// Unknown geometries get a rule for every vector family.
	domain.GeometryUnknown: parse("geometry", polygonRule+lineRule+pointRule),
}

func parse(name, rules string) *template.Template {
	return template.Must(template.New(name).Parse(header + rules + footer))
}

// Generator implements output.StyleGenerator.
type Generator struct{}

// Generate returns an SLD for the named layer and geometry family.
func (Generator) Generate(name, geometryType string) ([]byte, error) {
	tmpl, ok := templates[geometryType]
	if !ok {
		tmpl = templates[domain.GeometryUnknown]
	}

	colors := paletteFor(name)
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Name   string
		Fill   string
		Stroke string
	}{
		Name:   xmlText(name),
		Fill:   colors.Fill,
		Stroke: colors.Stroke,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering %s style for %s: %w", geometryType, name, err)
	}
	return buf.Bytes(), nil
}

func paletteFor(name string) struct{ Fill, Stroke string } {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}

func xmlText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
