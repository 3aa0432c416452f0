package http

import (
	"html/template"
	"net/http"
)

var otherRSPage = template.Must(template.New("other_rs").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Other remote sensing {{.FacetType}}</title>
</head>
<body data-map-type="{{.MapType}}">
  <div id="other-rs" data-facettype="{{.FacetType}}"></div>
</body>
</html>
`))

// rsLink is one download link of a remote sensing layer.
type rsLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// handleOtherRS renders the remote sensing browse page.
func (s *Server) handleOtherRS(w http.ResponseWriter, r *http.Request) {
	facetType := varOf(r, "facettype")
	if facetType == "" {
		facetType = "layers"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := otherRSPage.Execute(w, struct {
		MapType   string
		FacetType string
	}{MapType: "rs", FacetType: facetType})
	if err != nil {
		s.logger.Error("failed to render page", "page", "other_rs", "error", err)
	}
}

// handleRSLinks lists the download links of a remote sensing layer.
func (s *Server) handleRSLinks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"facettype":  "layers",
		"layer_name": varOf(r, "layername"),
		"links": []rsLink{
			{Name: "Sample 1", URL: "Sample 1"},
			{Name: "Sample 2", URL: "Sample 2"},
		},
	})
}
