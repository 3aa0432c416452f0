package domain

import (
	"path/filepath"
	"strings"
)

// ResourceType is the catalog's kind of published resource.
type ResourceType string

// Catalog resource types.
const (
	ResourceFeatureType ResourceType = "featureType"
	ResourceCoverage    ResourceType = "coverage"
)

// StoreType returns the catalog store type that holds resources of this type.
func (t ResourceType) StoreType() string {
	if t == ResourceCoverage {
		return "coverageStore"
	}
	return "dataStore"
}

// LayerTypeFor determines the resource type from a file's extension.
func LayerTypeFor(filename string) (ResourceType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".shp":
		return ResourceFeatureType, nil
	case ".tif", ".tiff", ".geotiff", ".geotif":
		return ResourceCoverage, nil
	default:
		return "", NewError(KindUnsupportedFormat, filename,
			"saving of extension [%s] is not implemented", filepath.Ext(filename))
	}
}

// File roles within a FileSet.
const (
	RoleBase = "base"
	RoleSHP  = "shp"
	RoleDBF  = "dbf"
	RoleSHX  = "shx"
	RolePRJ  = "prj"
	RoleSLD  = "sld"
)

// FileSet maps the logical roles of an upload to filesystem paths.
type FileSet struct {
	Base string // Primary file as given by the caller
	SHP  string
	DBF  string
	SHX  string
	PRJ  string // Optional
	SLD  string // Optional style document
}

// IsShapefile reports whether the set carries shapefile side files.
func (f FileSet) IsShapefile() bool {
	return f.SHP != ""
}

// HasStyle reports whether a style document was supplied.
func (f FileSet) HasStyle() bool {
	return f.SLD != ""
}

// Roles returns the non-empty role to path mapping.
func (f FileSet) Roles() map[string]string {
	roles := map[string]string{RoleBase: f.Base}
	for role, path := range map[string]string{
		RoleSHP: f.SHP, RoleDBF: f.DBF, RoleSHX: f.SHX, RolePRJ: f.PRJ, RoleSLD: f.SLD,
	} {
		if path != "" {
			roles[role] = path
		}
	}
	return roles
}

// DataFiles returns the files sent to the catalog: the shapefile parts for
// vector data, otherwise the base file alone.
func (f FileSet) DataFiles() []string {
	if !f.IsShapefile() {
		return []string{f.Base}
	}
	files := []string{f.SHP, f.DBF, f.SHX}
	if f.PRJ != "" {
		files = append(files, f.PRJ)
	}
	return files
}
