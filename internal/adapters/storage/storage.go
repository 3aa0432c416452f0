// Package storage provides the object storage backends spatial data sets
// are ingested from.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/geonode/geonode/internal/domain"
)

// spatialExtensions are the files that make up an uploadable data set:
// shapefile parts, GeoTIFF rasters, style documents and zip bundles.
var spatialExtensions = map[string]bool{
	".shp":     true,
	".shx":     true,
	".dbf":     true,
	".prj":     true,
	".cpg":     true,
	".sld":     true,
	".tif":     true,
	".tiff":    true,
	".geotiff": true,
	".geotif":  true,
	".zip":     true,
}

// IsSpatialFile reports whether name belongs to a spatial data set.
func IsSpatialFile(name string) bool {
	return spatialExtensions[strings.ToLower(filepath.Ext(name))]
}

// prefixed maps data set keys to remote object names under a prefix.
type prefixed string

func (p prefixed) full(key string) string {
	if p == "" {
		return key
	}
	return path.Join(string(p), key)
}

func (p prefixed) relative(name string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, string(p)), "/")
}

// writeFile streams r into dest. The data lands under a temporary name
// first so a half-written file is never picked up by the uploader.
func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func storageErr(op, key string, err error) error {
	return &domain.StorageError{Operation: op, Key: key, Err: err}
}

func notFound(key string) error {
	return fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
}
