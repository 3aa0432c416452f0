package geoserver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
)

// shapefileBundle zips the shapefile parts with every entry renamed to
// name.<ext>, which is how the catalog names the imported feature type.
// The returned cleanup removes the scratch directory.
func shapefileBundle(name string, files []string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "geonode-upload-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	staged := make([]string, 0, len(files))
	for _, f := range files {
		dest := filepath.Join(dir, name+strings.ToLower(filepath.Ext(f)))
		if err := copyFile(f, dest); err != nil {
			cleanup()
			return "", func() {}, fmt.Errorf("staging %s: %w", f, err)
		}
		staged = append(staged, dest)
	}

	bundle := filepath.Join(dir, name+".zip")
	if err := archiver.Archive(staged, bundle); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("zipping %s: %w", name, err)
	}
	return bundle, cleanup, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
