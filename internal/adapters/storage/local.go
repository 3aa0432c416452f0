package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/geonode/geonode/internal/ports/output"
)

// LocalStorage serves data sets from a directory tree.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage adapter.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// List returns the spatial files below the base directory. Keys use
// forward slashes on every platform.
func (s *LocalStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsSpatialFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		objects = append(objects, output.StorageObject{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	return objects, nil
}

// Download copies a file into the staging area. Copying a file onto
// itself is a no-op.
func (s *LocalStorage) Download(_ context.Context, key string, dest string) error {
	src := s.FullPath(key)
	if filepath.Clean(src) == filepath.Clean(dest) {
		return nil
	}

	f, err := os.Open(src) //#nosec G304 -- key comes from List
	if errors.Is(err, fs.ErrNotExist) {
		return storageErr("download", key, notFound(key))
	}
	if err != nil {
		return storageErr("download", key, err)
	}
	defer func() { _ = f.Close() }()

	if err := writeFile(dest, f); err != nil {
		return storageErr("download", key, err)
	}
	return nil
}

// FullPath returns the path of key on disk.
func (s *LocalStorage) FullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
