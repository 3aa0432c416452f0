// Package output defines the secondary/driven ports of the application.
package output

import "context"

// ObjectStorage is the remote drop box spatial data sets are ingested from.
type ObjectStorage interface {
	// List returns the spatial files (.shp and helpers, .tif, .zip) in the storage.
	List(ctx context.Context) ([]StorageObject, error)

	// Download copies an object to the local filesystem.
	Download(ctx context.Context, key string, dest string) error
}

// StorageObject is a file in object storage.
type StorageObject struct {
	Key          string // slash separated, relative to the storage root
	Size         int64
	LastModified int64 // Unix seconds
	ETag         string
}
