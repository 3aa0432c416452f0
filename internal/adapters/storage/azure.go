package storage

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/geonode/geonode/internal/ports/output"
)

// AzureStorage serves data sets from an Azure Blob Storage container.
type AzureStorage struct {
	client    *azblob.Client
	container string
	prefix    prefixed
}

// AzureConfig holds Azure Blob Storage configuration. A connection string
// takes precedence over account name and key.
type AzureConfig struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Prefix           string
}

// NewAzureStorage creates a new Azure Blob Storage adapter.
func NewAzureStorage(cfg AzureConfig) (*AzureStorage, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, storageErr("configure", "", err)
	}
	return &AzureStorage{
		client:    client,
		container: cfg.Container,
		prefix:    prefixed(strings.Trim(cfg.Prefix, "/")),
	}, nil
}

func newAzureClient(cfg AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	serviceURL := "https://" + cfg.AccountName + ".blob.core.windows.net/"
	return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
}

// List returns the spatial blobs below the prefix.
func (s *AzureStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	opts := &azblob.ListBlobsFlatOptions{}
	if s.prefix != "" {
		p := string(s.prefix) + "/"
		opts.Prefix = &p
	}

	pager := s.client.NewListBlobsFlatPager(s.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, storageErr("list", "", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil || !IsSpatialFile(*blob.Name) {
				continue
			}
			objects = append(objects, s.object(blob))
		}
	}

	return objects, nil
}

func (s *AzureStorage) object(blob *container.BlobItem) output.StorageObject {
	obj := output.StorageObject{Key: s.prefix.relative(*blob.Name)}
	if p := blob.Properties; p != nil {
		if p.ContentLength != nil {
			obj.Size = *p.ContentLength
		}
		if p.LastModified != nil {
			obj.LastModified = p.LastModified.Unix()
		}
		if p.ETag != nil {
			obj.ETag = strings.Trim(string(*p.ETag), `"`)
		}
	}
	return obj
}

// Download fetches one blob into dest.
func (s *AzureStorage) Download(ctx context.Context, key string, dest string) error {
	resp, err := s.client.DownloadStream(ctx, s.container, s.prefix.full(key), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return storageErr("download", key, notFound(key))
		}
		return storageErr("download", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := writeFile(dest, resp.Body); err != nil {
		return storageErr("download", key, err)
	}
	return nil
}
