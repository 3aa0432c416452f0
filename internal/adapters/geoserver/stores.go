package geoserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"sort"

	"github.com/geonode/geonode/internal/domain"
)

const (
	dataStoreType     = "dataStore"
	coverageStoreType = "coverageStore"
)

// storeKind holds the REST names that differ between vector and raster stores.
type storeKind struct {
	storeType  string
	collection string // path segment of the store collection
	bodyKey    string // JSON key of a store body
	resources  string // path segment of the resource collection
	resource   string // JSON key of a resource body
	listKey    string // JSON key of the resource collection
	resType    domain.ResourceType
}

var (
	dataStoreKind = storeKind{
		storeType:  dataStoreType,
		collection: "datastores",
		bodyKey:    "dataStore",
		resources:  "featuretypes",
		resource:   "featureType",
		listKey:    "featureTypes",
		resType:    domain.ResourceFeatureType,
	}
	coverageStoreKind = storeKind{
		storeType:  coverageStoreType,
		collection: "coveragestores",
		bodyKey:    "coverageStore",
		resources:  "coverages",
		resource:   "coverage",
		listKey:    "coverages",
		resType:    domain.ResourceCoverage,
	}
)

func kindOf(store *domain.Store) storeKind {
	if store != nil && store.Type == coverageStoreType {
		return coverageStoreKind
	}
	return dataStoreKind
}

func (c *Client) getStore(ctx context.Context, name string, kind storeKind) (*domain.Store, error) {
	var resp map[string]storeJSON
	err := c.do(ctx, request{
		op:       "get_store",
		name:     name,
		method:   http.MethodGet,
		path:     c.wsPath(kind.collection, name+".json"),
		notFound: domain.ErrStoreNotFound,
	}, &resp)
	if err != nil {
		return nil, err
	}
	body, ok := resp[kind.bodyKey]
	if !ok {
		return nil, &domain.CatalogError{Operation: "get_store", Name: name, Err: domain.ErrStoreNotFound}
	}
	return body.toDomain(c.workspace, kind.storeType), nil
}

// GetStore returns the data store or coverage store called name.
func (c *Client) GetStore(ctx context.Context, name string) (*domain.Store, error) {
	store, err := c.getStore(ctx, name, dataStoreKind)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return store, err
	}
	return c.getStore(ctx, name, coverageStoreKind)
}

// GetDataStore returns the data store called name.
func (c *Client) GetDataStore(ctx context.Context, name string) (*domain.Store, error) {
	return c.getStore(ctx, name, dataStoreKind)
}

// DeleteStore removes a store, with its resources and layers when recurse is set.
func (c *Client) DeleteStore(ctx context.Context, store *domain.Store, recurse bool) error {
	kind := kindOf(store)
	q := url.Values{}
	if recurse {
		q.Set("recurse", "true")
	}
	return c.do(ctx, request{
		op:       "delete_store",
		name:     store.Name,
		method:   http.MethodDelete,
		path:     c.wsPath(kind.collection, store.Name),
		query:    q,
		notFound: domain.ErrStoreNotFound,
	}, nil)
}

// StoreResources lists the resources published from a store.
func (c *Client) StoreResources(ctx context.Context, store *domain.Store) ([]domain.Resource, error) {
	kind := kindOf(store)
	var resp map[string]json.RawMessage
	err := c.do(ctx, request{
		op:       "list_resources",
		name:     store.Name,
		method:   http.MethodGet,
		path:     c.wsPath(kind.collection, store.Name, kind.resources+".json"),
		notFound: domain.ErrStoreNotFound,
	}, &resp)
	if err != nil {
		return nil, err
	}

	names, err := collection(resp[kind.listKey], kind.resource)
	if err != nil {
		return nil, &domain.CatalogError{Operation: "list_resources", Name: store.Name, Err: err}
	}
	sort.Strings(names)

	resources := make([]domain.Resource, 0, len(names))
	for _, n := range names {
		r, err := c.GetResource(ctx, n, store)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *r)
	}
	return resources, nil
}

// collection decodes {"<key>": [...]} and the empty-string form.
func collection(raw json.RawMessage, key string) ([]string, error) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var wrapper map[string]namedList
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	return wrapper[key].names(), nil
}

// CreateFeatureStore uploads shapefile parts as a new file-backed data store.
func (c *Client) CreateFeatureStore(ctx context.Context, name string, files []string, overwrite bool) error {
	return c.uploadShapefile(ctx, "create_featurestore", name, name, files, overwrite)
}

// AddDataToStore imports shapefile parts into an existing data store, which
// creates a table named after the layer in a database-backed store.
func (c *Client) AddDataToStore(ctx context.Context, store *domain.Store, name string, files []string, overwrite bool) error {
	return c.uploadShapefile(ctx, "add_data_to_store", store.Name, name, files, overwrite)
}

func (c *Client) uploadShapefile(ctx context.Context, op, storeName, name string, files []string, overwrite bool) error {
	bundle, cleanup, err := shapefileBundle(name, files)
	if err != nil {
		return &domain.CatalogError{Operation: op, Name: name, Err: err}
	}
	defer cleanup()

	f, err := os.Open(bundle)
	if err != nil {
		return &domain.CatalogError{Operation: op, Name: name, Err: err}
	}
	defer func() { _ = f.Close() }()

	q := url.Values{}
	q.Set("configure", "all")
	if overwrite {
		q.Set("update", "overwrite")
	}
	c.logger.Info("uploading shapefile", "store", storeName, "name", name, "files", len(files))
	return c.do(ctx, request{
		op:          op,
		name:        name,
		method:      http.MethodPut,
		path:        c.wsPath("datastores", storeName, "file.shp"),
		query:       q,
		contentType: "application/zip",
		body:        f,
	}, nil)
}

// CreateCoverageStore uploads a GeoTIFF as a new coverage store.
func (c *Client) CreateCoverageStore(ctx context.Context, name string, file string, overwrite bool) error {
	f, err := os.Open(file)
	if err != nil {
		return &domain.CatalogError{Operation: "create_coveragestore", Name: name, Err: err}
	}
	defer func() { _ = f.Close() }()

	q := url.Values{}
	q.Set("configure", "all")
	q.Set("coverageName", name)
	if overwrite {
		q.Set("update", "overwrite")
	}
	c.logger.Info("uploading coverage", "store", name, "file", file)
	return c.do(ctx, request{
		op:          "create_coveragestore",
		name:        name,
		method:      http.MethodPut,
		path:        c.wsPath("coveragestores", name, "file.geotiff"),
		query:       q,
		contentType: "image/tiff",
		body:        f,
	}, nil)
}

// CreateDataStore registers a database-backed data store.
func (c *Client) CreateDataStore(ctx context.Context, store *domain.Store) error {
	keys := make([]string, 0, len(store.ConnectionParameters))
	for k := range store.ConnectionParameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := &connectionJSON{}
	for _, k := range keys {
		params.Entry = append(params.Entry, entryJSON{Key: k, Value: store.ConnectionParameters[k]})
	}

	body, err := jsonBody(map[string]storeJSON{
		"dataStore": {
			Name:                 store.Name,
			Enabled:              true,
			ConnectionParameters: params,
		},
	})
	if err != nil {
		return &domain.CatalogError{Operation: "create_datastore", Name: store.Name, Err: err}
	}
	return c.do(ctx, request{
		op:          "create_datastore",
		name:        store.Name,
		method:      http.MethodPost,
		path:        c.wsPath("datastores.json"),
		contentType: "application/json",
		body:        body,
	}, nil)
}
