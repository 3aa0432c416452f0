package geoserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/geonode/geonode/internal/domain"
)

// GetResource returns the resource called name. Without a store the
// resource is located through the published layer.
func (c *Client) GetResource(ctx context.Context, name string, store *domain.Store) (*domain.Resource, error) {
	if store == nil {
		var err error
		if store, err = c.storeOfLayer(ctx, name); err != nil {
			return nil, err
		}
	}

	kind := kindOf(store)
	var resp map[string]resourceJSON
	err := c.do(ctx, request{
		op:       "get_resource",
		name:     name,
		method:   http.MethodGet,
		path:     c.wsPath(kind.collection, store.Name, kind.resources, name+".json"),
		notFound: domain.ErrResourceNotFound,
	}, &resp)
	if err != nil {
		return nil, err
	}
	body, ok := resp[kind.resource]
	if !ok {
		return nil, &domain.CatalogError{Operation: "get_resource", Name: name, Err: domain.ErrResourceNotFound}
	}
	return body.toDomain(kind.resType, *store), nil
}

// storeOfLayer finds the store behind a published layer from its resource link.
func (c *Client) storeOfLayer(ctx context.Context, name string) (*domain.Store, error) {
	layer, err := c.getLayer(ctx, name, domain.ErrResourceNotFound)
	if err != nil {
		return nil, err
	}
	if layer.Resource == nil || layer.Resource.Href == "" {
		return nil, &domain.CatalogError{Operation: "get_resource", Name: name, Err: domain.ErrResourceNotFound}
	}
	store, err := storeFromHref(layer.Resource.Href, c.workspace)
	if err != nil {
		return nil, &domain.CatalogError{Operation: "get_resource", Name: name, Err: err}
	}
	return store, nil
}

// storeFromHref parses .../workspaces/<ws>/<datastores|coveragestores>/<store>/...
func storeFromHref(href, workspace string) (*domain.Store, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "datastores":
			return &domain.Store{Name: parts[i+1], Workspace: workspace, Type: dataStoreType}, nil
		case "coveragestores":
			return &domain.Store{Name: parts[i+1], Workspace: workspace, Type: coverageStoreType}, nil
		}
	}
	return nil, fmt.Errorf("no store in resource link %s", href)
}

// SaveResource writes back title, abstract, keywords, projection and bounds.
func (c *Client) SaveResource(ctx context.Context, resource *domain.Resource) error {
	kind := kindOf(&resource.Store)
	enabled := true
	payload := resourceJSON{
		Name:              resource.Name,
		Title:             resource.Title,
		Abstract:          resource.Abstract,
		SRS:               resource.Projection,
		Enabled:           &enabled,
		NativeBoundingBox: bboxFromDomain(resource.NativeBBox),
		LatLonBoundingBox: bboxFromDomain(resource.LatLonBBox),
	}
	if resource.Projection != "" {
		payload.ProjectionPolicy = "FORCE_DECLARED"
	}
	if len(resource.Keywords) > 0 {
		payload.Keywords = &keywordsJSON{String: resource.Keywords}
	}

	body, err := jsonBody(map[string]resourceJSON{kind.resource: payload})
	if err != nil {
		return &domain.CatalogError{Operation: "save_resource", Name: resource.Name, Err: err}
	}
	return c.do(ctx, request{
		op:          "save_resource",
		name:        resource.Name,
		method:      http.MethodPut,
		path:        c.wsPath(kind.collection, resource.Store.Name, kind.resources, resource.Name+".json"),
		contentType: "application/json",
		body:        body,
		notFound:    domain.ErrResourceNotFound,
	}, nil)
}

// DeleteResource removes a resource together with its layer.
func (c *Client) DeleteResource(ctx context.Context, resource *domain.Resource) error {
	kind := kindOf(&resource.Store)
	return c.do(ctx, request{
		op:       "delete_resource",
		name:     resource.Name,
		method:   http.MethodDelete,
		path:     c.wsPath(kind.collection, resource.Store.Name, kind.resources, resource.Name),
		query:    url.Values{"recurse": {"true"}},
		notFound: domain.ErrResourceNotFound,
	}, nil)
}

func (c *Client) layerPath(name string) string {
	return "layers/" + url.PathEscape(domain.QualifiedName(c.workspace, name)) + ".json"
}

func (c *Client) getLayer(ctx context.Context, name string, notFound error) (*layerJSON, error) {
	var resp struct {
		Layer layerJSON `json:"layer"`
	}
	err := c.do(ctx, request{
		op:       "get_layer",
		name:     name,
		method:   http.MethodGet,
		path:     c.layerPath(name),
		notFound: notFound,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Layer, nil
}

// GetLayer returns the published layer called name.
func (c *Client) GetLayer(ctx context.Context, name string) (*domain.PublishedLayer, error) {
	layer, err := c.getLayer(ctx, name, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	published := &domain.PublishedLayer{
		Name:         localName(layer.Name),
		Workspace:    c.workspace,
		ResourceType: layer.resourceType(),
	}
	if published.Name == "" {
		published.Name = name
	}
	if layer.DefaultStyle != nil {
		published.DefaultStyle = localName(layer.DefaultStyle.Name)
	}
	return published, nil
}

// SaveLayer writes back the default style of a layer.
func (c *Client) SaveLayer(ctx context.Context, layer *domain.PublishedLayer) error {
	payload := layerJSON{}
	if layer.DefaultStyle != "" {
		payload.DefaultStyle = &named{Name: layer.DefaultStyle}
	}
	body, err := jsonBody(map[string]layerJSON{"layer": payload})
	if err != nil {
		return &domain.CatalogError{Operation: "save_layer", Name: layer.Name, Err: err}
	}
	return c.do(ctx, request{
		op:          "save_layer",
		name:        layer.Name,
		method:      http.MethodPut,
		path:        c.layerPath(layer.Name),
		contentType: "application/json",
		body:        body,
	}, nil)
}

// DeleteLayer removes a published layer.
func (c *Client) DeleteLayer(ctx context.Context, layer *domain.PublishedLayer) error {
	return c.do(ctx, request{
		op:     "delete_layer",
		name:   layer.Name,
		method: http.MethodDelete,
		path:   c.layerPath(layer.Name),
	}, nil)
}
