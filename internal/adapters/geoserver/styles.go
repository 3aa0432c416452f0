package geoserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/geonode/geonode/internal/domain"
)

const sldContentType = "application/vnd.ogc.sld+xml"

// CreateStyle registers an SLD document. An existing style is reported as
// a conflict and left untouched.
func (c *Client) CreateStyle(ctx context.Context, style *domain.Style) error {
	err := c.do(ctx, request{
		op:          "create_style",
		name:        style.Name,
		method:      http.MethodPost,
		path:        "styles",
		query:       url.Values{"name": {style.Name}},
		contentType: sldContentType,
		body:        bytes.NewReader(style.Body),
	}, nil)
	var catErr *domain.CatalogError
	if errors.As(err, &catErr) && errors.Is(err, domain.ErrConflict) {
		catErr.Err = fmt.Errorf("%w: %v", domain.ErrStyleConflict, catErr.Err)
	}
	return err
}

// GetStyle returns the style called name without its body.
func (c *Client) GetStyle(ctx context.Context, name string) (*domain.Style, error) {
	var resp struct {
		Style struct {
			Name     string `json:"name"`
			Filename string `json:"filename"`
		} `json:"style"`
	}
	err := c.do(ctx, request{
		op:       "get_style",
		name:     name,
		method:   http.MethodGet,
		path:     "styles/" + url.PathEscape(name) + ".json",
		notFound: domain.ErrStyleNotFound,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.Style{Name: resp.Style.Name, Filename: resp.Style.Filename}, nil
}
