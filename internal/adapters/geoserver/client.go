// Package geoserver implements the catalog service port against the
// GeoServer REST API.
package geoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.CatalogService = (*Client)(nil)

// Config holds the connection settings.
type Config struct {
	URL       string // base URL, e.g. http://localhost:8080/geoserver/
	User      string
	Password  string
	Workspace string
	Timeout   time.Duration
}

// Client is a GeoServer REST client bound to one workspace.
type Client struct {
	baseURL   string
	user      string
	password  string
	workspace string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a new GeoServer client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	base := cfg.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL:   base,
		user:      cfg.User,
		password:  cfg.Password,
		workspace: cfg.Workspace,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// URL returns the base URL of the catalog.
func (c *Client) URL() string {
	return c.baseURL
}

// Workspace returns the workspace the client publishes into.
func (c *Client) Workspace() string {
	return c.workspace
}

// request describes one REST call.
type request struct {
	op          string // operation name for errors
	name        string // object the call is about
	method      string
	path        string // relative to rest/
	query       url.Values
	contentType string
	body        io.Reader
	notFound    error // sentinel returned on 404
}

// do executes req and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	u := c.baseURL + "rest/" + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return &domain.CatalogError{Operation: req.op, Name: req.name, Err: err}
	}
	httpReq.SetBasicAuth(c.user, c.password)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &domain.CatalogError{
			Operation: req.op,
			Name:      req.name,
			Err:       fmt.Errorf("%w: %v", domain.ErrUnavailable, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("catalog request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.CatalogError{
			Operation:  req.op,
			Name:       req.name,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.StatusCode, strings.TrimSpace(string(body)), req.notFound),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.CatalogError{
			Operation:  req.op,
			Name:       req.name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

// statusError maps a failed response to a domain error.
func statusError(status int, body string, notFound error) error {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusNotFound:
		if notFound == nil {
			notFound = domain.ErrNotFound
		}
		return notFound
	case status == http.StatusConflict, strings.Contains(lower, "already exists"):
		return fmt.Errorf("%w: %s", domain.ErrConflict, body)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, body)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, body)
	}
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (c *Client) wsPath(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "workspaces", url.PathEscape(c.workspace))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

// Workspaces lists workspace names.
func (c *Client) Workspaces(ctx context.Context) ([]string, error) {
	var resp struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := c.do(ctx, request{op: "list_workspaces", method: http.MethodGet, path: "workspaces.json"}, &resp); err != nil {
		return nil, err
	}
	// An empty catalog answers {"workspaces": ""}.
	if len(resp.Workspaces) == 0 || resp.Workspaces[0] != '{' {
		return nil, nil
	}
	var list struct {
		Workspace namedList `json:"workspace"`
	}
	if err := json.Unmarshal(resp.Workspaces, &list); err != nil {
		return nil, &domain.CatalogError{Operation: "list_workspaces", Err: err}
	}
	return list.Workspace.names(), nil
}
