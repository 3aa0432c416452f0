// Package geonetwork implements the metadata catalog port against the
// GeoNetwork CSW-T endpoints.
package geonetwork

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.MetadataCatalog = (*Client)(nil)

const (
	loginPath       = "srv/en/xml.user.login"
	cswPath         = "srv/en/csw"
	publicationPath = "srv/en/csw-publication"
)

// Config holds the connection settings.
type Config struct {
	URL      string // base URL, e.g. http://localhost:8080/geonetwork/
	User     string
	Password string
	Timeout  time.Duration
	// OWSURL is the WMS endpoint advertised in published records.
	OWSURL string
}

// Client talks to GeoNetwork over CSW. The login session is kept in a
// cookie jar and reused by later calls.
type Client struct {
	baseURL  string
	user     string
	password string
	owsURL   string
	http     *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewClient creates a new GeoNetwork client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}
	base := cfg.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  base,
		user:     cfg.User,
		password: cfg.Password,
		owsURL:   cfg.OWSURL,
		http:     &http.Client{Timeout: cfg.Timeout, Jar: jar},
		logger:   logger,
		now:      time.Now,
	}
}

// URL returns the base URL of the catalog.
func (c *Client) URL() string {
	return c.baseURL
}

// Login opens a session.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{"username": {c.user}, "password": {c.password}}
	body, err := c.do(ctx, "login", "", http.MethodPost, loginPath, nil,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	if bytes.Contains(body, []byte("UserLoginEx")) {
		return &domain.CatalogError{
			Operation: "login",
			Err:       fmt.Errorf("%w: login rejected for %s", domain.ErrPermissionDenied, c.user),
		}
	}
	c.logger.Debug("logged in to metadata catalog", "user", c.user)
	return nil
}

// Publish inserts the record, or replaces it when one with the same UUID
// already exists.
func (c *Client) Publish(ctx context.Context, record *domain.MetadataRecord) error {
	doc, err := renderRecord(record, c.owsURL, c.now())
	if err != nil {
		return &domain.CatalogError{Operation: "publish", Name: record.UUID, Err: err}
	}

	action := "Insert"
	if _, err := c.GetByUUID(ctx, record.UUID); err == nil {
		action = "Update"
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var tx bytes.Buffer
	fmt.Fprintf(&tx, transactionHeader, action)
	tx.Write(doc)
	fmt.Fprintf(&tx, "</csw:%s></csw:Transaction>", action)

	summary, err := c.transaction(ctx, "publish", record.UUID, tx.Bytes())
	if err != nil {
		return err
	}
	if summary.Inserted+summary.Updated == 0 {
		return &domain.CatalogError{
			Operation: "publish",
			Name:      record.UUID,
			Err:       fmt.Errorf("%s changed no records", strings.ToLower(action)),
		}
	}
	c.logger.Info("published metadata record", "uuid", record.UUID, "name", record.Name, "action", strings.ToLower(action))
	return nil
}

// GetByUUID fetches a record with GetRecordById.
func (c *Client) GetByUUID(ctx context.Context, uuid string) (*domain.MetadataRecord, error) {
	q := url.Values{
		"service":        {"CSW"},
		"version":        {"2.0.2"},
		"request":        {"GetRecordById"},
		"id":             {uuid},
		"outputSchema":   {"http://www.isotc211.org/2005/gmd"},
		"elementSetName": {"full"},
	}
	body, err := c.do(ctx, "get_record", uuid, http.MethodGet, cswPath, q, "", nil)
	if err != nil {
		return nil, err
	}

	var resp getRecordByIDResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, &domain.CatalogError{Operation: "get_record", Name: uuid, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(resp.Records) == 0 {
		return nil, &domain.CatalogError{Operation: "get_record", Name: uuid, Err: domain.ErrRecordNotFound}
	}
	return resp.Records[0].toDomain(), nil
}

// Delete removes the record with the given UUID.
func (c *Client) Delete(ctx context.Context, uuid string) error {
	var tx bytes.Buffer
	fmt.Fprintf(&tx, transactionHeader, "Delete")
	fmt.Fprintf(&tx, deleteConstraint, xmlEscape(uuid))
	tx.WriteString("</csw:Delete></csw:Transaction>")

	summary, err := c.transaction(ctx, "delete", uuid, tx.Bytes())
	if err != nil {
		return err
	}
	if summary.Deleted == 0 {
		return &domain.CatalogError{Operation: "delete", Name: uuid, Err: domain.ErrRecordNotFound}
	}
	c.logger.Info("deleted metadata record", "uuid", uuid)
	return nil
}

func (c *Client) transaction(ctx context.Context, op, name string, payload []byte) (*transactionSummary, error) {
	body, err := c.do(ctx, op, name, http.MethodPost, publicationPath, nil, "application/xml", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	var resp transactionResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, &domain.CatalogError{Operation: op, Name: name, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &resp.Summary, nil
}

// do executes one request and returns the response body. OWS exception
// reports are turned into errors even when the status is 200.
func (c *Client) do(ctx context.Context, op, name, method, path string, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &domain.CatalogError{Operation: op, Name: name, Err: err}
	}
	req.SetBasicAuth(c.user, c.password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.CatalogError{
			Operation: op,
			Name:      name,
			Err:       fmt.Errorf("%w: %v", domain.ErrUnavailable, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.CatalogError{Operation: op, Name: name, StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Debug("metadata request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &domain.CatalogError{Operation: op, Name: name, StatusCode: resp.StatusCode, Err: domain.ErrPermissionDenied}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &domain.CatalogError{
			Operation:  op,
			Name:       name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data)),
		}
	}
	if exc := parseException(data); exc != nil {
		return nil, &domain.CatalogError{Operation: op, Name: name, StatusCode: resp.StatusCode, Err: exc}
	}
	return data, nil
}

func truncate(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
