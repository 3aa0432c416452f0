package storage

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/geonode/geonode/internal/ports/output"
)

// HTTPStorage serves data sets from a web server. The server publishes an
// index file listing one object key per line; blank lines and lines
// starting with # are ignored.
type HTTPStorage struct {
	client    *http.Client
	baseURL   string
	indexFile string
	username  string
	password  string
}

// HTTPConfig holds HTTP storage configuration.
type HTTPConfig struct {
	BaseURL   string
	IndexFile string // default: index.txt
	Timeout   time.Duration
	Username  string
	Password  string
}

// NewHTTPStorage creates a new HTTP storage adapter.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.txt"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &HTTPStorage{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		indexFile: cfg.IndexFile,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

// List reads the index file. The index carries no sizes or dates, so a
// data set is only ingested again when its key list changes.
func (s *HTTPStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	resp, err := s.get(ctx, s.indexFile)
	if err != nil {
		return nil, storageErr("list", s.indexFile, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var objects []output.StorageObject
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || !IsSpatialFile(line) {
			continue
		}
		objects = append(objects, output.StorageObject{
			Key:  strings.TrimPrefix(line, "/"),
			ETag: resp.Header.Get("ETag"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, storageErr("list", s.indexFile, err)
	}
	return objects, nil
}

// Download fetches one file into dest.
func (s *HTTPStorage) Download(ctx context.Context, key string, dest string) error {
	resp, err := s.get(ctx, key)
	if err != nil {
		return storageErr("download", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := writeFile(dest, resp.Body); err != nil {
		return storageErr("download", key, err)
	}
	return nil
}

// get issues an authenticated GET and fails on anything but 200.
func (s *HTTPStorage) get(ctx context.Context, key string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+strings.TrimPrefix(key, "/"), nil)
	if err != nil {
		return nil, err
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, notFound(key)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s returned status %d", key, resp.StatusCode)
	}
}
