// Package application contains the application services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
	"github.com/geonode/geonode/internal/ports/output"
)

// primaryExtensions mark the object of a data set that is handed to the uploader.
var primaryExtensions = map[string]bool{
	".shp":     true,
	".tif":     true,
	".tiff":    true,
	".geotiff": true,
	".geotif":  true,
	".zip":     true,
}

// IngestService pulls spatial data sets from object storage into a staging
// directory and uploads every data set it has not seen in that version.
type IngestService struct {
	mu         sync.RWMutex
	datasets   map[string]*DataSetStatus
	storage    output.ObjectStorage
	uploader   input.Uploader
	metrics    output.MetricsCollector
	logger     *slog.Logger
	stagingDir string
	opts       input.UploadOptions
}

// DataSetStatus is what the ingest service knows about one remote data set.
type DataSetStatus struct {
	Key         string              `json:"key"`
	Fingerprint string              `json:"-"`
	Report      domain.UploadReport `json:"report"`
	IngestedAt  time.Time           `json:"ingested_at"`
}

// Failed reports whether any file of the data set failed to upload.
func (d *DataSetStatus) Failed() bool {
	return d.Report.Failures() > 0
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	storage output.ObjectStorage,
	uploader input.Uploader,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	stagingDir string,
	opts input.UploadOptions,
) *IngestService {
	return &IngestService{
		datasets:   make(map[string]*DataSetStatus),
		storage:    storage,
		uploader:   uploader,
		metrics:    metrics,
		logger:     logger,
		stagingDir: stagingDir,
		opts:       opts,
	}
}

// dataSet groups the objects sharing a directory and base name.
type dataSet struct {
	key     string // primary object key
	members []output.StorageObject
}

// fingerprint changes whenever any member object changes.
func (d dataSet) fingerprint() string {
	parts := make([]string, 0, len(d.members))
	for _, m := range d.members {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", m.Key, m.LastModified, m.ETag))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// groupDataSets collects the objects of every data set that has a primary file.
func groupDataSets(objects []output.StorageObject) []dataSet {
	groups := make(map[string]*dataSet)
	var order []string
	for _, obj := range objects {
		stem := strings.TrimSuffix(obj.Key, filepath.Ext(obj.Key))
		g, ok := groups[stem]
		if !ok {
			g = &dataSet{}
			groups[stem] = g
			order = append(order, stem)
		}
		g.members = append(g.members, obj)
		if primaryExtensions[strings.ToLower(filepath.Ext(obj.Key))] && g.key == "" {
			g.key = obj.Key
		}
	}

	sort.Strings(order)
	sets := make([]dataSet, 0, len(order))
	for _, stem := range order {
		if g := groups[stem]; g.key != "" {
			sets = append(sets, *g)
		}
	}
	return sets
}

// IngestStats contains statistics from an ingest run.
type IngestStats struct {
	Added   int
	Failed  int
	Removed int
}

// Sync uploads new or changed data sets from storage and forgets data sets
// that disappeared. Published layers are never deleted by a sync.
func (s *IngestService) Sync(ctx context.Context) (IngestStats, error) {
	s.logger.Info("syncing data sets from storage")

	objects, err := s.storage.List(ctx)
	if err != nil {
		return IngestStats{}, err
	}

	stats := IngestStats{}
	remote := make(map[string]bool)
	for _, ds := range groupDataSets(objects) {
		remote[ds.key] = true
		fp := ds.fingerprint()
		if s.isCurrent(ds.key, fp) {
			s.logger.Debug("data set already ingested, skipping", "key", ds.key)
			continue
		}

		status, err := s.ingest(ctx, ds)
		if err != nil {
			s.logger.Error("failed to ingest data set", "key", ds.key, "error", err)
			stats.Failed++
			continue
		}
		status.Fingerprint = fp

		s.mu.Lock()
		s.datasets[ds.key] = status
		s.mu.Unlock()

		if status.Failed() {
			stats.Failed++
			continue
		}
		stats.Added++
		s.logger.Info("new data set ingested", "key", ds.key)
	}

	for _, key := range s.findDataSetsToForget(remote) {
		s.logger.Info("forgetting data set not in remote storage", "key", key)
		s.mu.Lock()
		delete(s.datasets, key)
		s.mu.Unlock()
		stats.Removed++
	}

	s.logger.Info("sync completed", "added", stats.Added, "failed", stats.Failed, "removed", stats.Removed, "total", s.DataSetCount())
	return stats, nil
}

// ingest downloads the members of a data set into their own staging
// directory and uploads it.
func (s *IngestService) ingest(ctx context.Context, ds dataSet) (*DataSetStatus, error) {
	dir := filepath.Join(s.stagingDir, strings.TrimSuffix(filepath.ToSlash(ds.key), filepath.Ext(ds.key)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to delete staging directory", "path", dir, "error", err)
		}
	}()

	for _, m := range ds.members {
		start := time.Now()
		localPath := filepath.Join(dir, filepath.Base(m.Key))
		err := s.storage.Download(ctx, m.Key, localPath)
		s.metrics.IncStorageOperations("download", err == nil)
		s.metrics.ObserveStorageDuration("download", time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("staging %s: %w", ds.key, err)
		}
	}

	report, err := s.uploader.Upload(ctx, dir, s.opts)
	if err != nil {
		return nil, err
	}
	// Report paths point into the staging directory which is gone after this call.
	for i := range report {
		rel, relErr := filepath.Rel(dir, report[i].File)
		if relErr == nil {
			report[i].File = filepath.ToSlash(filepath.Join(filepath.Dir(ds.key), rel))
		}
	}
	return &DataSetStatus{Key: ds.key, Report: report, IngestedAt: time.Now()}, nil
}

// HandleFile uploads a primary data file that appeared in a watched
// directory. Other files are ignored.
func (s *IngestService) HandleFile(ctx context.Context, path string) error {
	if !primaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		// removed again before the debounce fired
		return nil
	}

	report, err := s.uploader.Upload(ctx, path, s.opts)
	status := &DataSetStatus{Key: path, Report: report, IngestedAt: time.Now()}
	if err != nil {
		status.Report = domain.UploadReport{{File: path, Errors: err.Error(), Kind: domain.KindOf(err)}}
	}

	s.mu.Lock()
	s.datasets[path] = status
	s.mu.Unlock()
	return err
}

// DataSets returns the status of every known data set ordered by key.
func (s *IngestService) DataSets() []DataSetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DataSetStatus, 0, len(s.datasets))
	for _, st := range s.datasets {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DataSetCount returns the number of known data sets.
func (s *IngestService) DataSetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// isCurrent reports whether key was ingested with the same fingerprint.
func (s *IngestService) isCurrent(key, fingerprint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.datasets[key]
	return ok && st.Fingerprint == fingerprint
}

// findDataSetsToForget returns keys that are known but not in remote storage.
// Watched local files have no fingerprint and are kept.
func (s *IngestService) findDataSetsToForget(remote map[string]bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, st := range s.datasets {
		if st.Fingerprint != "" && !remote[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
