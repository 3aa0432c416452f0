// Package watcher uploads spatial data sets dropped into an incoming directory.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a settled change to one data set.
type Event struct {
	Path      string // primary file of the data set
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called once a data set has stopped changing.
type Handler func(ctx context.Context, event Event) error

// primaryExtensions are tried in order when only side files of a data set changed.
var primaryExtensions = []string{".shp", ".tif", ".tiff", ".geotiff", ".geotif", ".zip"}

var sideExtensions = map[string]bool{
	".dbf": true,
	".shx": true,
	".prj": true,
	".cpg": true,
	".sld": true,
}

// pendingEvent collects the events of one data set until it settles.
type pendingEvent struct {
	timestamp time.Time
	op        Operation
	primary   string
}

// Watcher watches directories for spatial data files. Events are grouped by
// data set (directory and base name) so a shapefile copied part by part
// triggers a single upload once all parts are in place.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	paths     []string
	debounce  time.Duration
	mu        sync.Mutex
	pending   map[string]*pendingEvent
}

// Config holds watcher configuration.
type Config struct {
	Paths    []string
	Debounce time.Duration
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 2 * time.Second
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		paths:     cfg.Paths,
		debounce:  cfg.Debounce,
		pending:   make(map[string]*pendingEvent),
	}, nil
}

// Start starts watching the configured paths.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("invalid watch path", "path", path, "error", err)
			continue
		}

		if err := w.fsWatcher.Add(absPath); err != nil {
			w.logger.Warn("failed to watch path", "path", absPath, "error", err)
			continue
		}

		w.logger.Info("watching directory", "path", absPath)
	}

	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	primary, relevant := classify(event.Name)
	if !relevant {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
	w.record(dataSetKey(event.Name), primary, fsnotifyOpToOperation(event.Op))
}

// record adds an event to the pending data set. primary is the event path
// when it names a primary file, empty for side files.
func (w *Watcher) record(key, primary string, op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, exists := w.pending[key]
	if !exists {
		w.pending[key] = &pendingEvent{
			timestamp: time.Now(),
			op:        op,
			primary:   primary,
		}
		return
	}

	if primary != "" {
		existing.primary = primary
	}
	updatePendingEvent(existing, op)
}

func updatePendingEvent(existing *pendingEvent, newOp Operation) {
	existing.timestamp = time.Now()

	switch {
	case existing.op == OpDelete && newOp == OpCreate:
		existing.op = OpCreate
	case newOp == OpDelete:
		existing.op = OpDelete
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending hands settled data sets to the handler. Uploads must not
// overlap, so the handler runs synchronously.
func (w *Watcher) processPending(ctx context.Context) {
	for _, event := range w.settled(time.Now()) {
		w.logger.Info("processing data set event",
			"path", event.Path,
			"operation", event.Operation.String(),
		)

		if err := w.handler(ctx, event); err != nil {
			w.logger.Error("handler error",
				"path", event.Path,
				"operation", event.Operation.String(),
				"error", err,
			)
		}
	}
}

// settled removes and returns the data sets that have been quiet for the
// debounce interval. Data sets without a primary file are dropped.
func (w *Watcher) settled(now time.Time) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []Event
	for key, pending := range w.pending {
		if now.Sub(pending.timestamp) < w.debounce {
			continue
		}
		delete(w.pending, key)

		primary := pending.primary
		if primary == "" {
			primary = findPrimary(key)
		}
		if primary == "" {
			w.logger.Debug("no primary file for changed data set", "data_set", key)
			continue
		}
		events = append(events, Event{Path: primary, Operation: pending.op})
	}
	return events
}

func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		// the file is gone from its original location
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpModify
	}
}

// classify reports whether path belongs to a data set and whether it is
// the data set's primary file.
func classify(path string) (primary string, relevant bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range primaryExtensions {
		if ext == p {
			return path, true
		}
	}
	return "", sideExtensions[ext]
}

// dataSetKey is the path without its extension.
func dataSetKey(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// findPrimary looks for a primary file next to the side files of key.
func findPrimary(key string) string {
	for _, ext := range primaryExtensions {
		for _, candidate := range []string{key + ext, key + strings.ToUpper(ext)} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
