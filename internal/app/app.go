// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/geonode/geonode/internal/adapters/database"
	"github.com/geonode/geonode/internal/adapters/geonetwork"
	"github.com/geonode/geonode/internal/adapters/geoserver"
	httpAdapter "github.com/geonode/geonode/internal/adapters/http"
	"github.com/geonode/geonode/internal/adapters/metrics"
	"github.com/geonode/geonode/internal/adapters/postgis"
	"github.com/geonode/geonode/internal/adapters/shapefile"
	"github.com/geonode/geonode/internal/adapters/storage"
	"github.com/geonode/geonode/internal/adapters/style"
	tlsAdapter "github.com/geonode/geonode/internal/adapters/tls"
	"github.com/geonode/geonode/internal/adapters/watcher"
	"github.com/geonode/geonode/internal/application"
	"github.com/geonode/geonode/internal/config"
	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
	"github.com/geonode/geonode/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB         *gorm.DB
	FeatureDB  *postgis.Database
	Catalog    *geoserver.Client
	Metadata   *geonetwork.Client
	Users      *application.UsersService
	Layers     *application.LayerService
	Uploads    *application.UploadService
	Health     *application.HealthService
	Ingest     *application.IngestService
	Scheduler  *application.IngestScheduler
	HTTPServer *httpAdapter.Server
	TLS        *tlsAdapter.Manager
	Watcher    *watcher.Watcher
	Metrics    *metrics.Collector
}

// New creates and wires a new application. Nothing is started.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("geonode")
		metricsCollector = app.Metrics
	}

	db, err := database.Open(database.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	app.DB = db

	layerRepo := database.NewLayerRepository(db)
	userRepo := database.NewUserRepository(db)
	contactRepo := database.NewContactRepository(db)
	permRepo := database.NewPermissionRepository(db)

	app.Catalog = geoserver.NewClient(geoserver.Config{
		URL:       cfg.Catalog.URL,
		User:      cfg.Catalog.User,
		Password:  cfg.Catalog.Password,
		Workspace: cfg.Catalog.Workspace,
		Timeout:   cfg.Catalog.Timeout,
	}, logger)

	app.Metadata = geonetwork.NewClient(geonetwork.Config{
		URL:      cfg.Metadata.URL,
		User:     cfg.Metadata.User,
		Password: cfg.Metadata.Password,
		Timeout:  cfg.Metadata.Timeout,
		OWSURL:   owsURL(cfg.Catalog.URL),
	}, logger)

	var featureDB output.FeatureDatabase
	if cfg.DataStore.Enabled {
		pg, err := postgis.Open(postgis.Config{
			Host:     cfg.DataStore.Host,
			Port:     cfg.DataStore.Port,
			Database: cfg.DataStore.Database,
			User:     cfg.DataStore.User,
			Password: cfg.DataStore.Password,
			SSLMode:  cfg.DataStore.SSLMode,
		}, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("opening datastore: %w", err)
		}
		app.FeatureDB = pg
		featureDB = pg
	}

	app.Users = application.NewUsersService(userRepo, logger)
	app.Layers = application.NewLayerService(layerRepo, permRepo, userRepo, logger)
	app.Health = application.NewHealthService(app.Catalog, app.Metadata, layerRepo)

	stores := application.NewStoreCreator(app.Catalog, featureDB, application.DataStoreOptions{
		Enabled:  cfg.DataStore.Enabled,
		Name:     cfg.DataStore.Name,
		Host:     cfg.DataStore.Host,
		Port:     cfg.DataStore.Port,
		Database: cfg.DataStore.Database,
		User:     cfg.DataStore.User,
		Password: cfg.DataStore.Password,
		DBType:   cfg.DataStore.DBType,
	}, logger)

	var verifier application.LayerVerifier
	if cfg.Upload.DeepVerify {
		verifier = application.NewCatalogVerifier(app.Catalog, app.Metadata)
	}

	app.Uploads = application.NewUploadService(application.UploadDependencies{
		Catalog:  app.Catalog,
		Metadata: app.Metadata,
		Layers:   layerRepo,
		Contacts: contactRepo,
		Names:    application.NewNameResolver(layerRepo, logger),
		Stores:   stores,
		Access:   app.Layers,
		Users:    app.Users,
		Styles:   style.Generator{},
		Sniffer:  shapefile.Sniffer{},
		Verifier: verifier,
		Metrics:  metricsCollector,
	}, application.UploadOptions{
		CatalogURL:  cfg.Catalog.URL,
		MetadataURL: cfg.Metadata.URL,
		StagingDir:  cfg.Upload.StagingDir,
	}, logger)

	if cfg.Storage.Enabled || cfg.Watcher.Enabled {
		var objects output.ObjectStorage
		if cfg.Storage.Enabled {
			objects, err = initStorage(ctx, cfg.Storage)
			if err != nil {
				app.close()
				return nil, fmt.Errorf("initializing storage: %w", err)
			}
		}
		app.Ingest = application.NewIngestService(objects, app.Uploads, metricsCollector, logger,
			cfg.Upload.StagingDir, input.UploadOptions{
				Username:  cfg.Upload.DefaultUser,
				Keywords:  cfg.Upload.Keywords,
				Overwrite: cfg.Upload.Overwrite,
			})
		if cfg.Storage.Enabled {
			app.Scheduler = application.NewIngestScheduler(app.Ingest,
				cfg.Storage.SyncInterval, cfg.Storage.SyncCooldown, logger)
		}
	}

	services := httpAdapter.Services{
		Uploads: app.Uploads,
		Layers:  app.Layers,
		Auth:    app.Users,
		Health:  app.Health,
	}
	if app.Scheduler != nil {
		services.Ingest = app.Scheduler
	}
	app.HTTPServer = httpAdapter.NewServer(cfg.Server, services, logger)

	if app.Metrics != nil {
		router := app.HTTPServer.Router()
		router.Use(app.Metrics.Middleware)
		router.Handle(cfg.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	if cfg.TLS.Enabled {
		manager, err := tlsAdapter.NewManager(tlsAdapter.Config{
			Domains:  cfg.TLS.Domains,
			Email:    cfg.TLS.Email,
			CacheDir: cfg.TLS.CacheDir,
			Staging:  cfg.TLS.Staging,
			DNS: tlsAdapter.DNSConfig{
				SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
				ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
				ClientID:          cfg.TLS.DNS.ClientID,
			},
		}, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLS = manager
	}

	if cfg.Watcher.Enabled {
		w, err := watcher.New(watcher.Config{
			Paths:    []string{cfg.Watcher.Path},
			Debounce: cfg.Watcher.Debounce,
		}, app.handleFileEvent, logger)
		if err != nil {
			logger.Warn("failed to initialize directory watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start runs the background workers and serves the API until the server
// stops.
func (a *App) Start(ctx context.Context) error {
	if layers, err := a.Layers.List(ctx, adminView); err == nil && a.Metrics != nil {
		a.Metrics.SetLayersPublished(len(layers))
	}

	if err := a.Uploads.CheckServices(ctx); err != nil {
		a.Logger.Warn("remote catalogs not reachable yet", "error", err)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start directory watcher", "error", err)
		}
	}

	if a.Scheduler != nil {
		go func() {
			if _, err := a.Scheduler.TriggerSync(ctx); err != nil {
				a.Logger.Error("initial ingest failed", "error", err)
			}
		}()
		a.Scheduler.Start(ctx)
	}

	var err error
	if a.TLS != nil {
		if err := a.TLS.ManageCertificates(ctx); err != nil {
			return err
		}
		err = a.HTTPServer.StartTLS(a.TLS.TLSConfig())
	} else {
		err = a.HTTPServer.Start()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var errs []error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the database connections. Used by commands that never
// start the server.
func (a *App) Close() error {
	return a.close()
}

func (a *App) close() error {
	var errs []error
	if a.FeatureDB != nil {
		errs = append(errs, a.FeatureDB.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}

// handleFileEvent uploads data sets that settle in the watched directory.
// Deletions are logged only; layers are never removed by the watcher.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("file event", "path", event.Path, "operation", event.Operation.String())

	if event.Operation == watcher.OpDelete {
		return nil
	}
	if a.Scheduler != nil {
		return a.Scheduler.HandleFile(ctx, event.Path)
	}
	return a.Ingest.HandleFile(ctx, event.Path)
}

// adminView lists every layer regardless of permissions.
var adminView = domain.User{Username: "system", IsSuperuser: true}

// owsURL derives the WMS endpoint advertised in metadata records from the
// catalog REST URL.
func owsURL(catalogURL string) string {
	if !strings.HasSuffix(catalogURL, "/") {
		catalogURL += "/"
	}
	return catalogURL + "wms"
}

// initStorage initializes the object storage data sets are ingested from.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
