// Package main provides the entry point for the GeoNode upload service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geonode/geonode/internal/app"
	"github.com/geonode/geonode/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "geonode",
	Short: "GeoNode - spatial data publishing service",
	Long: `GeoNode publishes shapefiles and GeoTIFFs to a GeoServer catalog,
registers ISO 19139 metadata in GeoNetwork and keeps a local record of every
layer with its access rules.

Running without a subcommand serves the HTTP API.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("GeoNode %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().String("geoserver", "", "GeoServer base URL")
	rootCmd.PersistentFlags().String("geonetwork", "", "GeoNetwork base URL")
	rootCmd.PersistentFlags().String("database-dsn", "", "layer database DSN")

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().String("host", "0.0.0.0", "server host")
		cmd.Flags().Int("port", 8000, "server port")
		cmd.Flags().Bool("tls", false, "enable TLS")
		cmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
		cmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
		cmd.Flags().Bool("sync", false, "ingest data sets from object storage")
		cmd.Flags().String("storage-type", "local", "storage type (local, s3, azure, http)")
		cmd.Flags().String("storage-path", "./data", "local storage path")
		cmd.Flags().Bool("watch", false, "upload data sets dropped into the incoming directory")
		cmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
	}

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("catalog.url", rootCmd.PersistentFlags().Lookup("geoserver"))
	_ = viper.BindPFlag("metadata.url", rootCmd.PersistentFlags().Lookup("geonetwork"))
	_ = viper.BindPFlag("database.dsn", rootCmd.PersistentFlags().Lookup("database-dsn"))

	rootCmd.AddCommand(serveCmd, uploadCmd, checkCmd, createSuperuserCmd, cleanupCmd, versionCmd)
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// bindServerFlags binds the flags of whichever command serves the API.
func bindServerFlags(cmd *cobra.Command) {
	bindings := map[string]string{
		"server.host":                 "host",
		"server.port":                 "port",
		"tls.enabled":                 "tls",
		"tls.domains":                 "tls-domains",
		"tls.email":                   "tls-email",
		"storage.enabled":             "sync",
		"storage.type":                "storage-type",
		"storage.local_path":          "storage-path",
		"watcher.enabled":             "watch",
		"server.cors.allowed_origins": "cors",
	}
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	bindServerFlags(cmd)
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("starting GeoNode",
		"version", version,
		"address", cfg.Server.Address(),
		"catalog", cfg.Catalog.URL,
		"metadata", cfg.Metadata.URL,
		"sync", cfg.Storage.Enabled,
		"watch", cfg.Watcher.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := application.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	// Commands print their results on stdout, logs go to stderr.
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
