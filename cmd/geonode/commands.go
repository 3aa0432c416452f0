package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geonode/geonode/internal/app"
	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Publish a file or every supported file under a directory",
	Long: `Publishes a shapefile, GeoTIFF, zip archive or a directory of them and
prints the per-file report as JSON. Exits non-zero when any file failed.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runUpload,
}

var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Verify that GeoServer and GeoNetwork answer",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Uploads.CheckServices(ctx); err != nil {
				return err
			}
			fmt.Println("catalog and metadata services are reachable")
			return nil
		})
	},
}

var createSuperuserCmd = &cobra.Command{
	Use:          "createsuperuser <username>",
	Short:        "Create an administrator account",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runCreateSuperuser,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <name> [uuid]",
	Short: "Remove catalog artifacts left behind by a failed upload",
	Long: `Deletes the store, resource and published layer named <name> from the
catalog and the metadata record with <uuid>. Refuses to run while a local
layer record of that name exists.`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		uuid := ""
		if len(args) == 2 {
			uuid = args[1]
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Uploads.Cleanup(ctx, args[0], uuid)
		})
	},
}

func init() {
	uploadCmd.Flags().String("user", "", "owner of the new layers (default: the only superuser)")
	uploadCmd.Flags().Bool("overwrite", false, "replace existing layers of the same name")
	uploadCmd.Flags().StringSlice("keywords", nil, "keywords applied to every layer")
	uploadCmd.Flags().String("title", "", "title of a single uploaded file")
	uploadCmd.Flags().String("abstract", "", "abstract of a single uploaded file")
	uploadCmd.Flags().String("permissions", "", "YAML file with the access rules to apply")

	createSuperuserCmd.Flags().String("password", "", "password (read from stdin when empty)")
}

// withApp wires the application without its serving parts and runs fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.TLS.Enabled = false
	cfg.Watcher.Enabled = false
	cfg.Storage.Enabled = false

	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("closing application", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

func runUpload(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	opts := input.UploadOptions{}
	opts.Username, _ = flags.GetString("user")
	opts.Overwrite, _ = flags.GetBool("overwrite")
	opts.Keywords, _ = flags.GetStringSlice("keywords")
	opts.Title, _ = flags.GetString("title")
	opts.Abstract, _ = flags.GetString("abstract")

	if file, _ := flags.GetString("permissions"); file != "" {
		spec, err := readPermissions(file)
		if err != nil {
			return err
		}
		opts.Permissions = spec
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		report, err := a.Uploads.Upload(ctx, args[0], opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if n := report.Failures(); n > 0 {
			return fmt.Errorf("%d of %d files failed to upload", n, len(report))
		}
		return nil
	})
}

// readPermissions loads and validates a YAML access rule file:
//
//	anonymous: _none
//	authenticated: layer_readonly
//	users:
//	  - [admin, layer_admin]
func readPermissions(file string) (*domain.PermissionSpec, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading permissions: %w", err)
	}
	var spec domain.PermissionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing permissions %s: %w", file, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("permissions %s: %w", file, err)
	}
	return &spec, nil
}

func runCreateSuperuser(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		user, err := a.Users.CreateUser(ctx, args[0], password, true)
		if err != nil {
			return err
		}
		fmt.Printf("superuser %s created (id %d)\n", user.Username, user.ID)
		return nil
	})
}
