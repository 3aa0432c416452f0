// Package postgis talks directly to the PostGIS database behind
// database-backed data stores.
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/geonode/geonode/internal/ports/output"
)

var _ output.FeatureDatabase = (*Database)(nil)

// Config holds the connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN returns the libpq connection string.
func (c Config) DSN() string {
	parts := []string{
		"host=" + quoteValue(c.Host),
		"dbname=" + quoteValue(c.Database),
	}
	if c.Port != 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	if c.User != "" {
		parts = append(parts, "user="+quoteValue(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteValue(c.Password))
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts = append(parts, "sslmode="+sslmode)
	return strings.Join(parts, " ")
}

// quoteValue quotes a libpq keyword value when it contains spaces or quotes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Database implements output.FeatureDatabase.
type Database struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open prepares a connection pool. No connection is made until first use.
func Open(cfg Config, logger *slog.Logger) (*Database, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgis connection: %w", err)
	}
	return &Database{db: db, logger: logger}, nil
}

// Ping checks the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// DropTable removes the table a failed import left behind.
func (d *Database) DropTable(ctx context.Context, name string) error {
	if _, err := d.db.ExecContext(ctx, dropStatement(name)); err != nil {
		return fmt.Errorf("dropping table %s: %w", name, err)
	}
	d.logger.Info("dropped feature table", "table", name)
	return nil
}

// Close releases the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

func dropStatement(name string) string {
	return "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(name) + " CASCADE"
}
