package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const defaultQueryTimeout = 5 * time.Second

// Store persists accounts and uploaded-file metadata. SQLite is the default
// engine; postgres and mysql are selectable through the storage config so a
// deployment can point the store at an existing database server.
type Store struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// Options controls how the store opens its database.
type Options struct {
	// Driver is one of "sqlite", "postgres", "mysql". Empty means sqlite.
	Driver string
	// DSN is the driver-specific connection string. For sqlite an empty DSN
	// opens an in-memory database.
	DSN string
	// DataDir is used by the sqlite driver when DSN is empty to place the
	// database file. Ignored by the server drivers.
	DataDir string
	// QueryTimeout bounds every store call. Zero means the 5s default.
	QueryTimeout time.Duration
}

// Open connects to the configured database and runs migrations.
func Open(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "sqlite"
	}

	dsn := opts.DSN
	switch driver {
	case "sqlite":
		if dsn == "" {
			if opts.DataDir == "" {
				dsn = ":memory:?_journal_mode=WAL"
			} else {
				if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
					return nil, fmt.Errorf("create data dir: %w", err)
				}
				dsn = filepath.Join(opts.DataDir, "sheetdrop.db") + "?_journal_mode=WAL&_busy_timeout=5000"
			}
		}
	case "postgres":
		driver = "pgx"
	case "mysql":
		// go-sql-driver needs parseTime to scan TIMESTAMP into time.Time.
		if dsn != "" && !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", opts.Driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	s := &Store{db: db, queryTimeout: timeout}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// bound derives a context with the store's query timeout so no call can hang
// indefinitely on an unavailable database.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// isUniqueViolation reports whether err is a unique-constraint error from any
// of the supported engines.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
