package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/druguse/internal/model"
	"github.com/tinytelemetry/druguse/internal/store/migrate"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for a driver other than duckdb or sqlite.
var ErrUnknownDriver = errors.New("store: unknown driver")

// Config selects the database engine and file.
type Config struct {
	Driver       string        // duckdb (default) or sqlite
	Path         string        // empty = in-memory
	QueryTimeout time.Duration // defaults to 30s
}

// Store manages the single database connection shared by importer and server.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	driver       string
	dbPath       string
	QueryTimeout time.Duration
}

// Open opens or creates the database and applies pending migrations.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = model.DefaultDriver
	}
	dsn, err := dataSourceName(driver, cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Path != "" {
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// One persistent connection. It also keeps an in-memory SQLite database alive
	// for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := model.DefaultQueryTimeout
	if cfg.QueryTimeout > 0 {
		qt = cfg.QueryTimeout
	}

	return &Store{
		db:           db,
		driver:       driver,
		dbPath:       cfg.Path,
		QueryTimeout: qt,
	}, nil
}

func dataSourceName(driver, path string) (string, error) {
	switch driver {
	case DriverDuckDB:
		return path, nil
	case DriverSQLite:
		if path == "" {
			return ":memory:", nil
		}
		return path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}
