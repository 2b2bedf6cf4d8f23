// Package rescuedb stores rescue requests, user accounts and searched
// locations in a SQLite database.
package rescuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"
)

const (
	defaultCacheExpirationMinutes = 10
	defaultCacheCleanupMinutes    = 30
	defaultCacheSize              = -64 * 1024 // negative value for KiB
	defaultPageSize               = 4096
	migrationCacheSize            = -512 * 1024
	defaultBusyTimeoutMs          = 10000

	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique record already exists.
	ErrDuplicate = errors.New("already exists")
)

type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
}

// NewStorage opens (creating if needed) the database at dbPath.
func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	return openStorage(ctx, dbPath, logger, false)
}

// NewStorageMigrate opens the database with pragmas tuned for bulk schema
// work and makes sure every table and index exists.
func NewStorageMigrate(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	return openStorage(ctx, dbPath, logger, true)
}

func openStorage(ctx context.Context, dbPath string, logger *slog.Logger, forMigration bool) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	cacheSize := defaultCacheSize
	if forMigration {
		cacheSize = migrationCacheSize
	}
	if err := configureSQLitePragmas(ctx, db, forMigration, cacheSize); err != nil {
		db.Close()
		return nil, err
	}

	if forMigration {
		if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error enabling foreign keys: %w", err)
		}
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	s := &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpirationMinutes*time.Minute, defaultCacheCleanupMinutes*time.Minute),
		log:   logger,
	}
	s.log.Debug("Storage ready", "path", dbPath, "migration", forMigration)
	return s, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rescue_requests (
		id TEXT PRIMARY KEY,
		user_email TEXT,
		station_id TEXT NOT NULL,
		station_name TEXT NOT NULL,
		station_lat REAL NOT NULL,
		station_lng REAL NOT NULL,
		user_lat REAL NOT NULL,
		user_lng REAL NOT NULL,
		fuel_type TEXT NOT NULL,
		quantity_liters INTEGER NOT NULL,
		notes TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rescue_requests_created_at ON rescue_requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_rescue_requests_status ON rescue_requests(status);

	CREATE TABLE IF NOT EXISTS location_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		distance REAL NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		search_time TEXT NOT NULL,
		last_search TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
	`

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB, forMigration bool, cacheSize int) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d;", defaultBusyTimeoutMs)); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA auto_vacuum = INCREMENTAL;"); err != nil {
		return fmt.Errorf("error setting auto vacuum: %w", err)
	}

	syncMode := "NORMAL"
	if forMigration {
		syncMode = "OFF"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA synchronous = %s;", syncMode)); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d;", cacheSize)); err != nil {
		return fmt.Errorf("error setting cache size: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize)); err != nil {
		return fmt.Errorf("error setting page size: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// VacuumDatabase reclaims free pages left behind by deletes.
func (s *Storage) VacuumDatabase(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)"); err != nil {
		return fmt.Errorf("error performing incremental vacuum: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
