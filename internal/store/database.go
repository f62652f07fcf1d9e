// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver for database/sql
	_ "github.com/mattn/go-sqlite3"    // cgo SQLite driver, registered as "sqlite3"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrations embed.FS

// Dialect identifies the SQL flavour of the backing store.
type Dialect string

// Supported dialects.
const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DBConfig holds database configuration options.
type DBConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible defaults.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		// SQLite with WAL mode supports multiple readers but single writer
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// NewDB opens a database connection for the given driver and DSN.
func NewDB(driver, dsn string) (*sql.DB, error) {
	return NewDBWithConfig(driver, dsn, DefaultDBConfig())
}

// NewDBWithConfig opens a database connection with custom pool configuration.
// SQLite connections are tuned with DSN pragmas; MySQL connections are used as-is.
func NewDBWithConfig(driver, dsn string, cfg DBConfig) (*sql.DB, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		dsn = sqliteDSN(driver, dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// sqlitePragma is a connection setting applied through the DSN, so that
// every pooled connection gets it and not only the first one.
type sqlitePragma struct {
	name  string
	value string
	// mattn is the go-sqlite3 DSN key, empty when that driver has none.
	mattn string
}

var sqlitePragmas = []sqlitePragma{
	{"journal_mode", "WAL", "_journal_mode"},  // Write-Ahead Logging for better concurrency
	{"busy_timeout", "5000", "_busy_timeout"}, // Wait 5s when database is locked
	{"synchronous", "NORMAL", "_synchronous"}, // Good balance of safety and speed
	{"foreign_keys", "1", "_foreign_keys"},    // Enforce foreign key constraints
	{"temp_store", "MEMORY", ""},              // Store temp tables in memory
}

// sqliteDSN appends the connection pragmas to dsn in the syntax of driver,
// keeping any the caller already set.
func sqliteDSN(driver, dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		if driver == "sqlite3" {
			if p.mattn == "" || strings.Contains(dsn, p.mattn+"=") {
				continue
			}
			params = append(params, p.mattn+"="+p.value)
			continue
		}
		if strings.Contains(dsn, "_pragma="+p.name+"(") {
			continue
		}
		params = append(params, "_pragma="+p.name+"("+p.value+")")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Migrate runs all pending database migrations for the dialect.
func Migrate(db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations)

	gooseDialect := "sqlite3"
	if dialect == DialectMySQL {
		gooseDialect = "mysql"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+string(dialect)); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
