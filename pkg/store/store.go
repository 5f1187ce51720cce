// Package store opens the export database, applies its schema and records
// snapshot runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/errors"
)

const pingTimeout = 5 * time.Second

// Dialect covers the SQL differences between backends.
type Dialect struct {
	Driver config.DriverType
}

// Placeholder returns the bind marker for the i-th (1-based) argument.
func (d Dialect) Placeholder(i int) string {
	if d.Driver == config.DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// Placeholders returns n comma separated bind markers.
func (d Dialect) Placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

// DB is a connection pool bound to its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect

	driverName string
	dsn        string
}

// Open connects to the configured backend, tunes the pool and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.InferDriver(cfg.DSN)
	}
	if cfg.DSN == "" {
		return nil, errors.WrapError(fmt.Errorf("dsn is empty"), errors.ErrConfiguration, "open database")
	}

	name, dsn, err := driverDSN(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrDatabase, "failed to open database")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	// Every connection to :memory: is a fresh database.
	if driver == config.DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.WrapError(err, errors.ErrDatabase, "failed to ping database")
	}

	if driver == config.DriverSQLite {
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 10000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, errors.WrapError(err, errors.ErrDatabase, pragma)
			}
		}
	}

	return &DB{DB: db, Dialect: Dialect{Driver: driver}, driverName: name, dsn: dsn}, nil
}

// driverDSN maps a backend to its database/sql driver name and normalises
// the DSN for it.
func driverDSN(driver config.DriverType, dsn string) (string, string, error) {
	switch driver {
	case config.DriverPostgres:
		return "pgx", dsn, nil
	case config.DriverSQLite:
		for _, prefix := range []string{"sqlite://", "sqlite:"} {
			if strings.HasPrefix(dsn, prefix) {
				return "sqlite", strings.TrimPrefix(dsn, prefix), nil
			}
		}
		return "sqlite", dsn, nil
	case config.DriverMySQL:
		mc, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
		if err != nil {
			return "", "", errors.WrapError(err, errors.ErrConfiguration, "invalid mysql dsn")
		}
		// Migrations hold several statements per file.
		mc.MultiStatements = true
		mc.ParseTime = true
		return "mysql", mc.FormatDSN(), nil
	default:
		return "", "", errors.WrapError(fmt.Errorf("unknown driver %q", driver), errors.ErrConfiguration, "open database")
	}
}

// WithTx runs fn inside a transaction, rolling back when it fails.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.ErrDatabase, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.ErrDatabase, "failed to commit transaction")
	}
	return nil
}

// insertID inserts one row and returns its generated key.
func (db *DB) insertID(ctx context.Context, tx *sql.Tx, table, key string, columns []string, args []interface{}) (int64, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), db.Dialect.Placeholders(len(columns)))

	if db.Dialect.Driver == config.DriverPostgres {
		var id int64
		if err := tx.QueryRowContext(ctx, query+" RETURNING "+key, args...).Scan(&id); err != nil {
			return 0, errors.WrapError(err, errors.ErrDatabase, "insert into "+table)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrDatabase, "insert into "+table)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrDatabase, "read id from "+table)
	}
	return id, nil
}
