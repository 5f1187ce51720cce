package store

import (
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/errors"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies the embedded schema for the connection's dialect.
//
// The mysql and postgres drivers pin a connection and close the pool they
// are given, so they run on a dedicated pool. SQLite shares the caller's
// pool because an in-memory database only exists on it.
func (db *DB) Migrate() error {
	migrationSource, err := iofs.New(migrations, "migrations/"+string(db.Dialect.Driver))
	if err != nil {
		return errors.WrapError(err, errors.ErrDatabase, "failed to read migrations")
	}

	if db.Dialect.Driver == config.DriverSQLite {
		driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		if err != nil {
			return errors.WrapError(err, errors.ErrDatabase, "failed to create migration driver")
		}
		// Not closed: closing the migrator closes db.
		return up("sqlite", migrationSource, driver, false)
	}

	pool, err := sql.Open(db.driverName, db.dsn)
	if err != nil {
		return errors.WrapError(err, errors.ErrDatabase, "failed to open migration connection")
	}
	var driver database.Driver
	switch db.Dialect.Driver {
	case config.DriverMySQL:
		driver, err = migratemysql.WithInstance(pool, &migratemysql.Config{})
	case config.DriverPostgres:
		driver, err = migratepgx.WithInstance(pool, &migratepgx.Config{})
	default:
		err = fmt.Errorf("unknown driver %q", db.Dialect.Driver)
	}
	if err != nil {
		pool.Close()
		return errors.WrapError(err, errors.ErrDatabase, "failed to create migration driver")
	}
	return up(string(db.Dialect.Driver), migrationSource, driver, true)
}

func up(name string, src source.Driver, driver database.Driver, closeAfter bool) error {
	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return errors.WrapError(err, errors.ErrDatabase, "failed to create migrator")
	}
	if closeAfter {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.WrapError(err, errors.ErrDatabase, "migration failed")
	}
	return nil
}
