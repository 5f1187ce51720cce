package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/store"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// DBExporter appends record sets to tables. Types names the transform
// applied to a column before it is bound; other columns are bound as is.
type DBExporter struct {
	DB       *store.DB
	Types    map[string]string
	Registry *transform.Registry
	Logger   *slog.Logger
}

// NewDBExporter creates a DBExporter on db.
func NewDBExporter(db *store.DB, logger *slog.Logger) *DBExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBExporter{DB: db, Registry: transform.DefaultRegistry, Logger: logger}
}

// Export inserts every record of set into table in one transaction. Any
// failure rolls the whole batch back and is reported as ErrValidation.
func (e *DBExporter) Export(ctx context.Context, set *record.Set, table string) (int, error) {
	if !identifier.MatchString(table) {
		return 0, errors.WrapError(fmt.Errorf("invalid table name %q", table), errors.ErrValidation, "db export")
	}
	if set == nil || set.Len() == 0 {
		return 0, nil
	}
	columns := set.Columns()
	for _, col := range columns {
		if !identifier.MatchString(col) {
			return 0, errors.WrapError(fmt.Errorf("invalid column name %q", col), errors.ErrValidation, "db export")
		}
		if name, ok := e.Types[col]; ok {
			if _, err := e.registry().Get(name); err != nil {
				return 0, errors.WrapError(err, errors.ErrValidation, "column "+col)
			}
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), e.DB.Dialect.Placeholders(len(columns)))

	err := e.DB.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]interface{}, len(columns))
		for i, rec := range set.Records {
			for j, v := range rec.Values(columns) {
				cell, err := e.coerce(columns[j], v)
				if err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
				args[j] = store.Value(cell)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrValidation, "failed to insert into "+table)
	}

	e.Logger.Info("exported to database", "table", table, "records", set.Len())
	return set.Len(), nil
}

func (e *DBExporter) coerce(column string, v interface{}) (interface{}, error) {
	name, ok := e.Types[column]
	if !ok {
		return v, nil
	}
	out, err := e.registry().Apply(name, v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return out, nil
}

func (e *DBExporter) registry() *transform.Registry {
	if e.Registry == nil {
		return transform.DefaultRegistry
	}
	return e.Registry
}
