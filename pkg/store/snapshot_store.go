package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

var (
	snapshotColumns = []string{
		"sph_version_id", "snapshot_id", "job_user_id", "job_account_id", "warehouse_name",
		"warehouse_id", "customer_account_id", "notification_email", "email_error", "post_url",
		"post_error", "post_url_pre_check", "status", "error", "created_at", "enqueued_at",
		"updated_at", "snapshot_url", "snapshot_expiration",
	}
	detailColumns = []string{
		"snapshot_id", "warehouse_id", "snapshot_started_at", "snapshot_finished_at", "sku",
		"account_id", "vendor_id", "vendor_name", "on_hand", "allocated", "backorder",
		"available", "reserve", "non_sellable",
	}
	detailTypes = map[string]string{
		"snapshot_id": "string", "warehouse_id": "string", "snapshot_started_at": "string",
		"snapshot_finished_at": "string", "sku": "trim", "account_id": "string",
		"vendor_id": "string", "vendor_name": "string", "on_hand": "int", "allocated": "int",
		"backorder": "int", "available": "int", "reserve": "int", "non_sellable": "int",
	}
)

// SnapshotStore persists snapshot runs: a version row, the job row and its
// detail rows.
type SnapshotStore struct {
	db  *DB
	now func() time.Time
}

// NewSnapshotStore creates a SnapshotStore on db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

// SaveRun writes one run in a single transaction and returns the version
// id. snapshot is the job record and details its flattened rows; nothing
// is kept if any insert fails.
func (s *SnapshotStore) SaveRun(ctx context.Context, runID string, snapshot *record.Record, details *record.Set) (int64, error) {
	if snapshot == nil {
		return 0, errors.WrapError(fmt.Errorf("snapshot record is required"), errors.ErrValidation, "save run")
	}

	var versionID int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		versionID, err = s.db.insertID(ctx, tx, "sph_version", "sph_version_id",
			[]string{"run_id", "created_at"},
			[]interface{}{runID, s.now().UTC()})
		if err != nil {
			return err
		}

		args := make([]interface{}, len(snapshotColumns))
		args[0] = versionID
		for i, col := range snapshotColumns[1:] {
			v, _ := snapshot.Get(col)
			args[i+1] = Value(v)
		}
		snapshotID, err := s.db.insertID(ctx, tx, "sph_snapshot_inventario", "sph_snapshot_inventario_id",
			snapshotColumns, args)
		if err != nil {
			return err
		}

		if details == nil || details.Len() == 0 {
			return nil
		}
		columns := append([]string{"sph_snapshot_inventario_id"}, detailColumns...)
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO sph_inventario_detalle (%s) VALUES (%s)",
			joinColumns(columns), s.db.Dialect.Placeholders(len(columns))))
		if err != nil {
			return errors.WrapError(err, errors.ErrDatabase, "prepare detail insert")
		}
		defer stmt.Close()

		for i, rec := range details.Records {
			row := make([]interface{}, 0, len(columns))
			row = append(row, snapshotID)
			for j, v := range rec.Values(detailColumns) {
				cell, err := transform.DefaultRegistry.Apply(detailTypes[detailColumns[j]], v)
				if err != nil {
					return errors.WrapError(err, errors.ErrValidation, fmt.Sprintf("detail row %d column %s", i, detailColumns[j]))
				}
				row = append(row, Value(cell))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return errors.WrapError(err, errors.ErrDatabase, fmt.Sprintf("insert detail row %d", i))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return versionID, nil
}
