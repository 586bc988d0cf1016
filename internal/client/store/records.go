package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/dbx"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Put inserts rec or replaces the row with the same id. A zero rec.ID gets the
// next temporary id (one below the smallest id in the table, or -1), which is
// written back to rec.
func (s *Store) Put(ctx context.Context, rec *cmodels.Record) error {
	if err := rec.Check(); err != nil {
		return err
	}
	t := rec.Type()
	tbl, err := table(t)
	if err != nil {
		return err
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}

	unlock := s.lock(t)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if rec.ID == 0 {
			id, err := nextTempID(ctx, tx, tbl)
			if err != nil {
				return err
			}
			rec.ID = id
		}
		return upsert(ctx, tx, tbl, rec)
	})
	unlock()
	if err != nil {
		return fmt.Errorf("put %s %d: %w", t, rec.ID, err)
	}

	s.notify(t)
	return nil
}

// Get returns the record, tombstones included, or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, t models.EntityType, id int64) (*cmodels.Record, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}
	return get(ctx, s.db, t, tbl, id)
}

// GetAll returns every record of type t except tombstones, in no particular
// order.
func (s *Store) GetAll(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error) {
	return s.query(ctx, t, "deleted = 0")
}

// GetPending returns the records awaiting replay, tombstones and conflicted
// records included.
func (s *Store) GetPending(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error) {
	return s.query(ctx, t, "pending_sync = 1")
}

// GetConflicted returns the records awaiting a resolution.
func (s *Store) GetConflicted(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error) {
	return s.query(ctx, t, "conflict = 1")
}

// PendingCount returns the number of records of type t awaiting replay.
func (s *Store) PendingCount(ctx context.Context, t models.EntityType) (int, error) {
	tbl, err := table(t)
	if err != nil {
		return 0, err
	}
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE pending_sync = 1`, tbl)
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending %s: %w", t, err)
	}
	return n, nil
}

// HasDependents reports whether live records of the child types still
// reference the record t/id.
func (s *Store) HasDependents(ctx context.Context, t models.EntityType, id int64) (bool, error) {
	for _, child := range t.Children() {
		var n int
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id = ? AND deleted = 0`, string(child))
		if err := s.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
			return false, fmt.Errorf("count %s of %s %d: %w", child, t, id, err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Update runs fn on the stored record and writes the result back in one
// transaction. A missing id is not an error: Update returns false and fn is
// not called. An error from fn aborts the write and is returned as is.
func (s *Store) Update(ctx context.Context, t models.EntityType, id int64, fn func(*cmodels.Record) error) (bool, error) {
	tbl, err := table(t)
	if err != nil {
		return false, err
	}

	found := false
	unlock := s.lock(t)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := get(ctx, tx, t, tbl, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		if err := fn(rec); err != nil {
			return err
		}
		if rec.ID != id || rec.Type() != t {
			return fmt.Errorf("%w: update may not change id or type", common.ErrInvalidRecord)
		}
		if err := rec.Check(); err != nil {
			return err
		}
		return upsert(ctx, tx, tbl, rec)
	})
	unlock()
	if err != nil {
		return false, err
	}

	if found {
		s.notify(t)
	}
	return found, nil
}

// Delete removes the row entirely. Deleting a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, t models.EntityType, id int64) error {
	tbl, err := table(t)
	if err != nil {
		return err
	}

	unlock := s.lock(t)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tbl), id)
	unlock()
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", t, id, err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return nil
		}
		return err
	}

	s.notify(t)
	return nil
}

// Rekey replaces the record stored under oldID with rec (which carries the
// server id) and re-points the references held by dependent tables. It runs
// in one transaction.
func (s *Store) Rekey(ctx context.Context, oldID int64, rec *cmodels.Record) error {
	if err := rec.Check(); err != nil {
		return err
	}
	t := rec.Type()
	tbl, err := table(t)
	if err != nil {
		return err
	}

	children := t.Children()
	unlock := s.lock(append([]models.EntityType{t}, children...)...)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if oldID != rec.ID {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tbl), oldID); err != nil {
				return err
			}
			// a previous pull may already hold the server row
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tbl), rec.ID); err != nil {
				return err
			}
		}
		if err := upsert(ctx, tx, tbl, rec); err != nil {
			return err
		}
		if oldID == rec.ID {
			return nil
		}
		for _, child := range children {
			if err := repoint(ctx, tx, child, oldID, rec.ID); err != nil {
				return err
			}
		}
		return nil
	})
	unlock()
	if err != nil {
		return fmt.Errorf("rekey %s %d -> %d: %w", t, oldID, rec.ID, err)
	}

	s.notify(append([]models.EntityType{t}, children...)...)
	return nil
}

func (s *Store) query(ctx context.Context, t models.EntityType, where string) ([]*cmodels.Record, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, columns, tbl, where)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t, err)
	}
	defer rows.Close()

	var result []*cmodels.Record
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		rec, err := decode(t, r)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func get(ctx context.Context, db dbx.DBTX, t models.EntityType, tbl string, id int64) (*cmodels.Record, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, tbl)
	r, err := scanRow(db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", t, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", t, id, err)
	}
	return decode(t, r)
}

func nextTempID(ctx context.Context, db dbx.DBTX, tbl string) (int64, error) {
	var minID int64
	q := fmt.Sprintf(`SELECT COALESCE(MIN(id), 0) FROM %s`, tbl)
	if err := db.QueryRowContext(ctx, q).Scan(&minID); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return min(minID, 0) - 1, nil
}

func upsert(ctx context.Context, db dbx.DBTX, tbl string, rec *cmodels.Record) error {
	r, err := encode(rec)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_ref = excluded.client_ref,
			owner_id = excluded.owner_id,
			parent_id = excluded.parent_id,
			data = excluded.data,
			pending_sync = excluded.pending_sync,
			conflict = excluded.conflict,
			deleted = excluded.deleted,
			base_version = excluded.base_version,
			server_version = excluded.server_version,
			updated_at = excluded.updated_at`, tbl, columns)
	_, err = db.ExecContext(ctx, q, r.args()...)
	return err
}

// repoint rewrites the parent reference of child rows from oldID to newID.
func repoint(ctx context.Context, db dbx.DBTX, child models.EntityType, oldID, newID int64) error {
	var path string
	switch child {
	case models.Orders:
		path = "$.clientId"
	case models.Payments:
		path = "$.orderId"
	default:
		return fmt.Errorf("%w: %s has no parent", common.ErrUnknownEntity, child)
	}

	q := fmt.Sprintf(`UPDATE %s SET parent_id = ?, data = json_set(data, '%s', ?) WHERE parent_id = ?`,
		string(child), path)
	if _, err := db.ExecContext(ctx, q, newID, newID, oldID); err != nil {
		return fmt.Errorf("repoint %s: %w", child, err)
	}
	return nil
}
