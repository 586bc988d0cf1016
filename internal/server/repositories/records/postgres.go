package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/dbx"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// nextUpdatedAt keeps updated_at strictly increasing even when two writes
// land within the clock's resolution.
const nextUpdatedAt = "GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')"

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
	t  *table
}

// NewPostgresRepository constructs the repository of entity type t bound to db.
func NewPostgresRepository(db dbx.DBTX, t models.EntityType) (*PostgresRepository, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	return &PostgresRepository{db: db, t: tbl}, nil
}

func (r *PostgresRepository) selectColumns() string {
	return "id, client_ref, updated_at, " + strings.Join(r.t.columns, ", ")
}

// placeholders returns "$from, $from+1, ..." for n parameters.
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.Canonical, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY id`, r.selectColumns(), r.t.name)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", r.t.name, err)
	}
	defer rows.Close()

	result := []models.Canonical{}
	for rows.Next() {
		c, err := r.t.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, utc(c))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (models.Canonical, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 AND id = $2`, r.selectColumns(), r.t.name)

	c, err := r.t.scan(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Canonical{}, fmt.Errorf("%s %d: %w", r.t.name, id, common.ErrNotFound)
		}
		return models.Canonical{}, fmt.Errorf("db error: %w", err)
	}
	return utc(c), nil
}

// checkParent verifies that the record e references belongs to userID.
func (r *PostgresRepository) checkParent(ctx context.Context, userID string, e models.Entity) error {
	if r.t.parentTable == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND id = $2)`, r.t.parentTable)

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, e.ParentID()).Scan(&ok); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s %d does not exist", common.ErrInvalidReference, r.t.parentColumn, e.ParentID())
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID, clientRef string, e models.Entity) (models.Canonical, error) {
	values, err := r.t.values(e)
	if err != nil {
		return models.Canonical{}, err
	}
	if err := r.checkParent(ctx, userID, e); err != nil {
		return models.Canonical{}, err
	}

	// The no-op DO UPDATE makes RETURNING yield the existing row on a repeat.
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, client_ref, %s)
		VALUES ($1, $2, %s)
		ON CONFLICT (user_id, client_ref)
		DO UPDATE SET client_ref = EXCLUDED.client_ref
		RETURNING %s`,
		r.t.name, strings.Join(r.t.columns, ", "), placeholders(3, len(values)), r.selectColumns())

	args := append([]any{userID, nullString(clientRef)}, values...)
	c, err := r.t.scan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.Canonical{}, fmt.Errorf("db error: %w", err)
	}
	return utc(c), nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, id int64, base time.Time, e models.Entity) (models.Canonical, error) {
	values, err := r.t.values(e)
	if err != nil {
		return models.Canonical{}, err
	}
	if err := r.checkParent(ctx, userID, e); err != nil {
		return models.Canonical{}, err
	}

	sets := make([]string, len(r.t.columns))
	for i, col := range r.t.columns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+3)
	}
	basePos := len(values) + 3

	query := fmt.Sprintf(`
		UPDATE %s SET %s, updated_at = %s
		WHERE user_id = $1 AND id = $2 AND updated_at = $%d
		RETURNING %s`,
		r.t.name, strings.Join(sets, ", "), nextUpdatedAt, basePos, r.selectColumns())

	args := append([]any{userID, id}, values...)
	args = append(args, base)

	c, err := r.t.scan(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return utc(c), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Canonical{}, fmt.Errorf("db error: %w", err)
	}

	// Nothing matched: the record is gone or has moved past base.
	current, err := r.Get(ctx, userID, id)
	if err != nil {
		return models.Canonical{}, err
	}
	return models.Canonical{}, &models.ConflictError{Current: current}
}

// checkChildren fails with ErrHasDependents if any of ids is still referenced.
func (r *PostgresRepository) checkChildren(ctx context.Context, userID string, ids []int64) error {
	if r.t.childTable == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND %s IN (%s))`,
		r.t.childTable, r.t.childColumn, placeholders(2, len(ids)))

	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}

	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if found {
		return fmt.Errorf("%w: %s still referenced by %s", common.ErrHasDependents, r.t.name, r.t.childTable)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, id int64) error {
	if err := r.checkChildren(ctx, userID, []int64{id}); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND id = $2`, r.t.name)
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return fmt.Errorf("%s %d: %w", r.t.name, id, common.ErrNotFound)
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) BulkDelete(ctx context.Context, userID string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.checkChildren(ctx, userID, ids); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND id IN (%s)`, r.t.name, placeholders(2, len(ids)))

	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

var _ Repository = (*PostgresRepository)(nil)
