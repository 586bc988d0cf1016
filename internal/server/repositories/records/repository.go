// Package records persists clients, orders, inventory items and payments in
// PostgreSQL, one table per entity type, scoped by owner.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Repository stores the records of one entity type. Every method is scoped
// to userID; records of other owners behave as if they did not exist.
type Repository interface {
	List(ctx context.Context, userID string) ([]models.Canonical, error)
	Get(ctx context.Context, userID string, id int64) (models.Canonical, error)

	// Create inserts e. A repeated clientRef returns the row the first call
	// created and leaves it untouched.
	Create(ctx context.Context, userID, clientRef string, e models.Entity) (models.Canonical, error)

	// Update replaces the fields of record id if its updated_at still equals
	// base. A stale base yields *models.ConflictError carrying the stored row.
	Update(ctx context.Context, userID string, id int64, base time.Time, e models.Entity) (models.Canonical, error)

	Delete(ctx context.Context, userID string, id int64) error

	// BulkDelete removes the listed records and reports how many existed.
	// Nothing is removed when any of them is still referenced.
	BulkDelete(ctx context.Context, userID string, ids []int64) (int64, error)
}
