package repomanager

import (
	"context"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/records"
)

// Repos vends repositories bound to one handle: the database itself or an
// open transaction.
type Repos interface {
	Records(t models.EntityType) (records.Repository, error)
}

type RepositoryManager interface {
	Repos
	RunMigrations(ctx context.Context) error
	// WithTx runs fn with repositories sharing one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
	Close() error
}
