package repomanager

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/records"
)

// InMemoryRepositoryManager keeps records in process memory. Transactions
// are not isolated: each repository call is atomic on its own and WithTx
// simply runs fn.
type InMemoryRepositoryManager struct {
	store *records.MemoryStore
}

// NewInMemoryRepositoryManager creates an empty manager. A nil now uses
// time.Now for record timestamps.
func NewInMemoryRepositoryManager(now func() time.Time) *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: records.NewMemoryStore(now)}
}

func (m *InMemoryRepositoryManager) Records(t models.EntityType) (records.Repository, error) {
	repo, err := m.store.Records(t)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error {
	return fn(ctx, m)
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Close() error { return nil }

var (
	_ RepositoryManager = (*InMemoryRepositoryManager)(nil)
	_ RepositoryManager = (*PostgresRepositoryManager)(nil)
)
