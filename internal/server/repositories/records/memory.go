package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

type memRow struct {
	owner string
	rec   models.Canonical
}

// MemoryStore keeps the records of all entity types in process memory. It
// backs the server when no database is configured and serves as a test double.
type MemoryStore struct {
	mu   sync.Mutex
	now  func() time.Time
	seq  int64
	rows map[models.EntityType]map[int64]memRow
}

// NewMemoryStore creates an empty store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	rows := make(map[models.EntityType]map[int64]memRow, len(models.All()))
	for _, t := range models.All() {
		rows[t] = map[int64]memRow{}
	}
	return &MemoryStore{now: now, rows: rows}
}

// Records returns the repository of entity type t.
func (s *MemoryStore) Records(t models.EntityType) (*MemoryRepository, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
	}
	return &MemoryRepository{s: s, t: t}, nil
}

// stamp returns a modification time later than prev, at the database's
// microsecond resolution.
func (s *MemoryStore) stamp(prev time.Time) time.Time {
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(prev) {
		ts = prev.Add(time.Microsecond)
	}
	return ts
}

// MemoryRepository implements Repository over a MemoryStore.
type MemoryRepository struct {
	s *MemoryStore
	t models.EntityType
}

func (r *MemoryRepository) List(_ context.Context, userID string) ([]models.Canonical, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := []models.Canonical{}
	for _, row := range r.s.rows[r.t] {
		if row.owner == userID {
			result = append(result, row.rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryRepository) Get(_ context.Context, userID string, id int64) (models.Canonical, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(userID, id)
}

func (r *MemoryRepository) get(userID string, id int64) (models.Canonical, error) {
	row, ok := r.s.rows[r.t][id]
	if !ok || row.owner != userID {
		return models.Canonical{}, fmt.Errorf("%s %d: %w", r.t, id, common.ErrNotFound)
	}
	return row.rec, nil
}

func (r *MemoryRepository) checkEntity(userID string, e models.Entity) error {
	if e == nil || e.Type() != r.t {
		return fmt.Errorf("%w: want %s, got %T", common.ErrInvalidRecord, r.t.Singular(), e)
	}
	parent, ok := r.t.Parent()
	if !ok {
		return nil
	}
	row, exists := r.s.rows[parent][e.ParentID()]
	if !exists || row.owner != userID {
		return fmt.Errorf("%w: %s %d does not exist", common.ErrInvalidReference, parent.Singular(), e.ParentID())
	}
	return nil
}

func (r *MemoryRepository) Create(_ context.Context, userID, clientRef string, e models.Entity) (models.Canonical, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkEntity(userID, e); err != nil {
		return models.Canonical{}, err
	}
	if clientRef != "" {
		for _, row := range r.s.rows[r.t] {
			if row.owner == userID && row.rec.ClientRef == clientRef {
				return row.rec, nil
			}
		}
	}

	r.s.seq++
	rec := models.Canonical{
		ID:        r.s.seq,
		ClientRef: clientRef,
		UpdatedAt: r.s.stamp(time.Time{}),
		Entity:    e,
	}
	r.s.rows[r.t][rec.ID] = memRow{owner: userID, rec: rec}
	return rec, nil
}

func (r *MemoryRepository) Update(_ context.Context, userID string, id int64, base time.Time, e models.Entity) (models.Canonical, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkEntity(userID, e); err != nil {
		return models.Canonical{}, err
	}
	current, err := r.get(userID, id)
	if err != nil {
		return models.Canonical{}, err
	}
	if !current.UpdatedAt.Equal(base) {
		return models.Canonical{}, &models.ConflictError{Current: current}
	}

	current.Entity = e
	current.UpdatedAt = r.s.stamp(current.UpdatedAt)
	r.s.rows[r.t][id] = memRow{owner: userID, rec: current}
	return current, nil
}

func (r *MemoryRepository) referenced(userID string, id int64) bool {
	for _, child := range r.t.Children() {
		for _, row := range r.s.rows[child] {
			if row.owner == userID && row.rec.Entity.ParentID() == id {
				return true
			}
		}
	}
	return false
}

func (r *MemoryRepository) Delete(_ context.Context, userID string, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.get(userID, id); err != nil {
		return err
	}
	if r.referenced(userID, id) {
		return fmt.Errorf("%w: %s %d", common.ErrHasDependents, r.t.Singular(), id)
	}
	delete(r.s.rows[r.t], id)
	return nil
}

func (r *MemoryRepository) BulkDelete(_ context.Context, userID string, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range ids {
		if r.referenced(userID, id) {
			return 0, fmt.Errorf("%w: %s %d", common.ErrHasDependents, r.t.Singular(), id)
		}
	}

	var n int64
	for _, id := range ids {
		if _, err := r.get(userID, id); err != nil {
			continue
		}
		delete(r.s.rows[r.t], id)
		n++
	}
	return n, nil
}

var _ Repository = (*MemoryRepository)(nil)
