package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// fakeRemote is an in-memory server with the same create/update contract as
// the real one: creates are idempotent on clientRef, updates are guarded by
// updatedAt, children need an existing parent, parents with children cannot
// be deleted.
type fakeRemote struct {
	mu      sync.Mutex
	nextID  int64
	clock   time.Time
	records map[models.EntityType]map[int64]models.Canonical
	byRef   map[string]int64

	// err, when set, fails every call.
	err error
	// rejectType fails creates and updates of one type with ErrRejected.
	rejectType models.EntityType
	// dropResponses makes that many successful creates report ErrUnavailable.
	dropResponses int
	// block makes calls wait for ctx to end.
	block bool
	// gate, when set, is waited on by Create after signalling entered.
	gate    chan struct{}
	entered chan struct{}
	// onCreate runs inside Create before it returns.
	onCreate func()

	creates, updates, deletes, bulkDeletes, lists int
}

func newFakeRemote() *fakeRemote {
	f := &fakeRemote{
		nextID:  100,
		clock:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		records: make(map[models.EntityType]map[int64]models.Canonical),
		byRef:   make(map[string]int64),
	}
	for _, t := range models.All() {
		f.records[t] = make(map[int64]models.Canonical)
	}
	return f
}

func (f *fakeRemote) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// seed stores a record as if another device had written it.
func (f *fakeRemote) seed(e models.Entity) models.Canonical {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := models.Canonical{ID: f.nextID, ClientRef: fmt.Sprintf("seed-%d", f.nextID), UpdatedAt: f.tick(), Entity: e}
	f.records[e.Type()][c.ID] = c
	f.byRef[c.ClientRef] = c.ID
	return c
}

// edit changes a stored record as another device would.
func (f *fakeRemote) edit(id int64, e models.Entity) models.Canonical {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.records[e.Type()][id]
	c.Entity = e
	c.UpdatedAt = f.tick()
	f.records[e.Type()][id] = c
	return c
}

func (f *fakeRemote) get(t models.EntityType, id int64) (models.Canonical, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.records[t][id]
	return c, ok
}

func (f *fakeRemote) count(t models.EntityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[t])
}

func (f *fakeRemote) wait(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return fmt.Errorf("%w: %v", remote.ErrUnavailable, ctx.Err())
	}
	return f.err
}

// remove deletes ids of type t, all or none.
func (f *fakeRemote) remove(t models.EntityType, ids []int64) (int64, error) {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, child := range t.Children() {
		for _, c := range f.records[child] {
			if drop[c.Entity.ParentID()] {
				return 0, fmt.Errorf("%w: %s %d has dependents", remote.ErrRejected, t.Singular(), c.Entity.ParentID())
			}
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := f.records[t][id]; ok {
			delete(f.records[t], id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRemote) checkParent(e models.Entity) error {
	p, ok := e.Type().Parent()
	if !ok {
		return nil
	}
	if _, exists := f.records[p][e.ParentID()]; !exists {
		return fmt.Errorf("%w: %s %d does not exist", remote.ErrRejected, p.Singular(), e.ParentID())
	}
	return nil
}

func (f *fakeRemote) List(ctx context.Context, t models.EntityType) ([]models.Canonical, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := make([]models.Canonical, 0, len(f.records[t]))
	for _, c := range f.records[t] {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRemote) Create(ctx context.Context, ref string, e models.Entity) (models.Canonical, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	if err := f.wait(ctx); err != nil {
		return models.Canonical{}, err
	}
	if f.onCreate != nil {
		f.onCreate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	if e.Type() == f.rejectType {
		return models.Canonical{}, fmt.Errorf("%w: rejected", remote.ErrRejected)
	}
	if err := f.checkParent(e); err != nil {
		return models.Canonical{}, err
	}

	c, ok := f.records[e.Type()][f.byRef[ref]]
	if !ok {
		f.nextID++
		c = models.Canonical{ID: f.nextID, ClientRef: ref, UpdatedAt: f.tick(), Entity: e}
		f.records[e.Type()][c.ID] = c
		f.byRef[ref] = c.ID
	}

	if f.dropResponses > 0 {
		f.dropResponses--
		return models.Canonical{}, fmt.Errorf("%w: connection reset", remote.ErrUnavailable)
	}
	return c, nil
}

func (f *fakeRemote) Update(ctx context.Context, id int64, base time.Time, e models.Entity) (models.Canonical, error) {
	if err := f.wait(ctx); err != nil {
		return models.Canonical{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++

	if e.Type() == f.rejectType {
		return models.Canonical{}, fmt.Errorf("%w: rejected", remote.ErrRejected)
	}
	c, ok := f.records[e.Type()][id]
	if !ok {
		return models.Canonical{}, common.ErrNotFound
	}
	if !c.UpdatedAt.Equal(base) {
		return models.Canonical{}, &models.ConflictError{Current: c}
	}
	if err := f.checkParent(e); err != nil {
		return models.Canonical{}, err
	}
	c.Entity = e
	c.UpdatedAt = f.tick()
	f.records[e.Type()][id] = c
	return c, nil
}

func (f *fakeRemote) Delete(ctx context.Context, t models.EntityType, id int64) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if _, ok := f.records[t][id]; !ok {
		return common.ErrNotFound
	}
	_, err := f.remove(t, []int64{id})
	return err
}

func (f *fakeRemote) BulkDelete(ctx context.Context, t models.EntityType, ids []int64) (int64, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeletes++
	return f.remove(t, ids)
}

func (f *fakeRemote) PresignImageUpload(context.Context, int64, string) (remote.ImageUpload, error) {
	return remote.ImageUpload{}, remote.ErrUnavailable
}

var _ remote.Remote = (*fakeRemote)(nil)
